package pdf

import (
	"strconv"
	"strings"
)

// encoding maps single-byte codes to Unicode. Zero means unmapped.
type encoding [256]rune

var (
	winAnsiEncoding  encoding
	standardEncoding encoding
	glyphNames       = map[string]rune{}
)

var asciiGlyphNames = []string{
	"space", "exclam", "quotedbl", "numbersign", "dollar", "percent", "ampersand", "quotesingle",
	"parenleft", "parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"colon", "semicolon", "less", "equal", "greater", "question", "at",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"bracketleft", "backslash", "bracketright", "asciicircum", "underscore", "grave",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"braceleft", "bar", "braceright", "asciitilde",
}

// names of U+00A0 through U+00FF
var latin1GlyphNames = []string{
	"nbspace", "exclamdown", "cent", "sterling", "currency", "yen", "brokenbar", "section",
	"dieresis", "copyright", "ordfeminine", "guillemotleft", "logicalnot", "sfthyphen", "registered", "macron",
	"degree", "plusminus", "twosuperior", "threesuperior", "acute", "mu", "paragraph", "periodcentered",
	"cedilla", "onesuperior", "ordmasculine", "guillemotright", "onequarter", "onehalf", "threequarters", "questiondown",
	"Agrave", "Aacute", "Acircumflex", "Atilde", "Adieresis", "Aring", "AE", "Ccedilla",
	"Egrave", "Eacute", "Ecircumflex", "Edieresis", "Igrave", "Iacute", "Icircumflex", "Idieresis",
	"Eth", "Ntilde", "Ograve", "Oacute", "Ocircumflex", "Otilde", "Odieresis", "multiply",
	"Oslash", "Ugrave", "Uacute", "Ucircumflex", "Udieresis", "Yacute", "Thorn", "germandbls",
	"agrave", "aacute", "acircumflex", "atilde", "adieresis", "aring", "ae", "ccedilla",
	"egrave", "eacute", "ecircumflex", "edieresis", "igrave", "iacute", "icircumflex", "idieresis",
	"eth", "ntilde", "ograve", "oacute", "ocircumflex", "otilde", "odieresis", "divide",
	"oslash", "ugrave", "uacute", "ucircumflex", "udieresis", "yacute", "thorn", "ydieresis",
}

// 0x80-0x9F of WinAnsiEncoding
var winAnsiHigh = [32]rune{
	'€', 0, '‚', 'ƒ', '„', '…', '†', '‡', 'ˆ', '‰', 'Š', '‹', 'Œ', 0, 'Ž', 0,
	0, '‘', '’', '“', '”', '•', '–', '—', '˜', '™', 'š', '›', 'œ', 0, 'ž', 'Ÿ',
}

var standardHigh = map[byte]rune{
	0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ', 0xA7: '§',
	0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹', 0xAD: '›', 0xAE: 'ﬁ',
	0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†', 0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•',
	0xB8: '‚', 0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰', 0xBF: '¿',
	0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯', 0xC6: '˘', 0xC7: '˙',
	0xC8: '¨', 0xCA: '˚', 0xCB: '¸', 0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—',
	0xE1: 'Æ', 0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
	0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
}

var extraGlyphNames = map[string]rune{
	"quoteright": '’', "quoteleft": '‘', "quotedblleft": '“', "quotedblright": '”',
	"quotesinglbase": '‚', "quotedblbase": '„', "bullet": '•', "endash": '–',
	"emdash": '—', "ellipsis": '…', "fi": 'ﬁ', "fl": 'ﬂ', "trademark": '™',
	"dagger": '†', "daggerdbl": '‡', "perthousand": '‰', "Euro": '€', "florin": 'ƒ',
	"minus": '−', "fraction": '⁄', "OE": 'Œ', "oe": 'œ', "Scaron": 'Š', "scaron": 'š',
	"Zcaron": 'Ž', "zcaron": 'ž', "Ydieresis": 'Ÿ', "dotlessi": 'ı', "Lslash": 'Ł',
	"lslash": 'ł', "circumflex": 'ˆ', "tilde": '˜', "guilsinglleft": '‹',
	"guilsinglright": '›', "hyphenminus": '-', "uni00A0": ' ', "nonbreakingspace": ' ',
}

func init() {
	for i, n := range asciiGlyphNames {
		glyphNames[n] = rune(0x20 + i)
	}
	for i, n := range latin1GlyphNames {
		glyphNames[n] = rune(0xA0 + i)
	}
	for n, r := range extraGlyphNames {
		glyphNames[n] = r
	}

	for c := 0x20; c < 0x7f; c++ {
		winAnsiEncoding[c] = rune(c)
		standardEncoding[c] = rune(c)
	}
	standardEncoding['\''] = '’'
	standardEncoding['`'] = '‘'
	for i, r := range winAnsiHigh {
		winAnsiEncoding[0x80+i] = r
	}
	for c := 0xA0; c <= 0xFF; c++ {
		winAnsiEncoding[c] = rune(c)
	}
	// WinAnsi maps these to space and hyphen
	winAnsiEncoding[0xA0] = ' '
	winAnsiEncoding[0xAD] = '-'
	for c, r := range standardHigh {
		standardEncoding[c] = r
	}
}

// glyphRune resolves a glyph name from an encoding Differences array
func glyphRune(name string) rune {
	if r, ok := glyphNames[name]; ok {
		return r
	}
	// suffixed names such as "a.sc" or "f_i" variants
	if i := strings.IndexByte(name, '.'); i > 0 {
		return glyphRune(name[:i])
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v)
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v)
		}
	}
	return 0
}

// winAnsiByte encodes r for a WinAnsi font, '?' when it has no code
func winAnsiByte(r rune) byte {
	if r >= 0x20 && r < 0x7f {
		return byte(r)
	}
	for c := 0x80; c <= 0xFF; c++ {
		if winAnsiEncoding[c] == r {
			return byte(c)
		}
	}
	return '?'
}
