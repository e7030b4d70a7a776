package pdf

import (
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// font holds what the layout needs from a font resource: code lengths,
// advance widths and a mapping to Unicode.
type font struct {
	baseFont string
	// twoByte is set for Type0 fonts, which use 2-byte codes
	twoByte bool
	// widthScale converts stored widths to text space units
	widthScale   float64
	firstChar    int
	widths       []float64
	missingWidth float64
	cidWidths    map[int]float64
	defaultWidth float64
	ascent       float64
	descent      float64
	toUnicode    *cmap
	encoding     *encoding
}

// fontGlyph is one decoded character code
type fontGlyph struct {
	code  []byte
	text  string
	width float64 // text space units at size 1
	space bool    // single-byte code 32, which receives word spacing
}

// newStandardFont returns a simple font with standard 14 metrics
func newStandardFont(baseFont string) *font {
	enc := winAnsiEncoding
	return &font{
		baseFont:   baseFont,
		widthScale: 0.001,
		ascent:     0.8,
		descent:    -0.2,
		encoding:   &enc,
	}
}

// decode splits s into character codes
func (f *font) decode(s []byte) []fontGlyph {
	step := 1
	if f.twoByte {
		step = 2
	}

	glyphs := make([]fontGlyph, 0, len(s)/step)
	for i := 0; i < len(s); i += step {
		end := i + step
		if end > len(s) {
			end = len(s)
		}
		code := s[i:end]
		glyphs = append(glyphs, fontGlyph{
			code:  code,
			text:  f.text(code),
			width: f.width(code) * f.widthScale,
			space: !f.twoByte && code[0] == ' ',
		})
	}
	return glyphs
}

func (f *font) text(code []byte) string {
	if f.toUnicode != nil {
		if s, ok := f.toUnicode.lookup(code); ok {
			return s
		}
	}
	if !f.twoByte && f.encoding != nil {
		if r := f.encoding[code[0]]; r != 0 {
			return string(r)
		}
	}
	return string(utf8.RuneError)
}

func (f *font) width(code []byte) float64 {
	if f.twoByte {
		cid := int(codeValue(code))
		if w, ok := f.cidWidths[cid]; ok {
			return w
		}
		return f.defaultWidth
	}

	c := int(code[0])
	if i := c - f.firstChar; f.widths != nil && i >= 0 && i < len(f.widths) {
		return f.widths[i]
	}
	if w, ok := standardWidth(f.baseFont, code[0]); ok {
		return w
	}
	if f.missingWidth > 0 {
		return f.missingWidth
	}
	return 500
}

// loadFont builds a font from its resource dictionary
func loadFont(ctx *model.Context, d types.Dict) *font {
	f := &font{
		baseFont:     nameValue(ctx, d, "BaseFont"),
		widthScale:   0.001,
		ascent:       0.8,
		descent:      -0.2,
		defaultWidth: 1000,
	}
	subtype := nameValue(ctx, d, "Subtype")

	if tu, ok := d.Find("ToUnicode"); ok {
		if data, err := streamContent(ctx, tu); err == nil {
			if m, err := parseCMap(data); err == nil {
				f.toUnicode = m
			}
		}
	}

	if subtype == "Type0" {
		f.twoByte = true
		if arr := arrayValue(ctx, d, "DescendantFonts"); len(arr) > 0 {
			if cid, err := ctx.DereferenceDict(arr[0]); err == nil && cid != nil {
				f.loadCIDWidths(ctx, cid)
				f.loadDescriptor(ctx, cid)
			}
		}
		return f
	}

	if subtype == "Type3" {
		if fm := arrayValue(ctx, d, "FontMatrix"); len(fm) >= 1 {
			if v, ok := numberValue(ctx, fm[0]); ok && v != 0 {
				f.widthScale = v
			}
		}
	}

	if v, ok := numberValue(ctx, findValue(d, "FirstChar")); ok {
		f.firstChar = int(v)
	}
	if ws := arrayValue(ctx, d, "Widths"); len(ws) > 0 {
		f.widths = make([]float64, len(ws))
		for i, w := range ws {
			f.widths[i], _ = numberValue(ctx, w)
		}
	}
	f.loadDescriptor(ctx, d)
	f.loadEncoding(ctx, d, subtype)

	return f
}

func (f *font) loadDescriptor(ctx *model.Context, d types.Dict) {
	o, ok := d.Find("FontDescriptor")
	if !ok {
		return
	}
	fd, err := ctx.DereferenceDict(o)
	if err != nil || fd == nil {
		return
	}
	if v, ok := numberValue(ctx, findValue(fd, "MissingWidth")); ok {
		f.missingWidth = v
	}
	asc, okA := numberValue(ctx, findValue(fd, "Ascent"))
	desc, okD := numberValue(ctx, findValue(fd, "Descent"))
	// some producers write zero or nonsense metrics; keep the defaults then
	if okA && okD && asc > 0 && desc < 0 && asc-desc < 2000 {
		f.ascent = asc / 1000
		f.descent = desc / 1000
	}
}

func (f *font) loadCIDWidths(ctx *model.Context, cid types.Dict) {
	if v, ok := numberValue(ctx, findValue(cid, "DW")); ok {
		f.defaultWidth = v
	}
	w := arrayValue(ctx, cid, "W")
	if len(w) == 0 {
		return
	}

	f.cidWidths = make(map[int]float64)
	for i := 0; i < len(w); {
		first, ok := numberValue(ctx, w[i])
		if !ok || i+1 >= len(w) {
			return
		}
		// c [w1 w2 ...] or c_first c_last w
		if list, err := ctx.DereferenceArray(w[i+1]); err == nil && list != nil {
			for j, o := range list {
				f.cidWidths[int(first)+j], _ = numberValue(ctx, o)
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		last, _ := numberValue(ctx, w[i+1])
		width, _ := numberValue(ctx, w[i+2])
		for c := int(first); c <= int(last) && c-int(first) <= 0xffff; c++ {
			f.cidWidths[c] = width
		}
		i += 3
	}
}

func (f *font) loadEncoding(ctx *model.Context, d types.Dict, subtype string) {
	var enc encoding
	if subtype == "TrueType" {
		enc = winAnsiEncoding
	} else {
		enc = standardEncoding
	}

	o, ok := d.Find("Encoding")
	if ok {
		o, _ = ctx.Dereference(o)
	}
	switch v := o.(type) {
	case types.Name:
		enc = namedEncoding(string(v), enc)
	case types.Dict:
		if base := v.NameEntry("BaseEncoding"); base != nil {
			enc = namedEncoding(*base, enc)
		}
		if diffs := arrayValue(ctx, v, "Differences"); len(diffs) > 0 {
			code := 0
			for _, item := range diffs {
				item, _ = ctx.Dereference(item)
				switch x := item.(type) {
				case types.Integer:
					code = int(x)
				case types.Float:
					code = int(x)
				case types.Name:
					if code >= 0 && code < 256 {
						if r := glyphRune(string(x)); r != 0 {
							enc[code] = r
						}
					}
					code++
				}
			}
		}
	}
	f.encoding = &enc
}

func namedEncoding(name string, fallback encoding) encoding {
	switch name {
	case "WinAnsiEncoding":
		return winAnsiEncoding
	case "StandardEncoding":
		return standardEncoding
	case "MacRomanEncoding":
		// identical to WinAnsi for the printable ASCII range
		return winAnsiEncoding
	}
	return fallback
}

func findValue(d types.Dict, key string) types.Object {
	o, _ := d.Find(key)
	return o
}

func nameValue(ctx *model.Context, d types.Dict, key string) string {
	o, ok := d.Find(key)
	if !ok {
		return ""
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return ""
	}
	if n, ok := o.(types.Name); ok {
		return string(n)
	}
	return ""
}

func arrayValue(ctx *model.Context, d types.Dict, key string) types.Array {
	o, ok := d.Find(key)
	if !ok {
		return nil
	}
	arr, err := ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	return arr
}

func numberValue(ctx *model.Context, o types.Object) (float64, bool) {
	if o == nil {
		return 0, false
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return 0, false
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

// streamContent dereferences o and returns its decoded stream data
func streamContent(ctx *model.Context, o types.Object) ([]byte, error) {
	o, err := ctx.Dereference(o)
	if err != nil {
		return nil, err
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil, errNotStream
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return sd.Content, nil
}
