package pdf

import (
	"math"
	"testing"
)

const testCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0024> <0041>
endbfchar
2 beginbfrange
<0044> <0046> <0061>
<0050> <0051> [<0066006C> <00DF>]
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

func TestParseCMap(t *testing.T) {
	m, err := parseCMap([]byte(testCMap))
	if err != nil {
		t.Fatalf("parseCMap() error = %v", err)
	}

	if len(m.codeLengths) != 1 || m.codeLengths[0] != 2 {
		t.Errorf("codeLengths = %v, want [2]", m.codeLengths)
	}

	tests := []struct {
		code []byte
		want string
	}{
		{[]byte{0x00, 0x03}, " "},
		{[]byte{0x00, 0x24}, "A"},
		{[]byte{0x00, 0x44}, "a"},
		{[]byte{0x00, 0x46}, "c"},
		{[]byte{0x00, 0x50}, "fl"},
		{[]byte{0x00, 0x51}, "ß"},
	}
	for _, tt := range tests {
		got, ok := m.lookup(tt.code)
		if !ok || got != tt.want {
			t.Errorf("lookup(%x) = %q, %v; want %q", tt.code, got, ok, tt.want)
		}
	}

	if _, ok := m.lookup([]byte{0x00, 0x47}); ok {
		t.Error("lookup outside ranges should fail")
	}
}

func TestType0Decode(t *testing.T) {
	m, err := parseCMap([]byte(testCMap))
	if err != nil {
		t.Fatalf("parseCMap() error = %v", err)
	}
	f := &font{
		twoByte:      true,
		widthScale:   0.001,
		defaultWidth: 1000,
		cidWidths:    map[int]float64{0x24: 722},
		toUnicode:    m,
	}

	glyphs := f.decode([]byte{0x00, 0x24, 0x00, 0x03, 0x00, 0x44})
	if len(glyphs) != 3 {
		t.Fatalf("decoded %d glyphs, want 3", len(glyphs))
	}
	if glyphs[0].text != "A" || math.Abs(glyphs[0].width-0.722) > 1e-9 {
		t.Errorf("glyph 0 = %+v", glyphs[0])
	}
	if glyphs[1].space {
		t.Error("two-byte codes never receive word spacing")
	}
	if math.Abs(glyphs[2].width-1) > 1e-9 {
		t.Errorf("default width = %v, want 1", glyphs[2].width)
	}
}

func TestGlyphRune(t *testing.T) {
	tests := map[string]rune{
		"A":          'A',
		"eacute":     'é',
		"quoteright": '’',
		"uni0041":    'A',
		"u1F600":     '\U0001F600',
		"a.sc":       'a',
		"nosuchname": 0,
	}
	for name, want := range tests {
		if got := glyphRune(name); got != want {
			t.Errorf("glyphRune(%q) = %q, want %q", name, got, want)
		}
	}
}
