package pdf

import (
	"unicode/utf16"
)

// cmap is a parsed ToUnicode map from character codes to text
type cmap struct {
	// codeLengths lists the byte lengths declared by codespace ranges
	codeLengths []int
	chars       map[string]string
}

// parseCMap reads the bfchar and bfrange sections of a ToUnicode stream
func parseCMap(data []byte) (*cmap, error) {
	ops, err := parseOps(data)
	if err != nil {
		return nil, err
	}

	m := &cmap{chars: make(map[string]string)}
	for _, o := range ops {
		switch o.name {
		case "endcodespacerange":
			for i := 0; i+1 < len(o.args); i += 2 {
				if n := len(o.args[i].str); n > 0 && !containsInt(m.codeLengths, n) {
					m.codeLengths = append(m.codeLengths, n)
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(o.args); i += 2 {
				src, dst := o.args[i], o.args[i+1]
				if src.kind != kindString {
					continue
				}
				if dst.kind == kindName {
					if r := glyphRune(dst.name()); r != 0 {
						m.chars[string(src.str)] = string(r)
					}
					continue
				}
				m.chars[string(src.str)] = decodeUTF16(dst.str)
			}
		case "endbfrange":
			for i := 0; i+2 < len(o.args); i += 3 {
				m.addRange(o.args[i].str, o.args[i+1].str, o.args[i+2])
			}
		}
	}

	return m, nil
}

func (m *cmap) addRange(lo, hi []byte, dst operand) {
	if len(lo) == 0 || len(lo) != len(hi) {
		return
	}
	start, end := codeValue(lo), codeValue(hi)
	if end < start || end-start > 0xffff {
		return
	}

	for c := start; c <= end; c++ {
		code := codeBytes(c, len(lo))
		off := int(c - start)
		switch dst.kind {
		case kindArray:
			if off < len(dst.items) {
				m.chars[string(code)] = decodeUTF16(dst.items[off].str)
			}
		case kindString:
			if len(dst.str) == 0 {
				continue
			}
			// the last byte of the destination increments across the range
			out := make([]byte, len(dst.str))
			copy(out, dst.str)
			v := int(out[len(out)-1]) + off
			out[len(out)-1] = byte(v)
			if len(out) >= 2 && v > 0xff {
				out[len(out)-2] += byte(v >> 8)
			}
			m.chars[string(code)] = decodeUTF16(out)
		}
	}
}

// lookup returns the text for code
func (m *cmap) lookup(code []byte) (string, bool) {
	s, ok := m.chars[string(code)]
	return s, ok
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func codeBytes(v uint32, n int) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func decodeUTF16(b []byte) string {
	if len(b)%2 == 1 {
		b = append([]byte{0}, b...)
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
