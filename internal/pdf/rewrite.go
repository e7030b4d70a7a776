package pdf

import (
	"bytes"
)

// removedGlyphs returns the glyphs whose box centre lies in one of dirs
func (l *layout) removedGlyphs(dirs []Directive) map[int]bool {
	removed := make(map[int]bool)
	for gi, g := range l.glyphs {
		cx, cy := g.rect.Center()
		for _, d := range dirs {
			if d.Rect.Contains(cx, cy) {
				removed[gi] = true
				break
			}
		}
	}
	return removed
}

// draws reports whether s, or a form it draws, shows a removed glyph
func (s *stream) draws(removed map[int]bool) bool {
	for _, sh := range s.shows {
		for _, gi := range sh.glyphs {
			if removed[gi] {
				return true
			}
		}
	}
	for _, fd := range s.forms {
		if fd.draws(removed) {
			return true
		}
	}
	return false
}

// redact returns the page content with the removed glyphs dropped, every Do
// operator listed in redirects pointed at its replacement form, and the fills
// and overlay labels of dirs painted on top.
func (l *layout) redact(content []byte, dirs []Directive, removed map[int]bool, redirects map[int]string, overlayFont string) []byte {
	var b bytes.Buffer
	b.Grow(len(content) + 256*len(dirs))
	b.WriteString("q\n")
	b.Write(l.rewrite(&l.stream, content, removed, redirects))
	b.WriteString("\n")
	// close anything the original content left open
	for depth := openStates(l.ops); depth > 0; depth-- {
		b.WriteString("Q\n")
	}
	b.WriteString("Q\n")

	for _, d := range dirs {
		writeDirective(&b, d, overlayFont)
	}
	return b.Bytes()
}

// rewrite returns the content of s with the removed glyphs replaced by
// positioning adjustments. Operators that draw no removed glyph and are not
// redirected are copied byte for byte.
func (l *layout) rewrite(s *stream, content []byte, removed map[int]bool, redirects map[int]string) []byte {
	replaced := make(map[int][]byte)
	for _, sh := range s.shows {
		for _, gi := range sh.glyphs {
			if removed[gi] {
				replaced[sh.op] = l.rewriteShow(s, sh, removed)
				break
			}
		}
	}
	for op, name := range redirects {
		var b bytes.Buffer
		writeOp(&b, "Do", nameOperand(name))
		replaced[op] = bytes.TrimRight(b.Bytes(), "\n")
	}

	var b bytes.Buffer
	b.Grow(len(content))
	last := 0
	for i, o := range s.ops {
		out, ok := replaced[i]
		if !ok {
			continue
		}
		b.Write(content[last:o.start])
		b.Write(out)
		last = o.end
	}
	b.Write(content[last:])
	return b.Bytes()
}

// openStates counts the q operators ops leave unbalanced
func openStates(ops []op) int {
	depth := 0
	for _, o := range ops {
		switch o.name {
		case "q":
			depth++
		case "Q":
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

// rewriteShow re-encodes a show operator as a TJ array in which each removed
// glyph is replaced by an adjustment of the same advance.
func (l *layout) rewriteShow(st *stream, s showOp, removed map[int]bool) []byte {
	o := st.ops[s.op]
	var items []operand
	var cur []byte
	k := 0

	flush := func() {
		if len(cur) > 0 {
			items = append(items, operand{kind: kindString, str: cur, hex: true})
			cur = nil
		}
	}
	adjust := func(v float64) {
		if n := len(items); n > 0 && items[n-1].kind == kindNumber {
			items[n-1].num += v
			return
		}
		items = append(items, number(v))
	}

	denom := s.size * s.scale
	for _, el := range showElements(o) {
		switch el.kind {
		case kindNumber:
			flush()
			adjust(el.num)
		case kindString:
			for _, fg := range s.font.decode(el.str) {
				gi := s.glyphs[k]
				k++
				if !removed[gi] {
					cur = append(cur, fg.code...)
					continue
				}
				flush()
				if denom != 0 {
					adjust(-l.glyphs[gi].advance * 1000 / denom)
				}
			}
		}
	}
	flush()

	var b bytes.Buffer
	switch o.name {
	case "'":
		writeOp(&b, "T*")
	case "\"":
		writeOp(&b, "Tw", number(o.num(0)))
		writeOp(&b, "Tc", number(o.num(1)))
		writeOp(&b, "T*")
	}
	writeOp(&b, "TJ", operand{kind: kindArray, items: items})
	return bytes.TrimRight(b.Bytes(), "\n")
}

// writeDirective paints the fill of d and, when a font is available, its label
func writeDirective(b *bytes.Buffer, d Directive, fontName string) {
	r := d.Rect
	b.WriteString("q\n")
	writeOp(b, "rg", number(d.Fill.R), number(d.Fill.G), number(d.Fill.B))
	writeOp(b, "re", number(r.X0), number(r.Y0), number(r.Width()), number(r.Height()))
	writeOp(b, "f")
	b.WriteString("Q\n")

	if d.Overlay == "" || fontName == "" {
		return
	}
	size, width := fitLabel(d.Overlay, r)
	if size <= 0 {
		return
	}

	label := make([]byte, 0, len(d.Overlay))
	for _, c := range d.Overlay {
		label = append(label, winAnsiByte(c))
	}

	x := r.X0 + (r.Width()-width)/2
	y := r.Y0 + (r.Height()-0.7*size)/2
	b.WriteString("q\nBT\n")
	writeOp(b, "Tf", nameOperand(fontName), number(size))
	writeOp(b, "rg", number(d.TextColor.R), number(d.TextColor.G), number(d.TextColor.B))
	writeOp(b, "Tm", number(1), number(0), number(0), number(1), number(x), number(y))
	writeOp(b, "Tj", operand{kind: kindString, str: label})
	b.WriteString("ET\nQ\n")
}

// fitLabel picks the largest font size at which text fits inside r. It
// returns zero when the label would be unreadably small.
func fitLabel(text string, r Rect) (size, width float64) {
	const minSize = 2
	unit := textWidth(text)
	if unit <= 0 {
		return 0, 0
	}
	size = r.Height() * 0.8
	if w := r.Width() * 0.95 / unit; w < size {
		size = w
	}
	if size < minSize {
		return 0, 0
	}
	return size, unit * size
}
