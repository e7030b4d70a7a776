package pdf

import (
	"math"
	"sort"
	"unicode"

	"github.com/raaihank/transcript-scrubber/internal/textutil"
)

// pageText is the reading-order text of a layout. owners maps every rune to
// the glyph that produced it, or -1 for inferred spaces and line breaks.
type pageText struct {
	runes  []rune
	owners []int
	lines  []int
}

type textLine struct {
	y      float64
	size   float64
	glyphs []int
}

// buildText groups glyphs into baselines, orders lines top to bottom and
// glyphs left to right, and infers the whitespace between them.
func buildText(l *layout) *pageText {
	var lines []*textLine

	for gi, g := range l.glyphs {
		if g.text == "" {
			continue
		}
		var target *textLine
		for i := len(lines) - 1; i >= 0; i-- {
			ln := lines[i]
			tol := 0.5 * math.Min(ln.size, g.size)
			if tol <= 0 {
				tol = 1
			}
			if math.Abs(ln.y-g.originY) <= tol {
				target = ln
				break
			}
		}
		if target == nil {
			target = &textLine{y: g.originY, size: g.size}
			lines = append(lines, target)
		}
		target.glyphs = append(target.glyphs, gi)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	pt := &pageText{}
	add := func(r rune, owner, line int) {
		pt.runes = append(pt.runes, r)
		pt.owners = append(pt.owners, owner)
		pt.lines = append(pt.lines, line)
	}

	for li, ln := range lines {
		if li > 0 {
			add('\n', -1, li)
		}
		sort.SliceStable(ln.glyphs, func(i, j int) bool {
			return l.glyphs[ln.glyphs[i]].originX < l.glyphs[ln.glyphs[j]].originX
		})

		prev := -1
		for _, gi := range ln.glyphs {
			g := l.glyphs[gi]
			if prev >= 0 && needsSpace(l.glyphs[prev], g) {
				add(' ', -1, li)
			}
			for _, r := range g.text {
				add(r, gi, li)
			}
			prev = gi
		}
	}

	return pt
}

func needsSpace(prev, g glyph) bool {
	if endsWithSpace(prev.text) || startsWithSpace(g.text) {
		return false
	}
	size := math.Min(prev.size, g.size)
	if size <= 0 {
		size = 1
	}
	return g.originX-prev.endX > 0.12*size
}

func endsWithSpace(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsSpace(r[len(r)-1])
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func (pt *pageText) String() string {
	return string(pt.runes)
}

// search finds non-overlapping occurrences of needle and returns one box per
// line segment of each occurrence.
func (pt *pageText) search(l *layout, needle string, opts SearchOptions) []Rect {
	pattern := []rune(needle)
	if len(pattern) == 0 {
		return nil
	}

	var rects []Rect
	for s := 0; s < len(pt.runes); {
		if opts.WholeWords && s > 0 && textutil.IsWordRune(pt.runes[s-1]) {
			s++
			continue
		}
		end, ok := pt.matchAt(s, pattern, opts)
		if !ok {
			s++
			continue
		}
		rects = append(rects, pt.boxes(l, s, end)...)
		s = end
	}
	return rects
}

func (pt *pageText) matchAt(s int, pattern []rune, opts SearchOptions) (int, bool) {
	i, j := s, 0
	for j < len(pattern) {
		if i >= len(pt.runes) {
			return 0, false
		}
		r, p := pt.runes[i], pattern[j]

		if unicode.IsSpace(p) {
			// any run of whitespace, including a line break, matches a space
			if !unicode.IsSpace(r) {
				return 0, false
			}
			for i < len(pt.runes) && unicode.IsSpace(pt.runes[i]) {
				i++
			}
			for j < len(pattern) && unicode.IsSpace(pattern[j]) {
				j++
			}
			continue
		}

		if sameRune(r, p, opts.IgnoreCase) {
			i++
			j++
			continue
		}
		if opts.Dehyphenate && j > 0 && r == '-' && i+1 < len(pt.runes) && pt.runes[i+1] == '\n' {
			i += 2
			continue
		}
		return 0, false
	}

	if opts.WholeWords && i < len(pt.runes) && textutil.IsWordRune(pt.runes[i]) {
		return 0, false
	}
	return i, true
}

func sameRune(a, b rune, ignoreCase bool) bool {
	if a == b {
		return true
	}
	return ignoreCase && textutil.Fold(a) == textutil.Fold(b)
}

// boxes unions the glyph boxes of runes [start,end) per line
func (pt *pageText) boxes(l *layout, start, end int) []Rect {
	var rects []Rect
	line := -1
	var cur Rect
	for i := start; i < end; i++ {
		gi := pt.owners[i]
		if gi < 0 {
			continue
		}
		if pt.lines[i] != line {
			if line >= 0 && !cur.IsEmpty() {
				rects = append(rects, cur)
			}
			line = pt.lines[i]
			cur = Rect{}
		}
		cur = cur.Union(l.glyphs[gi].rect)
	}
	if line >= 0 && !cur.IsEmpty() {
		rects = append(rects, cur)
	}
	return rects
}
