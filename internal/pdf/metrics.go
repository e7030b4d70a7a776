package pdf

import "strings"

// Advance widths of the standard 14 fonts for codes 32-126, in 1/1000 em.
// Bold and oblique faces reuse the regular metrics.
var helveticaWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 222, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	222, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var timesWidths = [95]float64{
	250, 333, 408, 500, 500, 833, 778, 333, 333, 333, 500, 564, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
	921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
	556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
	333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
	500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
}

// standardWidth returns the advance of code in a standard 14 font
func standardWidth(baseFont string, code byte) (float64, bool) {
	base := strings.ToLower(baseFont)
	// subset prefixes look like ABCDEF+Helvetica
	if i := strings.IndexByte(base, '+'); i == 6 {
		base = base[i+1:]
	}

	switch {
	case strings.HasPrefix(base, "courier"):
		return 600, true
	case strings.HasPrefix(base, "helvetica"), strings.HasPrefix(base, "arial"):
		if code >= 32 && code <= 126 {
			return helveticaWidths[code-32], true
		}
		return 556, true
	case strings.HasPrefix(base, "times"):
		if code >= 32 && code <= 126 {
			return timesWidths[code-32], true
		}
		return 500, true
	}
	return 0, false
}

// textWidth measures s set in Helvetica at size 1
func textWidth(s string) float64 {
	var w float64
	for _, r := range s {
		width, _ := standardWidth("Helvetica", winAnsiByte(r))
		w += width / 1000
	}
	return w
}
