package pdf

import (
	"errors"
	"math"
)

var (
	// ErrDocumentParse is returned when the input cannot be read as a PDF
	ErrDocumentParse = errors.New("document could not be parsed as PDF")
	// ErrPageRange is returned for page numbers outside the document
	ErrPageRange = errors.New("page number out of range")
)

// Rect is an axis-aligned rectangle in default user space (points, origin at
// the bottom left of the page)
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of r
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of r
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether r encloses no area
func (r Rect) IsEmpty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Union returns the smallest rectangle containing r and o
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Contains reports whether the point lies inside r, allowing a small tolerance
func (r Rect) Contains(x, y float64) bool {
	const eps = 0.01
	return x >= r.X0-eps && x <= r.X1+eps && y >= r.Y0-eps && y <= r.Y1+eps
}

// Covers reports whether o lies entirely inside r, with the same tolerance
// as Contains
func (r Rect) Covers(o Rect) bool {
	return r.Contains(o.X0, o.Y0) && r.Contains(o.X1, o.Y1)
}

// Center returns the midpoint of r
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Color is an RGB colour with components in [0,1]
type Color struct {
	R float64 `json:"r" mapstructure:"r"`
	G float64 `json:"g" mapstructure:"g"`
	B float64 `json:"b" mapstructure:"b"`
}

var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// Directive is a pending redaction of one page region
type Directive struct {
	Rect      Rect
	Fill      Color
	TextColor Color
	// Overlay is written centred in the filled box when not empty
	Overlay string
}

// SearchOptions controls Page.Search
type SearchOptions struct {
	IgnoreCase  bool
	WholeWords  bool
	Dehyphenate bool
}

// Capabilities describes which search options a page honours natively
type Capabilities struct {
	IgnoreCase  bool
	Dehyphenate bool
}

// ApplyResult counts what a commit removed and painted
type ApplyResult struct {
	Regions int `json:"regions"`
	Glyphs  int `json:"glyphs"`
}

var errNotStream = errors.New("object is not a stream")
