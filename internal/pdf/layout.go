package pdf

// glyph is one shown character code placed on the page
type glyph struct {
	text    string
	rect    Rect
	originX float64
	originY float64
	// endX is where the next glyph would start. Gaps to the following glyph
	// are measured from here so character spacing is not mistaken for a space.
	endX float64
	// size is the rendered font height in user space
	size float64
	// advance is the horizontal text space displacement of the glyph
	advance float64
}

// showOp records the text state a show-text operator ran with
type showOp struct {
	op     int
	font   *font
	size   float64
	scale  float64
	glyphs []int
}

// stream is the operators of one content stream and what they draw
type stream struct {
	ops   []op
	shows []showOp
	forms []*formDraw
}

// formDraw is one Do of a form XObject together with the form's own stream
type formDraw struct {
	stream
	op   int
	name string
	form *form
}

// layout is the analysed text of a page. glyphs holds every glyph of the
// page, including those drawn by forms; showOp.glyphs index into it.
type layout struct {
	stream
	glyphs []glyph
}

type textState struct {
	font      *font
	size      float64
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
}

type graphicsState struct {
	ctm  matrix
	text textState
}

// resources resolves the named resources a content stream refers to
type resources interface {
	font(name string) *font
	form(name string) *form
}

// fontLookup is a resources that knows fonts only
type fontLookup func(name string) *font

func (f fontLookup) font(name string) *font { return f(name) }

func (fontLookup) form(string) *form { return nil }

// maxFormDepth bounds form XObject nesting, which also stops forms that
// draw themselves
const maxFormDepth = 8

// analyze runs the text operators of content and places every glyph
func analyze(content []byte, res resources) (*layout, error) {
	l := &layout{}
	gs := graphicsState{ctm: identity, text: textState{scale: 1}}
	if err := l.run(&l.stream, content, res, gs, 0); err != nil {
		return nil, err
	}
	return l, nil
}

// run interprets one content stream starting from gs
func (l *layout) run(s *stream, content []byte, res resources, gs graphicsState, depth int) error {
	ops, err := parseOps(content)
	if err != nil {
		return err
	}
	s.ops = ops

	var stack []graphicsState
	tm, tlm := identity, identity
	fallback := newStandardFont("Helvetica")

	nextLine := func(tx, ty float64) {
		tlm = translate(tx, ty).mul(tlm)
		tm = tlm
	}

	for i, o := range ops {
		switch o.name {
		case "q":
			stack = append(stack, gs)
		case "Q":
			if n := len(stack); n > 0 {
				gs = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if len(o.args) == 6 {
				m := matrix{o.num(0), o.num(1), o.num(2), o.num(3), o.num(4), o.num(5)}
				gs.ctm = m.mul(gs.ctm)
			}
		case "Do":
			if len(o.args) != 1 || depth >= maxFormDepth {
				continue
			}
			name := o.args[0].name()
			f := res.form(name)
			if f == nil {
				continue
			}
			fd := &formDraw{op: i, name: name, form: f}
			fgs := gs
			fgs.ctm = f.matrix.mul(gs.ctm)
			// a form that cannot be read draws nothing we can find
			if err := l.run(&fd.stream, f.content, f.res, fgs, depth+1); err != nil {
				continue
			}
			s.forms = append(s.forms, fd)
		case "BT":
			tm, tlm = identity, identity
		case "Tf":
			if len(o.args) == 2 {
				gs.text.font = res.font(o.args[0].name())
				gs.text.size = o.num(1)
			}
		case "Tc":
			gs.text.charSpace = o.num(0)
		case "Tw":
			gs.text.wordSpace = o.num(0)
		case "Tz":
			gs.text.scale = o.num(0) / 100
		case "TL":
			gs.text.leading = o.num(0)
		case "Ts":
			gs.text.rise = o.num(0)
		case "Td":
			nextLine(o.num(0), o.num(1))
		case "TD":
			gs.text.leading = -o.num(1)
			nextLine(o.num(0), o.num(1))
		case "Tm":
			if len(o.args) == 6 {
				tm = matrix{o.num(0), o.num(1), o.num(2), o.num(3), o.num(4), o.num(5)}
				tlm = tm
			}
		case "T*":
			nextLine(0, -gs.text.leading)
		case "Tj", "TJ", "'", "\"":
			if o.name == "'" || o.name == "\"" {
				if o.name == "\"" {
					gs.text.wordSpace = o.num(0)
					gs.text.charSpace = o.num(1)
				}
				nextLine(0, -gs.text.leading)
			}
			f := gs.text.font
			if f == nil {
				f = fallback
			}
			show := showOp{op: i, font: f, size: gs.text.size, scale: gs.text.scale}
			for _, el := range showElements(o) {
				if el.kind == kindNumber {
					tm = translate(-el.num/1000*gs.text.size*gs.text.scale, 0).mul(tm)
					continue
				}
				if el.kind != kindString {
					continue
				}
				for _, fg := range f.decode(el.str) {
					g, advance := place(fg, gs, tm, f)
					show.glyphs = append(show.glyphs, len(l.glyphs))
					l.glyphs = append(l.glyphs, g)
					tm = translate(advance, 0).mul(tm)
				}
			}
			s.shows = append(s.shows, show)
		}
	}

	return nil
}

// showElements returns the strings and adjustments a show operator draws
func showElements(o op) []operand {
	switch o.name {
	case "TJ":
		if len(o.args) > 0 && o.args[0].kind == kindArray {
			return o.args[0].items
		}
	case "Tj", "'":
		if len(o.args) > 0 {
			return o.args[:1]
		}
	case "\"":
		if len(o.args) > 2 {
			return o.args[2:3]
		}
	}
	return nil
}

// place computes the user space box of a glyph drawn at the current text matrix
func place(fg fontGlyph, gs graphicsState, tm matrix, f *font) (glyph, float64) {
	ts := gs.text
	trm := matrix{ts.size * ts.scale, 0, 0, ts.size, 0, ts.rise}.mul(tm).mul(gs.ctm)

	rect := trm.bounds(0, f.ascent, fg.width, f.descent)
	ox, oy := trm.apply(0, 0)
	_, top := trm.apply(0, 1)

	advance := fg.width*ts.size + ts.charSpace
	if fg.space {
		advance += ts.wordSpace
	}
	advance *= ts.scale
	ex, _ := tm.mul(gs.ctm).apply(advance, ts.rise)

	size := top - oy
	if size < 0 {
		size = -size
	}
	if size == 0 {
		size = rect.Height()
	}

	return glyph{
		text:    fg.text,
		rect:    rect,
		originX: ox,
		originY: oy,
		endX:    ex,
		size:    size,
		advance: advance,
	}, advance
}
