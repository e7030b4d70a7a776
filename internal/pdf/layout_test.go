package pdf

import (
	"math"
	"strings"
	"testing"
)

func helvetica(string) *font {
	return newStandardFont("Helvetica")
}

func mustAnalyze(t *testing.T, content string) *layout {
	t.Helper()
	l, err := analyze([]byte(content), fontLookup(helvetica))
	if err != nil {
		t.Fatalf("analyze() error = %v", err)
	}
	return l
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestAnalyzeGlyphPositions(t *testing.T) {
	l := mustAnalyze(t, "BT /F1 12 Tf 72 720 Td (Ann said) Tj ET")

	if len(l.glyphs) != 8 {
		t.Fatalf("glyphs = %d, want 8", len(l.glyphs))
	}

	first := l.glyphs[0]
	if !near(first.rect.X0, 72) || !near(first.rect.X1, 72+0.667*12) {
		t.Errorf("A box x = [%v, %v]", first.rect.X0, first.rect.X1)
	}
	if !near(first.rect.Y0, 720-0.2*12) || !near(first.rect.Y1, 720+0.8*12) {
		t.Errorf("A box y = [%v, %v]", first.rect.Y0, first.rect.Y1)
	}

	// A n n space
	wantS := 72 + (0.667+0.556+0.556+0.278)*12
	if s := l.glyphs[4]; s.text != "s" || !near(s.originX, wantS) {
		t.Errorf("s at %v (%q), want %v", s.originX, s.text, wantS)
	}
}

func TestAnalyzeTextState(t *testing.T) {
	t.Run("cm and Tm compose", func(t *testing.T) {
		l := mustAnalyze(t, "q 2 0 0 2 10 10 cm BT /F1 10 Tf 1 0 0 1 5 5 Tm (A) Tj ET Q")
		g := l.glyphs[0]
		if !near(g.originX, 20) || !near(g.originY, 20) {
			t.Errorf("origin = (%v, %v), want (20, 20)", g.originX, g.originY)
		}
		if !near(g.size, 20) {
			t.Errorf("size = %v, want 20", g.size)
		}
	})

	t.Run("Q restores the CTM", func(t *testing.T) {
		l := mustAnalyze(t, "q 2 0 0 2 0 0 cm Q BT /F1 10 Tf 5 5 Td (A) Tj ET")
		if g := l.glyphs[0]; !near(g.originX, 5) {
			t.Errorf("origin x = %v, want 5", g.originX)
		}
	})

	t.Run("character and word spacing", func(t *testing.T) {
		l := mustAnalyze(t, "BT /F1 10 Tf 2 Tc 5 Tw 0 0 Td (a b) Tj ET")
		// a: 5.56 + 2, space: 2.78 + 2 + 5
		if g := l.glyphs[2]; !near(g.originX, 5.56+2+2.78+2+5) {
			t.Errorf("b at %v", g.originX)
		}
	})

	t.Run("horizontal scaling", func(t *testing.T) {
		l := mustAnalyze(t, "BT /F1 10 Tf 50 Tz 0 0 Td (aa) Tj ET")
		if g := l.glyphs[1]; !near(g.originX, 5.56*0.5) {
			t.Errorf("second a at %v", g.originX)
		}
	})

	t.Run("TJ adjustments", func(t *testing.T) {
		l := mustAnalyze(t, "BT /F1 10 Tf 0 0 Td [(a) -1000 (a)] TJ ET")
		if g := l.glyphs[1]; !near(g.originX, 5.56+10) {
			t.Errorf("second a at %v", g.originX)
		}
	})

	t.Run("leading and quote operators", func(t *testing.T) {
		l := mustAnalyze(t, "BT /F1 10 Tf 12 TL 0 100 Td (a) Tj (b) ' 1 2 (c) \" ET")
		if g := l.glyphs[1]; !near(g.originY, 88) || !near(g.originX, 0) {
			t.Errorf("b at (%v, %v)", g.originX, g.originY)
		}
		if g := l.glyphs[2]; !near(g.originY, 76) {
			t.Errorf("c at y %v", g.originY)
		}
	})

	t.Run("TD sets leading", func(t *testing.T) {
		l := mustAnalyze(t, "BT /F1 10 Tf 0 100 Td 0 -14 TD (a) Tj T* (b) Tj ET")
		if g := l.glyphs[1]; !near(g.originY, 72) {
			t.Errorf("b at y %v, want 72", g.originY)
		}
	})
}

func TestBuildText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single line",
			content: "BT /F1 12 Tf 72 720 Td (Ann said hi) Tj ET",
			want:    "Ann said hi",
		},
		{
			name:    "spaces inferred from kerning gaps",
			content: "BT /F1 12 Tf 72 720 Td [(Alan) -300 (Ngouenet)] TJ ET",
			want:    "Alan Ngouenet",
		},
		{
			name:    "tight kerning does not split words",
			content: "BT /F1 12 Tf 72 720 Td [(Al) 20 (an)] TJ ET",
			want:    "Alan",
		},
		{
			name:    "character spacing is not a word gap",
			content: "BT /F1 12 Tf 1.5 Tc 72 720 Td (Witness Alan Ngouenet testified.) Tj ET",
			want:    "Witness Alan Ngouenet testified.",
		},
		{
			name:    "wide horizontal scaling",
			content: "BT /F1 12 Tf 160 Tz 3 Tc 72 720 Td (Alan Ngouenet) Tj ET",
			want:    "Alan Ngouenet",
		},
		{
			name:    "word spacing on a space glyph",
			content: "BT /F1 12 Tf 2 Tc 20 Tw 72 720 Td (Alan Ngouenet) Tj ET",
			want:    "Alan Ngouenet",
		},
		{
			name:    "lines ordered top to bottom",
			content: "BT /F1 12 Tf 72 700 Td (second) Tj ET BT /F1 12 Tf 72 720 Td (first) Tj ET",
			want:    "first\nsecond",
		},
		{
			name:    "line number column joins its line",
			content: "BT /F1 12 Tf 40 720 Td (1) Tj 0 -20 Td (2) Tj ET BT /F1 12 Tf 72 720 Td (Q. Hello) Tj 0 -20 Td (A. Hi) Tj ET",
			want:    "1 Q. Hello\n2 A. Hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildText(mustAnalyze(t, tt.content)).String(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	content := "BT /F1 12 Tf 14 TL 72 720 Td (Ann said hi to Annual Co. ANN) Tj T* (Alan Ngou-) Tj T* (enet and Alan) Tj T* (Ngouenet left.) Tj ET"
	l := mustAnalyze(t, content)
	pt := buildText(l)

	tests := []struct {
		name   string
		needle string
		opts   SearchOptions
		want   int
	}{
		{"exact case", "Ann", SearchOptions{WholeWords: true}, 1},
		{"ignore case", "ann", SearchOptions{IgnoreCase: true, WholeWords: true}, 2},
		{"substring without whole words", "Ann", SearchOptions{}, 2},
		{"hyphenated across lines", "Ngouenet", SearchOptions{WholeWords: true, Dehyphenate: true}, 3},
		{"hyphenation ignored when off", "Ngouenet", SearchOptions{WholeWords: true}, 1},
		{"phrase across a line break", "Alan Ngouenet", SearchOptions{WholeWords: true}, 2},
		{"missing", "Bob", SearchOptions{IgnoreCase: true}, 0},
		{"empty needle", "", SearchOptions{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pt.search(l, tt.needle, tt.opts); len(got) != tt.want {
				t.Errorf("search(%q) = %d rects, want %d", tt.needle, len(got), tt.want)
			}
		})
	}

	t.Run("box covers the word", func(t *testing.T) {
		rects := pt.search(l, "Ann", SearchOptions{WholeWords: true})
		r := rects[0]
		if !near(r.X0, 72) || !near(r.X1, 72+(0.667+0.556+0.556)*12) {
			t.Errorf("rect = %+v", r)
		}
	})
}

func TestRedactRemovesGlyphsAndKeepsPositions(t *testing.T) {
	content := "BT /F1 12 Tf 72 720 Td (Ann said hi to Annual Co.) Tj ET"
	l := mustAnalyze(t, content)
	rects := buildText(l).search(l, "ann", SearchOptions{IgnoreCase: true, WholeWords: true})
	if len(rects) != 1 {
		t.Fatalf("expected 1 rect, got %d", len(rects))
	}

	dirs := []Directive{{Rect: rects[0], Fill: Black, TextColor: White, Overlay: "[REDACTED]"}}
	removed := l.removedGlyphs(dirs)
	if len(removed) != 3 {
		t.Errorf("removed = %d, want 3", len(removed))
	}
	out := l.redact([]byte(content), dirs, removed, nil, "ScrubHelv")
	if strings.Contains(string(out), "Ann said") {
		t.Error("original show string survived")
	}

	after := mustAnalyze(t, string(out))
	text := buildText(after).String()
	if strings.Contains(text, "Ann ") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.Contains(text, "said hi to Annual Co.") {
		t.Errorf("unrelated text lost: %q", text)
	}
	if !strings.Contains(text, "[REDACTED]") {
		t.Errorf("overlay label missing: %q", text)
	}

	before := l.glyphs[4]
	for _, g := range after.glyphs {
		if g.text == "s" {
			if !near(g.originX, before.originX) || !near(g.originY, before.originY) {
				t.Errorf("s moved from (%v,%v) to (%v,%v)", before.originX, before.originY, g.originX, g.originY)
			}
			break
		}
	}
}

func TestRedactCopiesUntouchedOperators(t *testing.T) {
	content := "q 0.5 g 10 10 100 100 re f Q\nBT /F1 12 Tf 72 720 Td (keep) Tj ET\nBT /F1 12 Tf 72 700 Td (drop) Tj ET"
	l := mustAnalyze(t, content)
	rects := buildText(l).search(l, "drop", SearchOptions{})

	dirs := []Directive{{Rect: rects[0]}}
	out := l.redact([]byte(content), dirs, l.removedGlyphs(dirs), nil, "")
	s := string(out)
	for _, part := range []string{"q 0.5 g 10 10 100 100 re f Q", "BT /F1 12 Tf 72 720 Td (keep) Tj ET"} {
		if !strings.Contains(s, part) {
			t.Errorf("untouched operators changed, missing %q", part)
		}
	}
	if strings.Contains(s, "(drop)") {
		t.Error("removed text survived")
	}
	if !strings.HasPrefix(s, "q\n") {
		t.Error("original content is not isolated")
	}
}

func TestRedactClosesUnbalancedState(t *testing.T) {
	content := "q 2 0 0 2 0 0 cm BT /F1 12 Tf 10 10 Td (x) Tj ET"
	l := mustAnalyze(t, content)

	dirs := []Directive{{Rect: Rect{0, 0, 1, 1}, Fill: Black}}
	out := l.redact([]byte(content), dirs, l.removedGlyphs(dirs), nil, "")
	ops, err := parseOps(out)
	if err != nil {
		t.Fatalf("parseOps() error = %v", err)
	}
	depth := 0
	for _, o := range ops {
		switch o.name {
		case "q":
			depth++
		case "Q":
			depth--
		case "re":
			if depth != 1 {
				t.Errorf("fill drawn at depth %d, want 1", depth)
			}
		}
	}
	if depth != 0 {
		t.Errorf("unbalanced output, depth %d", depth)
	}
}

func TestRedactLetterSpacedText(t *testing.T) {
	content := "BT /F1 12 Tf 1.5 Tc 72 720 Td (Witness Alan Ngouenet testified.) Tj ET"
	l := mustAnalyze(t, content)
	rects := buildText(l).search(l, "alan ngouenet", SearchOptions{IgnoreCase: true, WholeWords: true})
	if len(rects) != 1 {
		t.Fatalf("search() = %d rects, want 1", len(rects))
	}

	dirs := []Directive{{Rect: rects[0], Fill: Black}}
	out := l.redact([]byte(content), dirs, l.removedGlyphs(dirs), nil, "")
	text := buildText(mustAnalyze(t, string(out))).String()
	if strings.Contains(text, "Alan") || strings.Contains(text, "Ngouenet") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.HasPrefix(text, "Witness") || !strings.HasSuffix(text, "testified.") {
		t.Errorf("unrelated text lost: %q", text)
	}
}

// formResources serves Helvetica and a fixed set of forms
type formResources map[string]*form

func (formResources) font(string) *font { return newStandardFont("Helvetica") }

func (r formResources) form(name string) *form { return r[name] }

func TestAnalyzeForms(t *testing.T) {
	inner := &form{
		content: []byte("BT /F1 10 Tf 0 0 Td (Secret Alan Ngouenet here) Tj ET"),
		matrix:  matrix{1, 0, 0, 1, 100, 0},
		res:     fontLookup(helvetica),
	}
	res := formResources{"X1": inner}
	content := "q 1 0 0 1 0 500 cm /X1 Do Q BT /F1 10 Tf 0 700 Td (Body) Tj ET /Im1 Do"

	l, err := analyze([]byte(content), res)
	if err != nil {
		t.Fatalf("analyze() error = %v", err)
	}
	if len(l.forms) != 1 || l.forms[0].name != "X1" || l.forms[0].op != 2 {
		t.Fatalf("forms = %+v, want one X1 draw at op 2", l.forms)
	}
	if g := l.glyphs[0]; g.text != "S" || !near(g.originX, 100) || !near(g.originY, 500) {
		t.Errorf("first form glyph %q at (%v, %v), want S at (100, 500)", g.text, g.originX, g.originY)
	}
	if got := buildText(l).String(); got != "Body\nSecret Alan Ngouenet here" {
		t.Errorf("text = %q", got)
	}

	t.Run("self-drawing form stops", func(t *testing.T) {
		loop := &form{content: []byte("/X1 Do BT /F1 10 Tf 0 0 Td (a) Tj ET"), matrix: identity}
		loop.res = formResources{"X1": loop}
		l, err := analyze([]byte("/X1 Do"), loop.res)
		if err != nil {
			t.Fatalf("analyze() error = %v", err)
		}
		if len(l.glyphs) != maxFormDepth {
			t.Errorf("glyphs = %d, want %d", len(l.glyphs), maxFormDepth)
		}
	})
}

func TestRewriteForm(t *testing.T) {
	inner := &form{
		content: []byte("BT /F1 10 Tf 0 0 Td (Secret Alan here) Tj ET"),
		matrix:  identity,
		res:     fontLookup(helvetica),
	}
	content := "/X1 Do BT /F1 10 Tf 0 700 Td (Body) Tj ET"
	l, err := analyze([]byte(content), formResources{"X1": inner})
	if err != nil {
		t.Fatalf("analyze() error = %v", err)
	}

	rects := buildText(l).search(l, "Alan", SearchOptions{WholeWords: true})
	if len(rects) != 1 {
		t.Fatalf("search() = %d rects, want 1", len(rects))
	}
	dirs := []Directive{{Rect: rects[0], Fill: Black}}
	removed := l.removedGlyphs(dirs)

	fd := l.forms[0]
	if !fd.draws(removed) || !l.draws(removed) {
		t.Fatal("form not reported as drawing removed glyphs")
	}

	body := l.rewrite(&fd.stream, inner.content, removed, nil)
	text := buildText(mustAnalyze(t, string(body))).String()
	if strings.Contains(text, "Alan") || !strings.HasPrefix(text, "Secret") || !strings.HasSuffix(text, "here") {
		t.Errorf("form text after rewrite = %q", text)
	}

	page := string(l.redact([]byte(content), dirs, removed, map[int]string{fd.op: "ScrubFm1"}, ""))
	if !strings.Contains(page, "/ScrubFm1 Do") || strings.Contains(page, "/X1 Do") {
		t.Errorf("Do not redirected: %q", page)
	}
	if !strings.Contains(page, "BT /F1 10 Tf 0 700 Td (Body) Tj ET") {
		t.Errorf("page text changed: %q", page)
	}
}

func TestFitLabel(t *testing.T) {
	size, width := fitLabel("[REDACTED]", Rect{0, 0, 200, 12})
	if !near(size, 9.6) {
		t.Errorf("size = %v, want height bound 9.6", size)
	}
	if width > 200 {
		t.Errorf("label wider than box: %v", width)
	}

	if size, _ := fitLabel("[REDACTED]", Rect{0, 0, 5, 12}); size != 0 {
		t.Errorf("tiny box should get no label, got size %v", size)
	}
}
