package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"github.com/raaihank/transcript-scrubber/internal/pdf/pdftest"
	"go.uber.org/zap"
)

func TestExtract(t *testing.T) {
	data := pdftest.Build(
		pdftest.Line(72, 720, "Q. Mr. Ngouenet, where were you?")+pdftest.Line(72, 700, "A. At home."),
		pdftest.Line(72, 720, "Second page"),
	)

	doc, err := New(DefaultOptions(), zap.NewNop()).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(doc.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(doc.Pages))
	}
	want := "Q. Mr. Ngouenet, where were you?\nA. At home.\n\nSecond page"
	if doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
}

func TestExtractNoText(t *testing.T) {
	data := pdftest.Build("0 0 m 100 100 l S")

	_, err := Extract(data, DefaultOptions())
	if !errors.Is(err, ErrNoExtractableText) {
		t.Errorf("Extract() error = %v, want ErrNoExtractableText", err)
	}
}

func TestExtractUnreadable(t *testing.T) {
	_, err := Extract([]byte("definitely not a pdf"), DefaultOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNoExtractableText) {
		t.Error("parse failure reported as missing text")
	}
	if !errors.Is(err, pdf.ErrDocumentParse) {
		t.Errorf("Extract() error = %v, want ErrDocumentParse", err)
	}
}

func TestLayoutPagesMatchesReader(t *testing.T) {
	data := pdftest.Build(pdftest.Line(72, 720, "Alan Ngouenet") + pdftest.Line(72, 700, "Annual Co."))

	pages, err := layoutPages(data, DefaultOptions())
	if err != nil {
		t.Fatalf("layoutPages() error = %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "Alan Ngouenet\nAnnual Co." {
		t.Errorf("layoutPages() = %+v", pages)
	}
}

func TestCollectPagesKeepsUnreadablePages(t *testing.T) {
	runs := map[int][]lpdf.Text{
		1: {{FontSize: 12, X: 72, Y: 720, W: 7, S: "A"}},
		3: {{FontSize: 12, X: 72, Y: 720, W: 7, S: "C"}},
	}
	pages := collectPages(3, func(i int) ([]lpdf.Text, bool) {
		texts, ok := runs[i]
		return texts, ok
	}, DefaultOptions())

	want := []Page{{Number: 1, Text: "A"}, {Number: 2}, {Number: 3, Text: "C"}}
	if fmt.Sprint(pages) != fmt.Sprint(want) {
		t.Errorf("collectPages() = %+v, want %+v", pages, want)
	}
}

func TestGroupRows(t *testing.T) {
	texts := []lpdf.Text{
		{FontSize: 12, X: 100, Y: 700, W: 7, S: "B"},
		{FontSize: 12, X: 72, Y: 720, W: 7, S: "H"},
		{FontSize: 12, X: 79, Y: 720.5, W: 7, S: "i"},
		{FontSize: 12, X: 72, Y: 700, W: 7, S: "A"},
		{FontSize: 12, X: 90, Y: 720, W: 7, S: "X"},
	}

	got := groupRows(texts, 2)
	want := []string{"Hi X", "A B"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("groupRows() = %q, want %q", got, want)
	}
}

func depositionPage(lines int) string {
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "%d    Q. Question number %d?\n", i, i)
	}
	return strings.TrimRight(b.String(), "\n")
}

func TestFilterLineNumbers(t *testing.T) {
	t.Run("deposition page", func(t *testing.T) {
		got := FilterLineNumbers(depositionPage(25))
		lines := strings.Split(got, "\n")
		if lines[0] != "Q. Question number 1?" || lines[24] != "Q. Question number 25?" {
			t.Errorf("unexpected lines %q ... %q", lines[0], lines[24])
		}
	})

	t.Run("bare numbers on empty lines", func(t *testing.T) {
		in := depositionPage(12) + "\n13\n14"
		got := strings.Split(FilterLineNumbers(in), "\n")
		if got[12] != "" || got[13] != "" {
			t.Errorf("bare line numbers kept: %q", got[12:])
		}
	})

	t.Run("too few numbered lines", func(t *testing.T) {
		in := depositionPage(5)
		if got := FilterLineNumbers(in); got != in {
			t.Errorf("short page changed: %q", got)
		}
	})

	t.Run("numbers that do not count upwards", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 12; i++ {
			fmt.Fprintf(&b, "%d apples\n", 20-i)
		}
		in := b.String()
		if got := FilterLineNumbers(in); got != in {
			t.Error("prose starting with numbers was treated as a line number column")
		}
	})

	t.Run("numbers above 25 are not line numbers", func(t *testing.T) {
		in := "26 Q. one\n27 A. two"
		if got := FilterLineNumbers(in); got != in {
			t.Errorf("changed %q", got)
		}
	})
}
