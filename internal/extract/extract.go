// Package extract turns a PDF into plain text for term matching and entity
// recognition.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"go.uber.org/zap"
)

// ErrNoExtractableText is returned when a document yields no text at all,
// typically a scanned document without a text layer.
var ErrNoExtractableText = errors.New("no extractable text found in document")

// Source names the reader that produced the text
type Source string

const (
	SourceReader Source = "reader"
	SourceLayout Source = "layout"
)

// Options controls extraction
type Options struct {
	// FilterLineNumbers drops the 1-25 line number column of deposition
	// transcripts
	FilterLineNumbers bool `mapstructure:"filter_line_numbers"`
	// RowTolerance is the baseline distance, in points, under which text
	// runs belong to the same line
	RowTolerance float64 `mapstructure:"row_tolerance"`
}

// DefaultOptions returns the extraction defaults
func DefaultOptions() Options {
	return Options{RowTolerance: 2}
}

// Page is the text of one page
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// PlainTextDocument is the extracted text of a PDF
type PlainTextDocument struct {
	Pages  []Page `json:"pages"`
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Extractor extracts text with the tolerant reader and falls back to the
// layout engine of the redactor when that reader cannot handle a file.
type Extractor struct {
	opts   Options
	logger *zap.Logger
}

// New creates an extractor
func New(opts Options, logger *zap.Logger) *Extractor {
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = DefaultOptions().RowTolerance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{opts: opts, logger: logger}
}

// Extract returns the text of data. Pages are joined by a blank line and the
// result is trimmed; an empty result is ErrNoExtractableText.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*PlainTextDocument, error) {
	start := time.Now()

	pages, err := readPages(data, e.opts)
	source := SourceReader
	if err != nil || isBlank(pages) {
		if err != nil {
			e.logger.Warn("Primary text reader failed, using layout engine",
				zap.Error(err),
			)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		fallback, ferr := layoutPages(data, e.opts)
		switch {
		case ferr == nil:
			pages, source = fallback, SourceLayout
		case err != nil:
			return nil, fmt.Errorf("failed to extract text: %w", ferr)
		}
	}

	doc := &PlainTextDocument{Pages: pages, Source: source}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	doc.Text = strings.TrimSpace(strings.Join(parts, "\n\n"))
	if doc.Text == "" {
		return nil, ErrNoExtractableText
	}

	e.logger.Debug("Text extracted",
		zap.Int("pages", len(pages)),
		zap.Int("characters", len(doc.Text)),
		zap.String("source", string(source)),
		zap.Duration("duration", time.Since(start)),
	)
	return doc, nil
}

// Extract is a convenience wrapper around a default Extractor
func Extract(data []byte, opts Options) (*PlainTextDocument, error) {
	return New(opts, nil).Extract(context.Background(), data)
}

func isBlank(pages []Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// readPages extracts every page with the tolerant reader. The reader panics
// on some malformed files; that is reported as an error.
func readPages(data []byte, opts Options) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	return collectPages(r.NumPage(), func(i int) ([]lpdf.Text, bool) {
		p := r.Page(i)
		if p.V.IsNull() {
			return nil, false
		}
		return p.Content().Text, true
	}, opts), nil
}

// collectPages builds pages 1..n from the text runs of each. A page the
// reader cannot resolve is kept as an empty page so numbering stays aligned
// with the layout engine.
func collectPages(n int, runs func(i int) ([]lpdf.Text, bool), opts Options) []Page {
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		texts, ok := runs(i)
		if !ok {
			pages = append(pages, Page{Number: i})
			continue
		}
		text := strings.Join(groupRows(texts, opts.RowTolerance), "\n")
		if opts.FilterLineNumbers {
			text = FilterLineNumbers(text)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages
}

// layoutPages extracts every page with the redactor's own layout engine
func layoutPages(data []byte, opts Options) ([]Page, error) {
	doc, err := pdf.Open(data)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, doc.NumPages())
	for i := 1; i <= doc.NumPages(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		text, err := page.Text()
		if err != nil {
			return nil, err
		}
		if opts.FilterLineNumbers {
			text = FilterLineNumbers(text)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

type row struct {
	y     float64
	items []lpdf.Text
}

// groupRows assembles text runs into lines, top to bottom and left to right.
// A space is inserted where the gap between two runs is wider than a fraction
// of the font size.
func groupRows(texts []lpdf.Text, tolerance float64) []string {
	var rows []*row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var target *row
		for _, r := range rows {
			if math.Abs(r.y-t.Y) <= tolerance {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: t.Y}
			rows = append(rows, target)
		}
		target.items = append(target.items, t)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].y > rows[j].y
	})

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.items, func(i, j int) bool {
			return r.items[i].X < r.items[j].X
		})

		var b strings.Builder
		for i, t := range r.items {
			if i > 0 {
				prev := r.items[i-1]
				size := math.Max(math.Min(prev.FontSize, t.FontSize), 1)
				gap := t.X - (prev.X + prev.W)
				if gap > 0.15*size && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t.S)
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return lines
}
