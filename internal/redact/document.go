package redact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"github.com/raaihank/transcript-scrubber/internal/terms"
	"go.uber.org/zap"
)

// Page is the view of a PDF page the document redactor works on
type Page interface {
	Search(needle string, opts pdf.SearchOptions) ([]pdf.Rect, error)
	Capabilities() pdf.Capabilities
	AddRedaction(d pdf.Directive)
	ApplyRedactions() (pdf.ApplyResult, error)
}

// Document is a paged, writable PDF
type Document interface {
	NumPages() int
	Page(n int) (Page, error)
	Save(w io.Writer, compact bool) error
}

// Opener parses PDF bytes into a Document
type Opener func(data []byte) (Document, error)

// OpenPDF opens data with the built-in PDF engine
func OpenPDF(data []byte) (Document, error) {
	doc, err := pdf.Open(data)
	if err != nil {
		return nil, err
	}
	return pdfDocument{doc}, nil
}

type pdfDocument struct {
	*pdf.Document
}

func (d pdfDocument) Page(n int) (Page, error) {
	p, err := d.Document.Page(n)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DocumentRedactor removes every occurrence of a term set from a PDF
type DocumentRedactor struct {
	open   Opener
	logger *zap.Logger
}

// NewDocumentRedactor creates a redactor. A nil opener selects OpenPDF.
func NewDocumentRedactor(open Opener, logger *zap.Logger) *DocumentRedactor {
	if open == nil {
		open = OpenPDF
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRedactor{open: open, logger: logger}
}

// Redact locates every term on every page, queues a box over each occurrence
// and commits the page before moving on. The redacted document is returned
// as new bytes; the page count never changes.
func (r *DocumentRedactor) Redact(ctx context.Context, data []byte, set terms.TermSet, opts DocumentOptions) (*DocumentResult, error) {
	start := time.Now()
	if strings.TrimSpace(opts.Replacement) == "" {
		opts.Replacement = DefaultReplacement
	}

	doc, err := r.open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	result := &DocumentResult{Pages: doc.NumPages()}
	for n := 1; n <= doc.NumPages(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report, err := r.redactPage(doc, n, set, opts)
		if err != nil {
			return nil, err
		}
		result.Regions += report.Regions
		result.Glyphs += report.Glyphs
		if report.Regions > 0 {
			result.Reports = append(result.Reports, report)
		}
	}

	var out bytes.Buffer
	if err := doc.Save(&out, opts.Compact); err != nil {
		return nil, fmt.Errorf("failed to save redacted document: %w", err)
	}
	result.Data = out.Bytes()

	r.logger.Info("Document redacted",
		zap.Int("pages", result.Pages),
		zap.Int("terms", set.Len()),
		zap.Int("regions", result.Regions),
		zap.Int("glyphs_removed", result.Glyphs),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (r *DocumentRedactor) redactPage(doc Document, n int, set terms.TermSet, opts DocumentOptions) (PageReport, error) {
	report := PageReport{Page: n}

	page, err := doc.Page(n)
	if err != nil {
		return report, fmt.Errorf("failed to load page %d: %w", n, err)
	}

	overlay := ""
	if opts.Overlay {
		overlay = opts.Replacement
	}

	caps := page.Capabilities()
	var rects []pdf.Rect
	for _, t := range set.Terms() {
		found, err := locate(page, t.Text, caps, opts)
		if err != nil {
			return report, fmt.Errorf("failed to search page %d: %w", n, err)
		}
		rects = append(rects, found...)
	}
	for i, rect := range rects {
		if covered(rects, i) {
			continue
		}
		page.AddRedaction(pdf.Directive{
			Rect:      rect,
			Fill:      opts.Fill,
			TextColor: opts.TextColor,
			Overlay:   overlay,
		})
	}

	res, err := page.ApplyRedactions()
	if err != nil {
		return report, fmt.Errorf("failed to apply redactions on page %d: %w", n, err)
	}
	report.Regions = res.Regions
	report.Glyphs = res.Glyphs

	if res.Regions > 0 {
		r.logger.Debug("Page redacted",
			zap.Int("page", n),
			zap.Int("regions", res.Regions),
			zap.Int("glyphs_removed", res.Glyphs),
		)
	}
	return report, nil
}

// covered reports whether rects[i] lies inside another of rects. Of two equal
// rects the first one is kept. A label painted over a region that a larger
// one already fills would be drawn on top of the larger label.
func covered(rects []pdf.Rect, i int) bool {
	for j, o := range rects {
		if j == i || !o.Covers(rects[i]) {
			continue
		}
		if j < i || !rects[i].Covers(o) {
			return true
		}
	}
	return false
}

// locate finds the regions of term on page case-insensitively. Pages that
// cannot search case-insensitively are searched for the literal, lower-case
// and upper-case spellings; other mixed-case spellings are missed there.
func locate(page Page, term string, caps pdf.Capabilities, opts DocumentOptions) ([]pdf.Rect, error) {
	search := pdf.SearchOptions{
		WholeWords:  opts.WholeWords,
		Dehyphenate: opts.Dehyphenate && caps.Dehyphenate,
	}

	if caps.IgnoreCase {
		search.IgnoreCase = true
		return page.Search(term, search)
	}

	var rects []pdf.Rect
	seen := make(map[pdf.Rect]bool)
	tried := make(map[string]bool)
	for _, variant := range []string{term, strings.ToLower(term), strings.ToUpper(term)} {
		if tried[variant] {
			continue
		}
		tried[variant] = true

		found, err := page.Search(variant, search)
		if err != nil {
			return nil, err
		}
		for _, rect := range found {
			if !seen[rect] {
				seen[rect] = true
				rects = append(rects, rect)
			}
		}
	}
	return rects, nil
}
