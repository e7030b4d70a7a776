package redact

import (
	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"github.com/raaihank/transcript-scrubber/internal/terms"
)

// DefaultReplacement is used when no replacement token is configured
const DefaultReplacement = "[REDACTED]"

// Finding reports how often a single term was replaced
type Finding struct {
	Term       string           `json:"term"`
	Provenance terms.Provenance `json:"provenance"`
	Count      int              `json:"count"`
}

// TextResult contains the result of redacting plain text
type TextResult struct {
	Text     string    `json:"text"`
	Findings []Finding `json:"findings"`
	Total    int       `json:"total"`
}

// Color is an RGB colour with components in [0,1]
type Color = pdf.Color

// DocumentOptions controls how a PDF is redacted
type DocumentOptions struct {
	Replacement string `json:"replacement" mapstructure:"replacement"`
	// Overlay writes the replacement token inside each filled box
	Overlay    bool  `json:"overlay" mapstructure:"overlay"`
	Fill       Color `json:"fill" mapstructure:"fill"`
	TextColor  Color `json:"textColor" mapstructure:"text_color"`
	WholeWords bool  `json:"wholeWords" mapstructure:"whole_words"`
	// Dehyphenate also matches terms broken across lines with a hyphen
	Dehyphenate bool `json:"dehyphenate" mapstructure:"dehyphenate"`
	Compact     bool `json:"compact" mapstructure:"compact"`
}

// DefaultDocumentOptions returns the options used when none are configured
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{
		Replacement: DefaultReplacement,
		Overlay:     true,
		Fill:        pdf.Black,
		TextColor:   pdf.White,
		WholeWords:  true,
		Dehyphenate: true,
		Compact:     true,
	}
}

// PageReport summarises what was removed from one page
type PageReport struct {
	Page    int `json:"page"`
	Regions int `json:"regions"`
	Glyphs  int `json:"glyphs"`
}

// DocumentResult is the outcome of redacting a PDF
type DocumentResult struct {
	Data    []byte       `json:"-"`
	Pages   int          `json:"pages"`
	Regions int          `json:"regions"`
	Glyphs  int          `json:"glyphs"`
	Reports []PageReport `json:"reports,omitempty"`
}
