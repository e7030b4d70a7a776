package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/redact"
	"github.com/raaihank/transcript-scrubber/internal/terms"
)

// Mode selects where redaction terms come from
type Mode string

const (
	// ModeManual redacts only the terms given in the request
	ModeManual Mode = "manual"
	// ModeAuto also redacts entities detected in the text
	ModeAuto Mode = "auto"
)

// ParseMode accepts "manual" or "auto"; empty means manual
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeManual:
		return ModeManual, nil
	case ModeAuto:
		return ModeAuto, nil
	}
	return "", fmt.Errorf("invalid mode %q (must be manual or auto)", s)
}

// Artifact names and content types
const (
	TextArtifactName        = "redacted_transcript.txt"
	TextContentType         = "text/plain; charset=utf-8"
	DocumentArtifactName    = "redacted_transcript.pdf"
	DocumentContentType     = "application/pdf"
	DefaultPreviewChars     = 20000
	DefaultPreviewTermLimit = 500
)

// Request is one document to scrub
type Request struct {
	Document []byte
	Mode     Mode
	// Terms is the raw comma or newline separated term list
	Terms      string
	Categories []entities.Category
	// Replacement defaults to the configured token when blank
	Replacement    string
	RedactDocument bool
}

// Artifact is a downloadable output
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// ArtifactError reports that one artifact could not be produced
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a run. Either artifact may be missing, in which
// case its error field says why.
type Result struct {
	Mode         Mode                   `json:"mode"`
	Replacement  string                 `json:"replacement"`
	Categories   []entities.Category    `json:"categories,omitempty"`
	Source       extract.Source         `json:"source"`
	Pages        int                    `json:"pages"`
	OriginalText string                 `json:"-"`
	Terms        terms.TermSet          `json:"-"`
	Text         redact.TextResult      `json:"-"`
	Document     *redact.DocumentResult `json:"document,omitempty"`

	TextArtifact     *Artifact `json:"-"`
	DocumentArtifact *Artifact `json:"-"`
	TextErr          error     `json:"-"`
	DocumentErr      error     `json:"-"`

	Duration time.Duration `json:"duration"`
}

// Preview truncates s to at most limit characters
func Preview(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// TermPreview returns at most limit term strings
func (r *Result) TermPreview(limit int) []string {
	list := r.Terms.Strings()
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Config holds pipeline defaults
type Config struct {
	Replacement     string                 `mapstructure:"replacement"`
	Categories      []entities.Category    `mapstructure:"categories"`
	DocumentOptions redact.DocumentOptions `mapstructure:"document"`
	Extraction      extract.Options        `mapstructure:"extraction"`
}

// DefaultConfig returns the built-in pipeline defaults
func DefaultConfig() Config {
	return Config{
		Replacement:     redact.DefaultReplacement,
		Categories:      entities.DefaultCategories,
		DocumentOptions: redact.DefaultDocumentOptions(),
		Extraction:      extract.DefaultOptions(),
	}
}
