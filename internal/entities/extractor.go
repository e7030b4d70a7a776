package entities

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Extractor reduces recognizer output to the distinct literal strings that
// should be redacted.
type Extractor struct {
	recognizer Recognizer
	logger     *zap.Logger
}

// NewExtractor wraps a recognizer
func NewExtractor(recognizer Recognizer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{recognizer: recognizer, logger: logger}
}

// Extract returns the distinct entity strings of the given categories in the
// order they first appear. Strings are compared exactly; "ACME" and "Acme" are
// both returned.
func (e *Extractor) Extract(ctx context.Context, text string, categories []Category) ([]string, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	found, err := e.recognizer.Recognize(ctx, text, categories)
	if err != nil {
		return nil, err
	}

	wanted := categorySet(categories)
	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, ent := range found {
		if !wanted[ent.Category] {
			continue
		}
		v := strings.TrimSpace(ent.Text)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}

	e.logger.Debug("Entities extracted",
		zap.String("recognizer", e.recognizer.Name()),
		zap.Int("entities", len(found)),
		zap.Int("distinct", len(out)))

	return out, nil
}
