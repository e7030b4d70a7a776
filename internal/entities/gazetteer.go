package entities

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/gazetteer"
	"github.com/raaihank/transcript-scrubber/internal/matcher"
	"github.com/raaihank/transcript-scrubber/internal/terms"
)

// GazetteerRecognizer finds known entities from a dictionary. Matching uses
// the same word-bounded, case-insensitive rules as redaction, and results
// carry the spelling found in the text.
type GazetteerRecognizer struct {
	policies map[Category]*matcher.Policy
	size     int
}

// NewGazetteerRecognizer compiles entries per category. Entries with an
// unknown category are skipped.
func NewGazetteerRecognizer(entries []gazetteer.Entry, logger *zap.Logger) *GazetteerRecognizer {
	byCategory := map[Category][]terms.Term{}
	skipped := 0
	for _, e := range entries {
		c, err := ParseCategory(e.Category)
		if err != nil {
			skipped++
			continue
		}
		byCategory[c] = append(byCategory[c], terms.Term{Text: e.Text, Provenance: terms.Detected})
	}

	g := &GazetteerRecognizer{policies: make(map[Category]*matcher.Policy, len(byCategory))}
	for c, list := range byCategory {
		set := terms.New(list...)
		g.policies[c] = matcher.Compile(set, "")
		g.size += set.Len()
	}

	if skipped > 0 {
		logger.Warn("Gazetteer entries with unknown category skipped", zap.Int("skipped", skipped))
	}
	logger.Info("Gazetteer compiled", zap.Int("entries", g.size), zap.Int("categories", len(g.policies)))
	return g
}

// Name returns the recognizer name
func (g *GazetteerRecognizer) Name() string {
	return "gazetteer"
}

// Size returns the number of distinct entries
func (g *GazetteerRecognizer) Size() int {
	return g.size
}

// Recognize finds every dictionary entry of the requested categories
func (g *GazetteerRecognizer) Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error) {
	wanted := categorySet(categories)
	var found []Entity
	for _, c := range AllCategories {
		policy, ok := g.policies[c]
		if !ok || !wanted[c] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range policy.FindAll(text) {
			found = append(found, Entity{Text: text[m.Start:m.End], Category: c, Start: m.Start, End: m.End, Score: 1})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found, nil
}

// Close is a no-op
func (g *GazetteerRecognizer) Close() error {
	return nil
}
