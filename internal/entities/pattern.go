package entities

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

const usStates = `AL|AK|AZ|AR|CA|CO|CT|DE|DC|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY`

// rule captures an entity in group 1 of its pattern
type rule struct {
	name     string
	category Category
	pattern  *regexp.Regexp
}

var defaultRules = []rule{
	{
		name:     "speaker_label",
		category: Person,
		pattern:  regexp.MustCompile(`(?m)^[ \t]*(?:BY[ \t]+)?(?:MR|MRS|MS|MISS|DR)\.?[ \t]+([A-Z][A-Z'’-]+(?:[ \t]+[A-Z][A-Z'’-]+)?)[ \t]*:`),
	},
	{
		name:     "honorific",
		category: Person,
		pattern:  regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof|Judge|Justice|Officer|Detective|Sgt|Sergeant)\.?[ \t]+((?:[A-Z]\.[ \t]*|[A-Z][\p{Ll}'’-]+[ \t]+)?[A-Z][\p{Ll}'’-]*\p{Ll})`),
	},
	{
		name:     "corporate_suffix",
		category: Organization,
		pattern:  regexp.MustCompile(`((?:\b[A-Z][\p{L}&'’-]*[ \t]+){0,3}\b[A-Z][\p{L}&'’-]*,?[ \t]+(?:Inc|LLC|Ltd|Corp|Corporation|Company|Co|LLP|PLC|GmbH|Group|Holdings|Partners|Associates))\b`),
	},
	{
		name:     "city_state",
		category: GeopoliticalEntity,
		pattern:  regexp.MustCompile(`\b([A-Z][\p{Ll}]+(?:[ \t]+[A-Z][\p{Ll}]+)?,[ \t]*(?:` + usStates + `))\b`),
	},
}

// leading words that start a sentence rather than a name
var leadingStopWords = map[string]bool{"The": true, "A": true, "An": true, "And": true, "At": true, "For": true, "With": true, "By": true}

// PatternRecognizer finds entities with transcript-oriented heuristics:
// speaker labels such as "MR. SMITH:", honorific + name, corporate suffixes
// and "City, ST" place names. It needs no model.
type PatternRecognizer struct {
	rules []rule
}

// NewPatternRecognizer creates a recognizer with the built-in rules
func NewPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{rules: defaultRules}
}

// Name returns the recognizer name
func (p *PatternRecognizer) Name() string {
	return "pattern"
}

// Recognize runs every rule of the requested categories
func (p *PatternRecognizer) Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error) {
	wanted := categorySet(categories)
	var found []Entity
	for _, r := range p.rules {
		if !wanted[r.category] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if start < 0 {
				continue
			}
			start = trimLeadingStopWords(text, start, end)
			if start >= end {
				continue
			}
			found = append(found, Entity{Text: text[start:end], Category: r.category, Start: start, End: end, Score: 1})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found, nil
}

func trimLeadingStopWords(text string, start, end int) int {
	for {
		span := text[start:end]
		sp := strings.IndexAny(span, " \t")
		if sp < 0 || !leadingStopWords[span[:sp]] {
			return start
		}
		start += sp
		for start < end && (text[start] == ' ' || text[start] == '\t') {
			start++
		}
	}
}

// Close is a no-op
func (p *PatternRecognizer) Close() error {
	return nil
}
