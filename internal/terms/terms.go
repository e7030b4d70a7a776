package terms

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/raaihank/transcript-scrubber/internal/textutil"
)

// Provenance records where a term came from
type Provenance string

const (
	// Manual terms were typed in by the user
	Manual Provenance = "manual"
	// Detected terms were produced by entity recognition
	Detected Provenance = "detected"
)

// Term is a literal string targeted for redaction
type Term struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`
}

// Len returns the length of the term in characters
func (t Term) Len() int {
	return utf8.RuneCountInString(t.Text)
}

// key is the case-insensitive identity of a term
func (t Term) key() string {
	return textutil.FoldString(t.Text)
}

// TermSet is an immutable, de-duplicated sequence of terms ordered longest
// first. Terms of equal length keep the order they were added in.
type TermSet struct {
	terms []Term
}

// New builds a TermSet from terms in priority order. Blank terms are dropped,
// surrounding whitespace is trimmed and later case-insensitive duplicates of an
// earlier term are discarded.
func New(terms ...Term) TermSet {
	seen := make(map[string]bool, len(terms))
	cleaned := make([]Term, 0, len(terms))

	for _, t := range terms {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		k := t.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		cleaned = append(cleaned, t)
	}

	// Longer phrases must precede the shorter phrases they contain
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Len() > cleaned[j].Len()
	})

	return TermSet{terms: cleaned}
}

// Normalize splits user-entered text on runs of commas and newlines and
// returns the resulting manual terms.
func Normalize(raw string) TermSet {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	list := make([]Term, 0, len(parts))
	for _, p := range parts {
		list = append(list, Term{Text: p, Provenance: Manual})
	}
	return New(list...)
}

// FromDetected builds a TermSet out of recognizer output
func FromDetected(entities []string) TermSet {
	list := make([]Term, 0, len(entities))
	for _, e := range entities {
		list = append(list, Term{Text: e, Provenance: Detected})
	}
	return New(list...)
}

// Merge combines sets. When two sets hold the same term, the one from the
// earlier set is kept.
func Merge(sets ...TermSet) TermSet {
	var all []Term
	for _, s := range sets {
		all = append(all, s.terms...)
	}
	return New(all...)
}

// Len returns the number of terms in the set
func (s TermSet) Len() int {
	return len(s.terms)
}

// IsEmpty reports whether the set holds no terms
func (s TermSet) IsEmpty() bool {
	return len(s.terms) == 0
}

// Terms returns a copy of the ordered terms
func (s TermSet) Terms() []Term {
	out := make([]Term, len(s.terms))
	copy(out, s.terms)
	return out
}

// Strings returns the literal text of every term in order
func (s TermSet) Strings() []string {
	out := make([]string, len(s.terms))
	for i, t := range s.terms {
		out[i] = t.Text
	}
	return out
}

// At returns the i-th term
func (s TermSet) At(i int) Term {
	return s.terms[i]
}
