// Package matcher compiles a term set into a single deterministic,
// case-insensitive, word-bounded matching policy over plain text.
//
// The policy behaves like the alternation
//
//	(?i)(?<!\w)(term1|term2|...)(?!\w)
//
// with every term escaped, scanned leftmost-first. Go's regexp engine has no
// look-around, so the policy is a trie keyed by case-folded runes that checks
// both boundaries itself.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/raaihank/transcript-scrubber/internal/terms"
	"github.com/raaihank/transcript-scrubber/internal/textutil"
)

// Match is one replaced span of the input, in byte offsets
type Match struct {
	Start int `json:"start"`
	End   int `json:"end"`
	// Term is the index of the matched term in the compiled TermSet
	Term int `json:"term"`
}

type node struct {
	children map[rune]*node
	// term is the lowest TermSet index ending at this node, or -1
	term int
}

func newNode() *node {
	return &node{term: -1}
}

// Policy is a compiled matcher. It is immutable and safe for concurrent use.
type Policy struct {
	root        *node
	terms       terms.TermSet
	replacement string
}

// Compile builds a policy from an ordered TermSet. When several terms match at
// the same position the one listed first wins; since TermSets are ordered
// longest first this always prefers the longest phrase. An empty set yields a
// policy that matches nothing.
func Compile(set terms.TermSet, replacement string) *Policy {
	p := &Policy{
		root:        newNode(),
		terms:       set,
		replacement: replacement,
	}

	for i := 0; i < set.Len(); i++ {
		n := p.root
		for _, r := range set.At(i).Text {
			f := textutil.Fold(r)
			if n.children == nil {
				n.children = make(map[rune]*node)
			}
			next, ok := n.children[f]
			if !ok {
				next = newNode()
				n.children[f] = next
			}
			n = next
		}
		if n.term < 0 || i < n.term {
			n.term = i
		}
	}

	return p
}

// Terms returns the term set the policy was compiled from
func (p *Policy) Terms() terms.TermSet {
	return p.terms
}

// Replacement returns the token that replaces every match
func (p *Policy) Replacement() string {
	return p.replacement
}

// IsEmpty reports whether the policy can match anything at all
func (p *Policy) IsEmpty() bool {
	return p.terms.IsEmpty()
}

// FindAll returns every non-overlapping match in text, left to right
func (p *Policy) FindAll(text string) []Match {
	if p.IsEmpty() {
		return nil
	}

	var matches []Match
	prev := rune(-1)
	for i := 0; i < len(text); {
		if prev < 0 || !textutil.IsWordRune(prev) {
			if end, term, ok := p.matchAt(text, i); ok {
				matches = append(matches, Match{Start: i, End: end, Term: term})
				last, _ := utf8.DecodeLastRuneInString(text[:end])
				prev = last
				i = end
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		prev = r
		i += size
	}

	return matches
}

// matchAt walks the trie from byte offset start and returns the end of the
// earliest-listed term that matches there and is followed by a word boundary.
func (p *Policy) matchAt(text string, start int) (end, term int, ok bool) {
	term = -1
	n := p.root
	for i := start; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next, found := n.children[textutil.Fold(r)]
		if !found {
			break
		}
		n = next
		i += size

		if n.term >= 0 && (term < 0 || n.term < term) && boundaryAt(text, i) {
			term = n.term
			end = i
		}
	}

	return end, term, term >= 0
}

// boundaryAt reports whether no word rune starts at byte offset i
func boundaryAt(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !textutil.IsWordRune(r)
}

// Replace returns text with every match replaced by the replacement token
func (p *Policy) Replace(text string) string {
	matches := p.FindAll(text)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(p.replacement)
		last = m.End
	}
	b.WriteString(text[last:])

	return b.String()
}
