package redact

import (
	"github.com/raaihank/transcript-scrubber/internal/matcher"
)

// RedactText applies policy to text and counts the replacements per term.
// Findings follow the term order of the policy and omit terms that never
// matched.
func RedactText(text string, policy *matcher.Policy) TextResult {
	if policy == nil || policy.IsEmpty() {
		return TextResult{Text: text, Findings: []Finding{}}
	}

	matches := policy.FindAll(text)
	set := policy.Terms()
	counts := make([]int, set.Len())
	for _, m := range matches {
		counts[m.Term]++
	}

	findings := make([]Finding, 0)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		t := set.At(i)
		findings = append(findings, Finding{
			Term:       t.Text,
			Provenance: t.Provenance,
			Count:      c,
		})
	}

	return TextResult{
		Text:     policy.Replace(text),
		Findings: findings,
		Total:    len(matches),
	}
}
