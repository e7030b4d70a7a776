package entities

import (
	"math"
	"strings"
)

// DefaultLabels is the CoNLL-03 id2label order used by common BERT NER models
var DefaultLabels = []string{"O", "B-MISC", "I-MISC", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC"}

// wordLabel is the prediction for one word, taken from its first sub-token
type wordLabel struct {
	start, end int
	label      string
	score      float32
}

func labelCategory(tag string) (Category, bool) {
	switch strings.ToUpper(tag) {
	case "PER", "PERSON":
		return Person, true
	case "ORG", "ORGANIZATION":
		return Organization, true
	case "LOC", "LOCATION":
		return Location, true
	case "GPE":
		return GeopoliticalEntity, true
	}
	return "", false
}

// splitLabel splits "B-PER" into 'B' and "PER". BIOES prefixes are folded
// into BIO: S and U begin, E continues.
func splitLabel(label string) (byte, string) {
	if len(label) < 2 || label[1] != '-' {
		return 'O', ""
	}
	switch label[0] {
	case 'B', 'S', 'U':
		return 'B', label[2:]
	case 'I', 'E':
		return 'I', label[2:]
	}
	return 'O', ""
}

// decodeEntities merges BIO-labelled words into entity spans of text
func decodeEntities(text string, words []wordLabel, wanted map[Category]bool, minScore float32) []Entity {
	var out []Entity
	var cur *Entity
	var curTag string
	var total float32
	var count int

	flush := func() {
		if cur == nil {
			return
		}
		cur.Score = total / float32(count)
		cur.Text = text[cur.Start:cur.End]
		if wanted[cur.Category] && cur.Score >= minScore {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, w := range words {
		prefix, tag := splitLabel(w.label)
		cat, ok := labelCategory(tag)
		switch {
		case prefix == 'O' || !ok:
			flush()
		case prefix == 'I' && cur != nil && curTag == tag:
			cur.End = w.end
			total += w.score
			count++
		default:
			flush()
			cur = &Entity{Category: cat, Start: w.start, End: w.end}
			curTag = tag
			total, count = w.score, 1
		}
	}
	flush()
	return out
}

// argmax returns the best label index and its softmax probability
func argmax(logits []float32) (int, float32) {
	if len(logits) == 0 {
		return 0, 0
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - logits[best]))
	}
	return best, float32(1 / sum)
}
