package entities

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxWordRunes = 100

// Token is one WordPiece sub-token. Start and End are byte offsets into the
// tokenized text; Word is the index of the whitespace/punctuation word the
// token belongs to.
type Token struct {
	ID    int64
	Start int
	End   int
	Word  int
}

// Tokenizer is a BERT WordPiece tokenizer that keeps character offsets
type Tokenizer struct {
	vocab     map[string]int64
	lowercase bool
	unkID     int64
	clsID     int64
	sepID     int64
}

// LoadVocab reads a vocab.txt file (one token per line, line number is id)
func LoadVocab(path string, lowercase bool) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab: %w", err)
	}
	defer f.Close()
	return NewTokenizer(f, lowercase)
}

// NewTokenizer builds a tokenizer from vocab lines
func NewTokenizer(r io.Reader, lowercase bool) (*Tokenizer, error) {
	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(r)
	var id int64
	for scanner.Scan() {
		tok := strings.TrimRight(scanner.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read vocab: %v", ErrTokenizationFailed, err)
	}

	t := &Tokenizer{vocab: vocab, lowercase: lowercase}
	for _, special := range []struct {
		name string
		dst  *int64
	}{{"[UNK]", &t.unkID}, {"[CLS]", &t.clsID}, {"[SEP]", &t.sepID}} {
		v, ok := vocab[special.name]
		if !ok {
			return nil, fmt.Errorf("%w: vocab has no %s token", ErrTokenizationFailed, special.name)
		}
		*special.dst = v
	}
	return t, nil
}

// Tokenize splits text into WordPiece tokens
func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	for wi, w := range splitWords(text) {
		for _, p := range t.wordPiece(text[w[0]:w[1]]) {
			tokens = append(tokens, Token{ID: p.id, Start: w[0] + p.start, End: w[0] + p.end, Word: wi})
		}
	}
	return tokens
}

// Encode wraps a window in [CLS] ... [SEP] and returns the model inputs
func (t *Tokenizer) Encode(window []Token) (ids, mask, types []int64) {
	n := len(window) + 2
	ids = make([]int64, 0, n)
	mask = make([]int64, n)
	types = make([]int64, n)

	ids = append(ids, t.clsID)
	for _, tok := range window {
		ids = append(ids, tok.ID)
	}
	ids = append(ids, t.sepID)
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask, types
}

type piece struct {
	id         int64
	start, end int
}

// wordPiece is greedy longest-match-first over the vocabulary. A word that
// cannot be fully covered becomes a single [UNK].
func (t *Tokenizer) wordPiece(word string) []piece {
	offsets := make([]int, 0, len(word)+1)
	for i := range word {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(word))
	n := len(offsets) - 1

	unknown := []piece{{id: t.unkID, start: 0, end: len(word)}}
	if n > maxWordRunes {
		return unknown
	}

	var pieces []piece
	for start := 0; start < n; {
		end := n
		found := false
		var id int64
		for end > start {
			sub := word[offsets[start]:offsets[end]]
			if t.lowercase {
				sub = strings.ToLower(sub)
			}
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := t.vocab[sub]; ok {
				id, found = v, true
				break
			}
			end--
		}
		if !found {
			return unknown
		}
		pieces = append(pieces, piece{id: id, start: offsets[start], end: offsets[end]})
		start = end
	}
	return pieces
}

// splitWords returns byte spans of words. Whitespace separates words and every
// punctuation character is a word of its own.
func splitWords(text string) [][2]int {
	var words [][2]int
	start := -1
	for i, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError:
			if start >= 0 {
				words = append(words, [2]int{start, i})
				start = -1
			}
		case isPunctuation(r):
			if start >= 0 {
				words = append(words, [2]int{start, i})
				start = -1
			}
			words = append(words, [2]int{i, i + utf8.RuneLen(r)})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, [2]int{start, len(text)})
	}
	return words
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// Windows groups tokens into model-sized windows of at most maxLength-2
// tokens. Windows never split a word; a single word longer than a window is
// truncated.
func Windows(tokens []Token, maxLength int) [][]Token {
	capacity := maxLength - 2
	if capacity < 1 {
		capacity = 1
	}

	var windows [][]Token
	var cur []Token
	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && tokens[j].Word == tokens[i].Word {
			j++
		}
		group := tokens[i:j]
		if len(group) > capacity {
			group = group[:capacity]
		}
		if len(cur)+len(group) > capacity {
			windows = append(windows, cur)
			cur = nil
		}
		cur = append(cur, group...)
		i = j
	}
	if len(cur) > 0 {
		windows = append(windows, cur)
	}
	return windows
}
