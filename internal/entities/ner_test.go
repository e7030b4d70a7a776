package entities

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testVocab = "[PAD]\n[UNK]\n[CLS]\n[SEP]\nalan\nng\n##oue\n##net\nmet\nacme\ncorp\n.\nin\nparis\n"

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer(strings.NewReader(testVocab), true)
	if err != nil {
		t.Fatalf("NewTokenizer failed: %v", err)
	}
	return tok
}

func TestTokenizer(t *testing.T) {
	tok := newTestTokenizer(t)

	t.Run("WordPieceOffsets", func(t *testing.T) {
		text := "Alan Ngouenet met Acme."
		got := tok.Tokenize(text)
		want := []Token{
			{ID: 4, Start: 0, End: 4, Word: 0},
			{ID: 5, Start: 5, End: 7, Word: 1},
			{ID: 6, Start: 7, End: 10, Word: 1},
			{ID: 7, Start: 10, End: 13, Word: 1},
			{ID: 8, Start: 14, End: 17, Word: 2},
			{ID: 9, Start: 18, End: 22, Word: 3},
			{ID: 11, Start: 22, End: 23, Word: 4},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("UnknownWord", func(t *testing.T) {
		got := tok.Tokenize("Zebra")
		if len(got) != 1 || got[0].ID != 1 || got[0].End != 5 {
			t.Errorf("expected a single [UNK], got %+v", got)
		}
	})

	t.Run("Encode", func(t *testing.T) {
		ids, mask, types := tok.Encode(tok.Tokenize("met"))
		if !reflect.DeepEqual(ids, []int64{2, 8, 3}) {
			t.Errorf("unexpected ids %v", ids)
		}
		if !reflect.DeepEqual(mask, []int64{1, 1, 1}) || !reflect.DeepEqual(types, []int64{0, 0, 0}) {
			t.Errorf("unexpected mask %v or types %v", mask, types)
		}
	})

	t.Run("MissingSpecialTokens", func(t *testing.T) {
		if _, err := NewTokenizer(strings.NewReader("a\nb\n"), false); !errors.Is(err, ErrTokenizationFailed) {
			t.Errorf("expected ErrTokenizationFailed, got %v", err)
		}
	})

	t.Run("CasedVocabulary", func(t *testing.T) {
		cased, err := NewTokenizer(strings.NewReader(testVocab), false)
		if err != nil {
			t.Fatal(err)
		}
		if got := cased.Tokenize("Alan"); got[0].ID != 1 {
			t.Errorf("expected [UNK] for cased lookup, got %+v", got)
		}
	})
}

func TestWindows(t *testing.T) {
	tokens := []Token{
		{Word: 0}, {Word: 1}, {Word: 1}, {Word: 1}, {Word: 2}, {Word: 3}, {Word: 4},
	}

	windows := Windows(tokens, 5)
	var sizes []int
	windowOf := map[int]int{}
	for i, w := range windows {
		sizes = append(sizes, len(w))
		for _, tok := range w {
			if prev, ok := windowOf[tok.Word]; ok && prev != i {
				t.Errorf("word %d split across windows %d and %d", tok.Word, prev, i)
			}
			windowOf[tok.Word] = i
		}
	}
	if !reflect.DeepEqual(sizes, []int{1, 3, 3}) {
		t.Errorf("expected window sizes [1 3 3], got %v", sizes)
	}

	t.Run("OverlongWordTruncated", func(t *testing.T) {
		got := Windows(tokens, 4)
		for _, w := range got {
			if len(w) > 2 {
				t.Errorf("window larger than capacity: %d", len(w))
			}
		}
		if len(got) != 4 {
			t.Errorf("expected 4 windows, got %d", len(got))
		}
	})
}

// fakeClassifier labels tokens by vocabulary id
type fakeClassifier struct {
	labels    map[int64]int
	maxLength int
	calls     int
}

func (f *fakeClassifier) Classify(ctx context.Context, ids, mask, types []int64) ([][]float32, error) {
	f.calls++
	if len(ids) > f.maxLength {
		return nil, errors.New("sequence too long")
	}
	if ids[0] != 2 || ids[len(ids)-1] != 3 {
		return nil, errors.New("missing [CLS]/[SEP]")
	}
	out := make([][]float32, len(ids))
	for i, id := range ids {
		row := make([]float32, len(DefaultLabels))
		row[f.labels[id]] = 10
		out[i] = row
	}
	return out, nil
}

func (f *fakeClassifier) Close() error { return nil }

func newFakeClassifier(maxLength int) *fakeClassifier {
	return &fakeClassifier{
		maxLength: maxLength,
		labels: map[int64]int{
			4:  3, // alan  B-PER
			5:  4, // ng    I-PER
			6:  0, // ##oue O, ignored: first sub-token decides
			9:  5, // acme  B-ORG
			10: 6, // corp  I-ORG
			13: 7, // paris B-LOC
		},
	}
}

func TestNERRecognizer(t *testing.T) {
	text := "Alan Ngouenet met Acme Corp in Paris."
	want := []string{"Alan Ngouenet", "Acme Corp"}

	for _, maxLength := range []int{512, 5} {
		classifier := newFakeClassifier(maxLength)
		rec := NewNERRecognizer(newTestTokenizer(t), classifier, ModelConfig{MaxLength: maxLength, MinScore: 0.5}, zap.NewNop())

		got, err := rec.Recognize(context.Background(), text, []Category{Person, Organization})
		if err != nil {
			t.Fatalf("max_length %d: Recognize failed: %v", maxLength, err)
		}
		var texts []string
		for _, e := range got {
			texts = append(texts, e.Text)
			if text[e.Start:e.End] != e.Text {
				t.Errorf("entity %q does not match its offsets", e.Text)
			}
			if e.Score < 0.99 {
				t.Errorf("unexpected score %f", e.Score)
			}
		}
		if !reflect.DeepEqual(texts, want) {
			t.Errorf("max_length %d: expected %v, got %v", maxLength, want, texts)
		}
		if maxLength == 5 && classifier.calls != 4 {
			t.Errorf("expected 4 windows, got %d", classifier.calls)
		}
	}

	t.Run("LocationsOnRequest", func(t *testing.T) {
		rec := NewNERRecognizer(newTestTokenizer(t), newFakeClassifier(512), ModelConfig{}, zap.NewNop())
		got, err := rec.Recognize(context.Background(), text, []Category{Location})
		if err != nil || len(got) != 1 || got[0].Text != "Paris" {
			t.Errorf("expected Paris, got %+v (%v)", got, err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := NewNERRecognizer(newTestTokenizer(t), newFakeClassifier(512), ModelConfig{}, zap.NewNop())
		if _, err := rec.Recognize(ctx, text, DefaultCategories); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestDecodeEntities(t *testing.T) {
	text := "Ann Lee met Bob at Acme"
	words := func(labels ...string) []wordLabel {
		spans := [][2]int{{0, 3}, {4, 7}, {8, 11}, {12, 15}, {16, 18}, {19, 23}}
		out := make([]wordLabel, len(labels))
		for i, l := range labels {
			out[i] = wordLabel{start: spans[i][0], end: spans[i][1], label: l, score: 1}
		}
		return out
	}
	all := categorySet(AllCategories)

	tests := []struct {
		name   string
		labels []string
		want   []string
	}{
		{"BIO", []string{"B-PER", "I-PER", "O", "B-PER", "O", "B-ORG"}, []string{"Ann Lee", "Bob", "Acme"}},
		{"AdjacentBegins", []string{"B-PER", "B-PER", "O", "O", "O", "O"}, []string{"Ann", "Lee"}},
		{"DanglingInside", []string{"O", "I-PER", "O", "O", "O", "I-ORG"}, []string{"Lee", "Acme"}},
		{"TypeChange", []string{"B-PER", "I-ORG", "O", "O", "O", "O"}, []string{"Ann", "Lee"}},
		{"MiscBreaksEntity", []string{"B-PER", "I-MISC", "O", "O", "O", "O"}, []string{"Ann"}},
		{"BIOES", []string{"B-PER", "E-PER", "O", "S-PER", "O", "U-ORG"}, []string{"Ann Lee", "Bob", "Acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range decodeEntities(text, words(tt.labels...), all, 0) {
				got = append(got, e.Text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("MinScore", func(t *testing.T) {
		w := words("B-PER", "I-PER", "O", "B-PER", "O", "O")
		w[3].score = 0.3
		got := decodeEntities(text, w, all, 0.5)
		if len(got) != 1 || got[0].Text != "Ann Lee" {
			t.Errorf("expected only Ann Lee, got %+v", got)
		}
	})
}

func TestArgmax(t *testing.T) {
	best, score := argmax([]float32{0, 0, 0})
	if best != 0 || score < 0.33 || score > 0.34 {
		t.Errorf("unexpected uniform result %d %f", best, score)
	}
	best, score = argmax([]float32{-1, 5, 2})
	if best != 1 || score < 0.9 {
		t.Errorf("unexpected result %d %f", best, score)
	}
}
