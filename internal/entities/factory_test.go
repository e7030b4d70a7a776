package entities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/cache"
	"github.com/raaihank/transcript-scrubber/internal/gazetteer"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"Pattern", Config{Type: TypePattern}, false},
		{"UnknownType", Config{Type: "spacy"}, true},
		{"ONNXWithoutModel", Config{Type: TypeONNX}, true},
		{"ONNX", Config{Type: TypeONNX, Model: ModelConfig{ModelPath: "m.onnx", VocabPath: "vocab.txt"}}, false},
		{"ONNXTinyWindow", Config{Type: TypeONNX, Model: ModelConfig{ModelPath: "m.onnx", VocabPath: "vocab.txt", MaxLength: 2}}, true},
		{"GazetteerWithoutSource", Config{Type: TypeGazetteer}, true},
		{"Gazetteer", Config{Type: TypeGazetteer, Gazetteer: gazetteer.Config{Path: "names.csv"}}, false},
		{"OpenAIWithoutKey", Config{Type: TypeOpenAI}, true},
		{"RedisCacheWithoutURL", Config{Type: TypePattern, Cache: cache.Config{Enabled: true, Backend: cache.BackendRedis}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfigError) {
				t.Errorf("expected ErrConfigError, got %v", err)
			}
		})
	}
}

func TestNewRecognizer(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("PatternWithMemoryCache", func(t *testing.T) {
		rec, err := NewRecognizer(ctx, Config{
			Type:  TypePattern,
			Cache: cache.Config{Enabled: true, Backend: cache.BackendMemory},
		}, logger)
		if err != nil {
			t.Fatalf("NewRecognizer failed: %v", err)
		}
		defer rec.Close()
		if _, ok := rec.(*CachedRecognizer); !ok {
			t.Errorf("expected cached recognizer, got %T", rec)
		}
		if rec.Name() != "pattern" {
			t.Errorf("unexpected name %s", rec.Name())
		}
	})

	t.Run("GazetteerFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "names.csv")
		if err := os.WriteFile(path, []byte("text,category\nAlan Ngouenet,PERSON\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		rec, err := NewRecognizer(ctx, Config{Type: TypeGazetteer, Gazetteer: gazetteer.Config{Path: path}}, logger)
		if err != nil {
			t.Fatalf("NewRecognizer failed: %v", err)
		}
		got, err := NewExtractor(rec, logger).Extract(ctx, "Q. Was alan ngouenet there?", nil)
		if err != nil || len(got) != 1 || got[0] != "alan ngouenet" {
			t.Errorf("expected the document spelling, got %v (%v)", got, err)
		}
	})

	t.Run("MissingModelIsUnavailable", func(t *testing.T) {
		model := NewModel(NewLoader(Config{
			Type:  TypeONNX,
			Model: ModelConfig{ModelPath: "missing.onnx", VocabPath: filepath.Join(t.TempDir(), "missing.txt")},
		}, logger), logger)
		if _, err := model.Extract(ctx, "text", nil); !errors.Is(err, ErrModelUnavailable) {
			t.Errorf("expected ErrModelUnavailable, got %v", err)
		}
	})
}
