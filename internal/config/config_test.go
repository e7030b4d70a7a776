package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
	"github.com/raaihank/transcript-scrubber/internal/redact"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	if err := validateConfig(GetDefaults()); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  read_timeout: 5s
redaction:
  replacement: "###"
  mode: auto
  categories: [PER, GPE]
  document:
    overlay: false
    whole_words: false
extraction:
  filter_line_numbers: true
entities:
  type: pattern
  cache:
    enabled: true
    backend: memory
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	// untouched keys keep their defaults
	if cfg.Server.MaxUploadSize != GetDefaults().Server.MaxUploadSize {
		t.Errorf("max upload size = %d", cfg.Server.MaxUploadSize)
	}
	if cfg.Redaction.Mode != "auto" || cfg.Redaction.Replacement != "###" {
		t.Errorf("redaction = %+v", cfg.Redaction)
	}
	if cfg.Redaction.Document.Overlay || cfg.Redaction.Document.WholeWords {
		t.Errorf("document options not applied: %+v", cfg.Redaction.Document)
	}
	if !cfg.Redaction.Document.Dehyphenate {
		t.Error("dehyphenate default lost")
	}
	if !cfg.Extraction.FilterLineNumbers {
		t.Error("filter_line_numbers not applied")
	}
	if !cfg.Entities.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	p := cfg.Pipeline()
	if p.Replacement != "###" || p.DocumentOptions.Replacement != "###" {
		t.Errorf("pipeline replacement = %q / %q", p.Replacement, p.DocumentOptions.Replacement)
	}
	want := []entities.Category{entities.Person, entities.GeopoliticalEntity}
	if len(p.Categories) != len(want) || p.Categories[0] != want[0] || p.Categories[1] != want[1] {
		t.Errorf("categories = %v, want %v", p.Categories, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("SCRUBBER_SERVER_PORT", "9100")
	t.Setenv("SCRUBBER_REDACTION_REPLACEMENT", "[X]")
	t.Setenv("SCRUBBER_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Redaction.Replacement != "[X]" {
		t.Errorf("replacement = %q", cfg.Redaction.Replacement)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad mode", "redaction:\n  mode: everything\n"},
		{"bad category", "redaction:\n  categories: [DATE]\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad recognizer", "entities:\n  type: crystal-ball\n"},
		{"openai without key", "entities:\n  type: openai\n"},
		{"half websocket auth", "websocket:\n  username: admin\n"},
		{"rate limit without rate", "security:\n  rate_limit:\n    enabled: true\n    requests_per_minute: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestPipelineDefaults(t *testing.T) {
	p := GetDefaults().Pipeline()
	if p.Replacement != redact.DefaultReplacement {
		t.Errorf("replacement = %q", p.Replacement)
	}
	if len(p.Categories) != 2 {
		t.Errorf("categories = %v", p.Categories)
	}
	if mode, _ := pipeline.ParseMode(GetDefaults().Redaction.Mode); mode != pipeline.ModeManual {
		t.Errorf("mode = %q", mode)
	}
}
