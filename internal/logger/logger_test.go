package logger

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		if _, err := New(Config{Level: "loud", Format: "json"}); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "scrubber.log")
		log, err := New(Config{Level: "info", Format: "console", File: &FileConfig{Enabled: true, Path: path}})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		log.WithComponent("test").WithRequestID("req-1").Info("hello")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		for _, want := range []string{`"component":"test"`, `"request_id":"req-1"`, `"msg":"hello"`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("log file missing %s: %s", want, data)
			}
		}
	})
}

func TestSafeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Basic c2VjcmV0")
	h.Set("X-Api-Key", "k")
	h.Set("Content-Type", "application/pdf")
	h["Empty"] = nil

	got := SafeHeaders(h)
	if got["Authorization"] != "[REDACTED]" || got["X-Api-Key"] != "[REDACTED]" {
		t.Errorf("credentials not masked: %v", got)
	}
	if got["Content-Type"] != "application/pdf" {
		t.Errorf("content type = %q", got["Content-Type"])
	}
	if _, ok := got["Empty"]; ok {
		t.Error("empty header should be skipped")
	}
}
