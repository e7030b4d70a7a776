package security

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/config"
)

func newTestLimiter(cfg config.RateLimitConfig) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(cfg, zap.NewNop())
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("disabled allows everything", func(t *testing.T) {
		r, _ := newTestLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1})
		for i := 0; i < 10; i++ {
			if !r.Allow("10.0.0.1") {
				t.Fatalf("request %d rejected", i)
			}
		}
	})

	t.Run("burst then refill", func(t *testing.T) {
		r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 3})
		for i := 0; i < 3; i++ {
			if !r.Allow("10.0.0.1") {
				t.Fatalf("request %d rejected", i)
			}
		}
		if r.Allow("10.0.0.1") {
			t.Fatal("fourth request should be limited")
		}
		if !r.Allow("10.0.0.2") {
			t.Fatal("other clients have their own bucket")
		}

		*clock = clock.Add(time.Second)
		if !r.Allow("10.0.0.1") {
			t.Fatal("one token should refill after a second")
		}
	})

	t.Run("tokens", func(t *testing.T) {
		r, _ := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
		if got := r.Tokens("10.0.0.9"); got != 2 {
			t.Errorf("unknown client tokens = %v", got)
		}
		r.Allow("10.0.0.9")
		if got := r.Tokens("10.0.0.9"); got != 1 {
			t.Errorf("tokens after one request = %v", got)
		}
	})
}

func TestCleanupOldClients(t *testing.T) {
	r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 1, IdleTimeout: time.Minute})
	r.Allow("10.0.0.1")
	*clock = clock.Add(30 * time.Second)
	r.Allow("10.0.0.2")
	*clock = clock.Add(45 * time.Second)

	if n := r.CleanupOldClients(); n != 1 {
		t.Fatalf("removed %d clients, want 1", n)
	}
	if _, ok := r.clients["10.0.0.2"]; !ok {
		t.Error("recent client was removed")
	}
}
