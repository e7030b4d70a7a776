package security

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/raaihank/transcript-scrubber/internal/config"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	config  config.RateLimitConfig
	clients map[string]*client
	mu      sync.Mutex
	logger  *zap.Logger
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*client),
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether a request from clientIP may proceed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.Enabled {
		return true
	}
	now := r.now()
	return r.getClient(clientIP, now).limiter.AllowN(now, 1)
}

// Tokens returns the tokens left for clientIP; unknown clients have a full bucket
func (r *RateLimiter) Tokens(clientIP string) float64 {
	r.mu.Lock()
	c, ok := r.clients[clientIP]
	r.mu.Unlock()
	if !ok {
		return float64(r.config.Burst)
	}
	return c.limiter.TokensAt(r.now())
}

func (r *RateLimiter) getClient(clientIP string, now time.Time) *client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientIP]
	if !ok {
		perSecond := rate.Limit(float64(r.config.RequestsPerMinute) / 60.0)
		c = &client{limiter: rate.NewLimiter(perSecond, r.config.Burst)}
		r.clients[clientIP] = c
	}
	c.lastSeen = now
	return c
}

// CleanupOldClients forgets clients idle for longer than the idle timeout
func (r *RateLimiter) CleanupOldClients() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.config.IdleTimeout)
	removed := 0
	for ip, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine runs CleanupOldClients until ctx is done
func (r *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	interval := r.config.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.CleanupOldClients(); n > 0 {
					r.logger.Debug("Removed idle rate limit clients", zap.Int("count", n))
				}
			}
		}
	}()
}
