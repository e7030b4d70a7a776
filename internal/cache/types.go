package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend names a cache implementation
type Backend string

const (
	// BackendMemory keeps entries in process
	BackendMemory Backend = "memory"
	// BackendRedis shares entries between instances through Redis
	BackendRedis Backend = "redis"
)

// Store is a byte-oriented key/value cache with expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats represents cache performance statistics
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func newStats(hits, misses int64) Stats {
	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total) * 100
	}
	return s
}

// Config contains cache configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend         Backend       `yaml:"backend" mapstructure:"backend"`
	RedisURL        string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns    int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL      time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	KeyPrefix       string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// New opens the store selected by config.Backend
func New(config *Config, logger *zap.Logger) (Store, error) {
	switch config.Backend {
	case BackendMemory, "":
		return NewMemoryStore(config), nil
	case BackendRedis:
		return NewRedisStore(config, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", config.Backend)
	}
}

// Key derives a fixed-length cache key from the given parts. Parts are hashed
// so that document text never appears in the key space.
func Key(prefix string, parts ...string) string {
	hasher := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(hasher, "%d:%s;", len(p), p)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("%s:ents:%s", prefix, hash[:32])
}
