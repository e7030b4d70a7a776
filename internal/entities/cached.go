package entities

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/cache"
)

// CachedRecognizer memoizes another recognizer's output by text and
// categories. Cache failures fall through to the wrapped recognizer.
type CachedRecognizer struct {
	next   Recognizer
	store  cache.Store
	prefix string
	logger *zap.Logger
}

// NewCachedRecognizer wraps next with store
func NewCachedRecognizer(next Recognizer, store cache.Store, prefix string, logger *zap.Logger) *CachedRecognizer {
	if prefix == "" {
		prefix = "scrubber"
	}
	return &CachedRecognizer{next: next, store: store, prefix: prefix, logger: logger}
}

// Name returns the wrapped recognizer name
func (c *CachedRecognizer) Name() string {
	return c.next.Name()
}

// Recognize returns cached entities when present
func (c *CachedRecognizer) Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error) {
	key := cache.Key(c.prefix, c.next.Name(), strings.Join(categoryNames(categories), ","), text)

	if data, ok, err := c.store.Get(ctx, key); err == nil && ok {
		var found []Entity
		if err := json.Unmarshal(data, &found); err == nil {
			c.logger.Debug("Entity cache hit", zap.Int("entities", len(found)))
			return found, nil
		}
		c.logger.Warn("Discarding corrupt entity cache entry")
	}

	found, err := c.next.Recognize(ctx, text, categories)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(found); err == nil {
		if err := c.store.Set(ctx, key, data); err != nil {
			c.logger.Warn("Failed to cache entities", zap.Error(err))
		}
	}
	return found, nil
}

// Stats exposes the underlying cache statistics
func (c *CachedRecognizer) Stats() cache.Stats {
	return c.store.Stats()
}

// Close closes the wrapped recognizer and the store
func (c *CachedRecognizer) Close() error {
	err := c.next.Close()
	if cerr := c.store.Close(); err == nil {
		err = cerr
	}
	return err
}
