package gazetteer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoSource is returned when neither a file nor a database is configured
var ErrNoSource = errors.New("gazetteer has no path or database_url configured")

// Load reads entries from the configured file, or from the database table
// when no file is set.
func Load(ctx context.Context, config *Config, logger *zap.Logger) ([]Entry, error) {
	switch {
	case config.Path != "":
		entries, _, err := LoadFile(ctx, config.Path, config.Format, logger)
		return entries, err
	case config.DatabaseURL != "":
		store, err := NewStore(config, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Entries(ctx)
	default:
		return nil, ErrNoSource
	}
}
