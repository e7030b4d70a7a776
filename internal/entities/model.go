package entities

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loader constructs a recognizer. It is called at most once per Model.
type Loader func() (Recognizer, error)

// Model is a shared, lazily loaded recognizer. The first call loads it; a load
// failure is remembered and returned from every later call without retrying.
type Model struct {
	load   Loader
	logger *zap.Logger

	once       sync.Once
	recognizer Recognizer
	err        error

	closeOnce sync.Once
	closeErr  error
}

// NewModel creates an unloaded model
func NewModel(load Loader, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{load: load, logger: logger}
}

// Recognizer loads the model on first use
func (m *Model) Recognizer() (Recognizer, error) {
	m.once.Do(func() {
		start := time.Now()
		rec, err := m.load()
		if err != nil {
			m.err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			m.logger.Error("Entity model failed to load", zap.Error(err))
			return
		}
		if rec == nil {
			m.err = ErrModelUnavailable
			m.logger.Error("Entity model loader returned no recognizer")
			return
		}
		m.recognizer = rec
		m.logger.Info("Entity model loaded",
			zap.String("recognizer", rec.Name()),
			zap.Duration("load_time", time.Since(start)))
	})
	return m.recognizer, m.err
}

// Extract loads the model if needed and returns the distinct entity strings
func (m *Model) Extract(ctx context.Context, text string, categories []Category) ([]string, error) {
	rec, err := m.Recognizer()
	if err != nil {
		return nil, err
	}
	return NewExtractor(rec, m.logger).Extract(ctx, text, categories)
}

// Close releases the recognizer. It waits for a load in progress, and a
// model closed before its first use never loads.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		m.once.Do(func() {
			m.err = fmt.Errorf("%w: model closed", ErrModelUnavailable)
		})
		if m.recognizer != nil {
			m.closeErr = m.recognizer.Close()
		}
	})
	return m.closeErr
}
