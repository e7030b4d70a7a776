package entities

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/cache"
	"github.com/raaihank/transcript-scrubber/internal/gazetteer"
)

// Type names a recognizer backend
type Type string

const (
	// TypeONNX runs a token-classification model through ONNX Runtime
	TypeONNX Type = "onnx"

	// TypePattern uses transcript heuristics and needs no model
	TypePattern Type = "pattern"

	// TypeGazetteer matches a dictionary of known entities
	TypeGazetteer Type = "gazetteer"

	// TypeOpenAI asks a chat-completion model
	TypeOpenAI Type = "openai"
)

// Config contains recognizer selection and backend configuration
type Config struct {
	Type      Type             `yaml:"type" mapstructure:"type"`
	Model     ModelConfig      `yaml:"model" mapstructure:"model"`
	Gazetteer gazetteer.Config `yaml:"gazetteer" mapstructure:"gazetteer"`
	OpenAI    OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Cache     cache.Config     `yaml:"cache" mapstructure:"cache"`
}

// ValidateConfig validates the recognizer configuration
func ValidateConfig(config Config) error {
	switch config.Type {
	case TypeONNX:
		if config.Model.ModelPath == "" || config.Model.VocabPath == "" {
			return fmt.Errorf("%w: onnx recognizer needs model_path and vocab_path", ErrConfigError)
		}
		if config.Model.MaxLength != 0 && config.Model.MaxLength <= 2 {
			return fmt.Errorf("%w: max_length must be greater than 2", ErrConfigError)
		}
	case TypePattern:
	case TypeGazetteer:
		if config.Gazetteer.Path == "" && config.Gazetteer.DatabaseURL == "" {
			return fmt.Errorf("%w: gazetteer recognizer needs a path or database_url", ErrConfigError)
		}
	case TypeOpenAI:
		if config.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: openai recognizer needs api_key", ErrConfigError)
		}
	default:
		return fmt.Errorf("%w: invalid recognizer type: %s (must be one of: onnx, pattern, gazetteer, openai)", ErrConfigError, config.Type)
	}

	if config.Cache.Enabled && config.Cache.Backend == cache.BackendRedis && config.Cache.RedisURL == "" {
		return fmt.Errorf("%w: redis_url is required for the redis cache", ErrConfigError)
	}
	return nil
}

// NewRecognizer builds the configured backend, wrapped in a cache when enabled
func NewRecognizer(ctx context.Context, config Config, logger *zap.Logger) (Recognizer, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	var rec Recognizer
	switch config.Type {
	case TypeONNX:
		ner, err := LoadNERRecognizer(config.Model, logger)
		if err != nil {
			return nil, err
		}
		rec = ner
	case TypePattern:
		rec = NewPatternRecognizer()
	case TypeGazetteer:
		entries, err := gazetteer.Load(ctx, &config.Gazetteer, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load gazetteer: %w", err)
		}
		rec = NewGazetteerRecognizer(entries, logger)
	case TypeOpenAI:
		o, err := NewOpenAIRecognizer(config.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		rec = o
	}
	logger.Info("Created entity recognizer", zap.String("type", string(config.Type)))

	if !config.Cache.Enabled {
		return rec, nil
	}
	store, err := cache.New(&config.Cache, logger)
	if err != nil {
		logger.Warn("Entity cache unavailable, continuing without it", zap.Error(err))
		return rec, nil
	}
	return NewCachedRecognizer(rec, store, config.Cache.KeyPrefix, logger), nil
}

// NewLoader returns a Loader for NewModel that builds the configured recognizer
func NewLoader(config Config, logger *zap.Logger) Loader {
	return func() (Recognizer, error) {
		return NewRecognizer(context.Background(), config, logger)
	}
}

// GetDescription returns a description of each recognizer type
func GetDescription(t Type) string {
	switch t {
	case TypeONNX:
		return "Transformer token classification through ONNX Runtime. Best recall; needs a model file."
	case TypePattern:
		return "Transcript heuristics: speaker labels, honorifics, corporate suffixes, City, ST."
	case TypeGazetteer:
		return "Dictionary of known names loaded from a file or PostgreSQL."
	case TypeOpenAI:
		return "Chat-completion model; only entities found verbatim in the text are used."
	default:
		return "Unknown recognizer type"
	}
}
