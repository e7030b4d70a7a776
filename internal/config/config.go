package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
)

// envKeys are bound explicitly so that environment overrides work without a
// config file that mentions them.
var envKeys = []string{
	"server.port",
	"server.max_upload_size",
	"redaction.replacement",
	"redaction.mode",
	"redaction.categories",
	"redaction.redact_document",
	"entities.type",
	"entities.model.model_path",
	"entities.model.vocab_path",
	"entities.gazetteer.path",
	"entities.gazetteer.database_url",
	"entities.openai.api_key",
	"entities.openai.base_url",
	"entities.openai.model",
	"entities.cache.enabled",
	"entities.cache.backend",
	"entities.cache.redis_url",
	"security.rate_limit.enabled",
	"security.rate_limit.requests_per_minute",
	"logging.level",
	"logging.format",
	"websocket.enabled",
	"websocket.username",
	"websocket.password",
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/transcript-scrubber/")
	v.AddConfigPath("$HOME/.transcript-scrubber/")

	// Environment variable overrides
	v.SetEnvPrefix("SCRUBBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	config := GetDefaults()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Server.MaxUploadSize)
	}

	if _, err := pipeline.ParseMode(config.Redaction.Mode); err != nil {
		return err
	}
	if _, err := entities.ParseCategories(config.Redaction.Categories); err != nil {
		return err
	}
	if config.Redaction.PreviewChars < 0 || config.Redaction.PreviewTerms < 0 {
		return fmt.Errorf("preview limits must not be negative")
	}
	if config.Extraction.RowTolerance < 0 {
		return fmt.Errorf("invalid row tolerance: %v", config.Extraction.RowTolerance)
	}

	if err := entities.ValidateConfig(config.Entities); err != nil {
		return err
	}

	if config.Security.RateLimit.Enabled && config.Security.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid requests per minute: %d", config.Security.RateLimit.RequestsPerMinute)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.WebSocket.Enabled && !strings.HasPrefix(config.WebSocket.Path, "/") {
		return fmt.Errorf("invalid websocket path: %q", config.WebSocket.Path)
	}
	if (config.WebSocket.Username == "") != (config.WebSocket.Password == "") {
		return fmt.Errorf("websocket username and password must be set together")
	}

	return nil
}

// Watch re-reads the configuration file whenever it changes and passes every
// valid result to callback. Invalid edits are logged and ignored.
func Watch(configPath string, logger *zap.Logger, callback func(*Config)) error {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("Configuration reloaded", zap.String("file", e.Name))
		callback(newConfig)
	})
	v.WatchConfig()

	return nil
}

// Pipeline returns the pipeline defaults described by the redaction and
// extraction sections. The configuration must have been validated.
func (c *Config) Pipeline() pipeline.Config {
	categories, _ := entities.ParseCategories(c.Redaction.Categories)

	document := c.Redaction.Document
	document.Replacement = c.Redaction.Replacement

	return pipeline.Config{
		Replacement:     c.Redaction.Replacement,
		Categories:      categories,
		DocumentOptions: document,
		Extraction:      c.Extraction,
	}
}
