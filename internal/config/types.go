package config

import (
	"time"

	"github.com/raaihank/transcript-scrubber/internal/cache"
	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/gazetteer"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
	"github.com/raaihank/transcript-scrubber/internal/redact"
)

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig    `yaml:"server" mapstructure:"server"`
	Redaction  RedactionConfig `yaml:"redaction" mapstructure:"redaction"`
	Extraction extract.Options `yaml:"extraction" mapstructure:"extraction"`
	Entities   entities.Config `yaml:"entities" mapstructure:"entities"`
	Security   SecurityConfig  `yaml:"security" mapstructure:"security"`
	Logging    LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket  WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadSize   int64         `yaml:"max_upload_size" mapstructure:"max_upload_size"` // bytes
	Dashboard       bool          `yaml:"dashboard" mapstructure:"dashboard"`
}

// RedactionConfig holds the defaults applied to every request
type RedactionConfig struct {
	Replacement    string                 `yaml:"replacement" mapstructure:"replacement"`
	Mode           string                 `yaml:"mode" mapstructure:"mode"` // manual or auto
	Categories     []string               `yaml:"categories" mapstructure:"categories"`
	RedactDocument bool                   `yaml:"redact_document" mapstructure:"redact_document"`
	Document       redact.DocumentOptions `yaml:"document" mapstructure:"document"`
	PreviewChars   int                    `yaml:"preview_chars" mapstructure:"preview_chars"`
	PreviewTerms   int                    `yaml:"preview_terms" mapstructure:"preview_terms"`
}

// SecurityConfig contains request guardrails
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client rate limiting
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string        `yaml:"level" mapstructure:"level"`
	Format string        `yaml:"format" mapstructure:"format"` // json or console
	File   LogFileConfig `yaml:"file" mapstructure:"file"`
}

// LogFileConfig contains file logging configuration
type LogFileConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// Username and Password enable basic auth on the feed when both are set
	Username string       `yaml:"username" mapstructure:"username"`
	Password string       `yaml:"password" mapstructure:"password"`
	Events   EventsConfig `yaml:"events" mapstructure:"events"`
}

// EventsConfig selects which events the feed broadcasts
type EventsConfig struct {
	BroadcastRequests    bool `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
	BroadcastRedactions  bool `yaml:"broadcast_redactions" mapstructure:"broadcast_redactions"`
	BroadcastSystem      bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
	BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadSize:   50 << 20,
			Dashboard:       true,
		},
		Redaction: RedactionConfig{
			Replacement:    redact.DefaultReplacement,
			Mode:           string(pipeline.ModeManual),
			Categories:     []string{string(entities.Person), string(entities.Organization)},
			RedactDocument: true,
			Document:       redact.DefaultDocumentOptions(),
			PreviewChars:   pipeline.DefaultPreviewChars,
			PreviewTerms:   pipeline.DefaultPreviewTermLimit,
		},
		Extraction: extract.DefaultOptions(),
		Entities: entities.Config{
			Type: entities.TypePattern,
			Model: entities.ModelConfig{
				ModelPath:    "./models/ner.onnx",
				VocabPath:    "./models/vocab.txt",
				MaxLength:    512,
				ModelTimeout: 30 * time.Second,
			},
			Gazetteer: gazetteer.Config{
				Table:           gazetteer.DefaultTable,
				MaxOpenConns:    5,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
			OpenAI: entities.OpenAIConfig{
				Model:     "gpt-4o-mini",
				MaxTokens: 2000,
				Timeout:   60 * time.Second,
			},
			Cache: cache.Config{
				Enabled:         false,
				Backend:         cache.BackendMemory,
				MaxConnections:  10,
				MinIdleConns:    2,
				DefaultTTL:      time.Hour,
				CleanupInterval: 10 * time.Minute,
				KeyPrefix:       "scrubber",
			},
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
				IdleTimeout:       time.Hour,
				CleanupInterval:   30 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LogFileConfig{
				Enabled: false,
				Path:    "logs/scrubber.log",
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
			Events: EventsConfig{
				BroadcastRequests:    true,
				BroadcastRedactions:  true,
				BroadcastSystem:      true,
				BroadcastConnections: true,
			},
		},
	}
}
