// Package server exposes the scrub pipeline over HTTP together with the
// upload page and the live event feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/config"
	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/logger"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
	"github.com/raaihank/transcript-scrubber/internal/security"
	"github.com/raaihank/transcript-scrubber/internal/web"
	"github.com/raaihank/transcript-scrubber/internal/websocket"
)

// Version is reported by /info
var Version = "0.1.0"

const statusInterval = 30 * time.Second

// state is swapped as a whole on configuration reload
type state struct {
	config   *config.Config
	pipeline *pipeline.Pipeline
}

// Server is the scrubber HTTP server
type Server struct {
	state   atomic.Pointer[state]
	model   *entities.Model
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *security.RateLimiter

	started    time.Time
	requests   atomic.Int64
	redactions atomic.Int64
}

// Option customises a Server
type Option func(*Server)

// WithModel replaces the entity model built from the configuration
func WithModel(model *entities.Model) Option {
	return func(s *Server) {
		s.model = model
	}
}

// New creates a new server instance. The entity model is loaded lazily on the
// first auto mode request.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{
		logger:  log.WithComponent("server"),
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.model == nil {
		entityLogger := log.WithComponent("entities").Logger
		s.model = entities.NewModel(entities.NewLoader(cfg.Entities, entityLogger), entityLogger)
	}

	s.wsHub = websocket.NewHub(cfg.WebSocket, log.WithComponent("websocket").Logger)
	s.limiter = security.NewRateLimiter(cfg.Security.RateLimit, log.WithComponent("security").Logger)
	s.state.Store(s.newState(cfg))

	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

func (s *Server) newState(cfg *config.Config) *state {
	return &state{
		config:   cfg,
		pipeline: pipeline.New(cfg.Pipeline(), s.model, s.logger.WithComponent("pipeline").Logger),
	}
}

func (s *Server) current() *state {
	return s.state.Load()
}

// Reload applies new redaction, extraction and preview defaults. Server,
// security, websocket and recognizer settings take effect on restart only.
func (s *Server) Reload(cfg *config.Config) {
	s.state.Store(s.newState(cfg))
	s.logger.Info("Redaction defaults reloaded",
		zap.String("mode", cfg.Redaction.Mode),
		zap.Strings("categories", cfg.Redaction.Categories),
		zap.Bool("redact_document", cfg.Redaction.RedactDocument),
	)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg *config.Config) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if cfg.Server.Dashboard {
		s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet)
		s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet)
	}

	if cfg.WebSocket.Enabled {
		s.router.HandleFunc(cfg.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.uploadLimitMiddleware)
	api.HandleFunc("/redact", s.handleRedact).Methods(http.MethodPost)
	api.HandleFunc("/redact/text", s.handleRedactText).Methods(http.MethodPost)
	api.HandleFunc("/redact/document", s.handleRedactDocument).Methods(http.MethodPost)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the background routines and serves HTTP until Stop is called
func (s *Server) Start(ctx context.Context) error {
	cfg := s.current().config
	s.logger.Info("Starting transcript scrubber server",
		zap.Int("port", cfg.Server.Port),
		zap.String("recognizer", string(cfg.Entities.Type)),
		zap.Bool("rate_limit", cfg.Security.RateLimit.Enabled),
		zap.Bool("websocket", cfg.WebSocket.Enabled),
	)

	go s.wsHub.Run(ctx)
	s.limiter.StartCleanupRoutine(ctx)
	go s.statusLoop(ctx)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server and releases the entity model
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping transcript scrubber server")
	err := s.server.Shutdown(ctx)
	if cerr := s.model.Close(); cerr != nil {
		s.logger.Warn("Failed to close entity model", zap.Error(cerr))
	}
	return err
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wsHub.BroadcastEvent(websocket.Event{
				Type:      websocket.EventTypeSystemStatus,
				Timestamp: time.Now(),
				Data:      s.systemStatus(),
			})
		}
	}
}

func (s *Server) systemStatus() websocket.SystemStatusEvent {
	return websocket.SystemStatusEvent{
		Status:           "healthy",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		TotalRequests:    s.requests.Load(),
		TotalRedactions:  s.redactions.Load(),
		Recognizer:       string(s.current().config.Entities.Type),
		ConnectedClients: int(s.wsHub.GetStats().ActiveConnections),
	}
}
