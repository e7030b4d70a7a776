package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeRedaction is sent after every scrub request
	EventTypeRedaction EventType = "redaction"
	// EventTypeRequestLog represents a request logging event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// RedactionEvent summarises one scrub. It carries counts only, never text or
// terms.
type RedactionEvent struct {
	RequestID       string  `json:"request_id"`
	ClientIP        string  `json:"client_ip"`
	Mode            string  `json:"mode"`
	Source          string  `json:"source"`
	Pages           int     `json:"pages"`
	Terms           int     `json:"terms"`
	TextMatches     int     `json:"text_matches"`
	DocumentRegions int     `json:"document_regions"`
	DocumentGlyphs  int     `json:"document_glyphs"`
	TextFailed      bool    `json:"text_failed,omitempty"`
	DocumentFailed  bool    `json:"document_failed,omitempty"`
	Error           string  `json:"error,omitempty"`
	ProcessingMS    float64 `json:"processing_ms"`
}

// RequestLogEvent represents a request logging event
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalRedactions  int64  `json:"total_redactions"`
	Recognizer       string `json:"recognizer"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows request log events
type EventFilter struct {
	PathPrefixes  []string `json:"path_prefixes,omitempty"`
	ExcludeHealth bool     `json:"exclude_health,omitempty"`
	OnlyFailures  bool     `json:"only_failures,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	// guarded by Hub.mu
	subscription *SubscriptionRequest
}
