package server

import (
	"github.com/raaihank/transcript-scrubber/internal/redact"
)

// ArtifactPayload is a downloadable artifact inside a JSON response. Text
// artifacts carry their content as is; the PDF is base64 encoded.
type ArtifactPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Encoding    string `json:"encoding,omitempty"`
	Data        string `json:"data"`
}

// RedactResponse is the body of POST /api/v1/redact
type RedactResponse struct {
	RequestID       string                 `json:"request_id"`
	Mode            string                 `json:"mode"`
	Replacement     string                 `json:"replacement"`
	Categories      []string               `json:"categories,omitempty"`
	Source          string                 `json:"source"`
	Pages           int                    `json:"pages"`
	OriginalPreview string                 `json:"original_preview"`
	RedactedPreview string                 `json:"redacted_preview"`
	Truncated       bool                   `json:"truncated"`
	Terms           []string               `json:"terms"`
	TermCount       int                    `json:"term_count"`
	Findings        []redact.Finding       `json:"findings"`
	TextMatches     int                    `json:"text_matches"`
	Text            *ArtifactPayload       `json:"text,omitempty"`
	Document        *ArtifactPayload       `json:"document,omitempty"`
	DocumentReport  *redact.DocumentResult `json:"document_report,omitempty"`
	Errors          map[string]string      `json:"errors,omitempty"`
	DurationMS      float64                `json:"duration_ms"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// InfoResponse is the body of GET /info
type InfoResponse struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Recognizer     string   `json:"recognizer"`
	Description    string   `json:"recognizer_description"`
	DefaultMode    string   `json:"default_mode"`
	Categories     []string `json:"categories"`
	Replacement    string   `json:"replacement"`
	RedactDocument bool     `json:"redact_document"`
	MaxUploadSize  int64    `json:"max_upload_size"`
	WebSocket      bool     `json:"websocket_enabled"`
	RateLimited    bool     `json:"rate_limited"`
}
