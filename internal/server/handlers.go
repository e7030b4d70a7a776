package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
	"github.com/raaihank/transcript-scrubber/internal/websocket"
)

// maxFormMemory is how much of a multipart upload is kept in memory before
// spilling to disk
const maxFormMemory = 32 << 20

// requestError is a client error with its HTTP status
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, code: "bad_request", msg: fmt.Sprintf(format, args...)}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.current().config
	writeJSON(w, http.StatusOK, InfoResponse{
		Name:           "transcript-scrubber",
		Version:        Version,
		Recognizer:     string(cfg.Entities.Type),
		Description:    entities.GetDescription(cfg.Entities.Type),
		DefaultMode:    cfg.Redaction.Mode,
		Categories:     cfg.Redaction.Categories,
		Replacement:    cfg.Redaction.Replacement,
		RedactDocument: cfg.Redaction.RedactDocument,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		WebSocket:      cfg.WebSocket.Enabled,
		RateLimited:    cfg.Security.RateLimit.Enabled,
	})
}

// handleRedact returns previews, the term list and both artifacts as JSON
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	st := s.current()
	req, err := s.parseRequest(r, st)
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	result, ok := s.scrub(w, r, st, req)
	if !ok {
		return
	}

	cfg := st.config.Redaction
	resp := RedactResponse{
		RequestID:       getRequestID(r.Context()),
		Mode:            string(result.Mode),
		Replacement:     result.Replacement,
		Source:          string(result.Source),
		Pages:           result.Pages,
		OriginalPreview: pipeline.Preview(result.OriginalText, cfg.PreviewChars),
		RedactedPreview: pipeline.Preview(result.Text.Text, cfg.PreviewChars),
		Terms:           result.TermPreview(cfg.PreviewTerms),
		TermCount:       result.Terms.Len(),
		Findings:        result.Text.Findings,
		TextMatches:     result.Text.Total,
		DocumentReport:  result.Document,
		DurationMS:      float64(result.Duration.Microseconds()) / 1000,
	}
	resp.Truncated = len(resp.OriginalPreview) < len(result.OriginalText) ||
		len(resp.RedactedPreview) < len(result.Text.Text)
	for _, c := range result.Categories {
		resp.Categories = append(resp.Categories, string(c))
	}
	if resp.Terms == nil {
		resp.Terms = []string{}
	}

	if a := result.TextArtifact; a != nil {
		resp.Text = &ArtifactPayload{Name: a.Name, ContentType: a.ContentType, Data: string(a.Data)}
	}
	if a := result.DocumentArtifact; a != nil {
		resp.Document = &ArtifactPayload{
			Name:        a.Name,
			ContentType: a.ContentType,
			Encoding:    "base64",
			Data:        base64.StdEncoding.EncodeToString(a.Data),
		}
	}
	if result.TextErr != nil || result.DocumentErr != nil {
		resp.Errors = map[string]string{}
		if result.TextErr != nil {
			resp.Errors["text"] = result.TextErr.Error()
		}
		if result.DocumentErr != nil {
			resp.Errors["document"] = result.DocumentErr.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRedactText returns the redacted text as a download
func (s *Server) handleRedactText(w http.ResponseWriter, r *http.Request) {
	st := s.current()
	req, err := s.parseRequest(r, st)
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	req.RedactDocument = false

	result, ok := s.scrub(w, r, st, req)
	if !ok {
		return
	}
	if result.TextErr != nil {
		s.writeScrubError(w, r, result.TextErr)
		return
	}
	writeArtifact(w, result, result.TextArtifact)
}

// handleRedactDocument returns the redacted PDF as a download
func (s *Server) handleRedactDocument(w http.ResponseWriter, r *http.Request) {
	st := s.current()
	req, err := s.parseRequest(r, st)
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	req.RedactDocument = true

	result, ok := s.scrub(w, r, st, req)
	if !ok {
		return
	}
	if result.DocumentErr != nil {
		s.writeScrubError(w, r, result.DocumentErr)
		return
	}
	writeArtifact(w, result, result.DocumentArtifact)
}

// scrub runs the pipeline and publishes a redaction event. On failure the
// error response has been written and ok is false.
func (s *Server) scrub(w http.ResponseWriter, r *http.Request, st *state, req pipeline.Request) (*pipeline.Result, bool) {
	requestID := getRequestID(r.Context())
	start := time.Now()

	result, err := st.pipeline.Run(r.Context(), req)

	event := websocket.RedactionEvent{
		RequestID:    requestID,
		ClientIP:     websocket.ClientIP(r),
		Mode:         string(req.Mode),
		ProcessingMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		event.Error = errorCode(err)
	} else {
		s.redactions.Add(1)
		event.Mode = string(result.Mode)
		event.Source = string(result.Source)
		event.Pages = result.Pages
		event.Terms = result.Terms.Len()
		event.TextMatches = result.Text.Total
		event.TextFailed = result.TextErr != nil
		event.DocumentFailed = result.DocumentErr != nil
		if result.Document != nil {
			event.DocumentRegions = result.Document.Regions
			event.DocumentGlyphs = result.Document.Glyphs
		}
	}
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeRedaction,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      event,
	})

	if err != nil {
		s.writeScrubError(w, r, err)
		return nil, false
	}
	return result, true
}

// parseRequest accepts a multipart form with a "file" part, or a raw PDF
// body with the other fields in the query string.
func (s *Server) parseRequest(r *http.Request, st *state) (pipeline.Request, error) {
	var req pipeline.Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return req, uploadError(err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return req, badRequest("missing file field")
		}
		defer file.Close()
		if req.Document, err = io.ReadAll(file); err != nil {
			return req, uploadError(err)
		}
	case "application/pdf", "application/octet-stream":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return req, uploadError(err)
		}
		req.Document = data
		if err := r.ParseForm(); err != nil {
			return req, badRequest("invalid query: %v", err)
		}
	default:
		return req, &requestError{
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_media_type",
			msg:    "expected multipart/form-data or application/pdf",
		}
	}

	if len(req.Document) == 0 {
		return req, badRequest("document is empty")
	}

	cfg := st.config.Redaction

	mode := r.FormValue("mode")
	if mode == "" {
		mode = cfg.Mode
	}
	m, err := pipeline.ParseMode(mode)
	if err != nil {
		return req, badRequest("%v", err)
	}
	req.Mode = m

	if raw := r.Form["categories"]; len(raw) > 0 && strings.TrimSpace(strings.Join(raw, "")) != "" {
		cats, err := entities.ParseCategories(raw)
		if err != nil {
			return req, badRequest("%v", err)
		}
		req.Categories = cats
	}

	req.Terms = r.FormValue("terms")
	req.Replacement = r.FormValue("replacement")

	req.RedactDocument = cfg.RedactDocument
	if v := r.FormValue("document"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, badRequest("invalid document flag %q", v)
		}
		req.RedactDocument = b
	}

	return req, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, code: "too_large", msg: "upload exceeds the size limit"}
	}
	return badRequest("invalid upload: %v", err)
}

// errorCode classifies pipeline errors
func errorCode(err error) string {
	switch {
	case errors.Is(err, extract.ErrNoExtractableText):
		return "no_extractable_text"
	case errors.Is(err, entities.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, pdf.ErrDocumentParse):
		return "document_parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func statusFor(code string) int {
	switch code {
	case "no_extractable_text", "document_parse":
		return http.StatusUnprocessableEntity
	case "model_unavailable":
		return http.StatusServiceUnavailable
	case "canceled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeScrubError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCode(err)
	status := statusFor(code)

	msg := err.Error()
	switch code {
	case "no_extractable_text":
		msg = "No text could be extracted. If this PDF is scanned (image-only), it needs OCR first."
	case "internal":
		msg = "internal error"
	}

	log := s.logger.WithRequestID(getRequestID(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error("Scrub failed", zap.String("code", code), zap.Error(err))
	} else {
		log.Info("Scrub rejected", zap.String("code", code), zap.Error(err))
	}
	s.writeError(w, r, status, code, msg)
}

func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if !errors.As(err, &re) {
		re = &requestError{status: http.StatusBadRequest, code: "bad_request", msg: err.Error()}
	}
	s.writeError(w, r, re.status, re.code, re.msg)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: getRequestID(r.Context()),
	})
}

func writeArtifact(w http.ResponseWriter, result *pipeline.Result, a *pipeline.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("X-Scrubber-Terms", strconv.Itoa(result.Terms.Len()))
	w.Header().Set("X-Scrubber-Matches", strconv.Itoa(result.Text.Total))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
