package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime_seconds"`
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Status       string       `json:"status"`
	Regenerating bool         `json:"regenerating"`
	LastReport   *site.Report `json:"last_report,omitempty"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error    string                `json:"error"`
	Category serrors.ErrorCategory `json:"category"`
	Context  map[string]any        `json:"context,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	_ = writeJSONPretty(w, r, http.StatusOK, &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.start).Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	resp := &StatusResponse{Status: "idle"}
	if s.opts.Reports != nil {
		resp.LastReport = s.opts.Reports.LastReport()
		if resp.LastReport != nil {
			resp.Status = string(resp.LastReport.Outcome)
		}
	}
	if s.opts.Busy != nil && s.opts.Busy() {
		resp.Regenerating = true
	}
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed,
		serrors.ValidationError("invalid HTTP method").
			WithContext("method", r.Method).
			WithContext("allowed_method", "GET"))
	return false
}

func writeError(w http.ResponseWriter, status int, err *serrors.SiteError) {
	_ = writeJSON(w, status, &ErrorResponse{
		Error:    err.Message,
		Category: err.Category,
		Context:  err.Context,
	})
}

// writeJSON encodes into a buffer first so a failed encode sends nothing.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// writeJSONPretty indents when the request carries ?pretty=1 or ?pretty=true.
func writeJSONPretty(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
		b, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_, werr := w.Write(append(b, '\n'))
			return werr
		}
		slog.Warn("pretty JSON marshal failed, falling back to standard encode", logfields.Error(err))
	}
	return writeJSON(w, status, v)
}
