package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/sqlgate/internal/lint"
	"github.com/dshills/sqlgate/internal/logging"
	"github.com/dshills/sqlgate/internal/security"
)

// Linter produces a syntax verdict for one snippet.
type Linter interface {
	Lint(ctx context.Context, text, dialect string) (lint.SyntaxVerdict, error)
}

// Server is the lint gateway HTTP server.
type Server struct {
	addr    string
	linter  Linter
	log     *logging.Logger
	metrics *metrics
	mux     *http.ServeMux
	server  *http.Server
}

// New creates a gateway server. A nil logger discards output.
func New(addr string, linter Linter, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		addr:    addr,
		linter:  linter,
		log:     log,
		metrics: newMetrics(),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /lint", s.handleLint)
	s.mux.Handle("GET /metrics", s.metrics.handler())
}

// ListenAndServe starts the HTTP server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("lint gateway listening", map[string]any{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// LintRequest is the body of POST /lint. Sql is the legacy field name.
type LintRequest struct {
	Text    string `json:"text"`
	Sql     string `json:"sql,omitempty"`
	Dialect string `json:"dialect,omitempty"`
}

// LintResponse is the body of every /lint reply. Fields are populated per
// Status.
type LintResponse struct {
	Status   string              `json:"status"`
	Security *security.Verdict   `json:"security_analysis,omitempty"`
	Syntax   *lint.SyntaxVerdict `json:"syntax_analysis,omitempty"`
	Message  string              `json:"message,omitempty"`
	Stderr   string              `json:"stderr,omitempty"`
	Raw      string              `json:"raw_output,omitempty"`
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusBlocked = "blocked"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusInvalid = "invalid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if err := readJSON(w, r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reply(w, http.StatusRequestEntityTooLarge, LintResponse{Status: StatusInvalid, Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		s.reply(w, http.StatusUnprocessableEntity, LintResponse{Status: StatusInvalid, Message: "invalid request: " + err.Error()})
		return
	}
	text := req.Text
	if text == "" {
		text = req.Sql
	}
	if strings.TrimSpace(text) == "" {
		s.reply(w, http.StatusUnprocessableEntity, LintResponse{Status: StatusInvalid, Message: "text is required"})
		return
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = "ansi"
	}

	verdict := security.Classify(text)
	if verdict.Severity == security.SeverityHigh {
		s.log.Warn("blocked high severity snippet", map[string]any{"warnings": verdict.Warnings})
		s.reply(w, http.StatusBadRequest, LintResponse{Status: StatusBlocked, Security: &verdict})
		return
	}

	start := time.Now()
	syntax, err := s.linter.Lint(r.Context(), text, dialect)
	s.metrics.lintDuration.Observe(time.Since(start).Seconds())

	var te *lint.ToolingError
	switch {
	case err == nil:
		s.reply(w, http.StatusOK, LintResponse{Status: StatusSuccess, Security: &verdict, Syntax: &syntax})
	case lint.IsTimeout(err):
		s.log.Warn("linter timed out", map[string]any{"dialect": dialect})
		s.reply(w, http.StatusGatewayTimeout, LintResponse{Status: StatusTimeout, Message: err.Error()})
	case errors.As(err, &te):
		s.log.ErrorErr("linter failed", err, map[string]any{"dialect": dialect})
		s.reply(w, http.StatusInternalServerError, LintResponse{
			Status:  StatusError,
			Message: te.Message,
			Stderr:  te.Stderr,
			Raw:     te.RawOutput,
		})
	default:
		s.log.ErrorErr("linter failed", err)
		s.reply(w, http.StatusInternalServerError, LintResponse{Status: StatusError, Message: err.Error()})
	}
}

func (s *Server) reply(w http.ResponseWriter, status int, resp LintResponse) {
	s.metrics.requests.WithLabelValues(resp.Status).Inc()
	writeJSON(w, status, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.ErrorErr("json encode error", err)
	}
}

// maxRequestBytes bounds a /lint request body.
const maxRequestBytes = 1 << 20

// readJSON decodes a JSON request body of at most maxRequestBytes into v.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}
