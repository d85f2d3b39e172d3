// Package httpapi exposes the engine over HTTP for channel gateways
// (WhatsApp, web chat) that deliver one inbound message per request.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelardos/convoflow"
	"github.com/avelardos/convoflow/pkg/domain"
)

// Server wires the engine into a chi router.
type Server struct {
	engine *convoflow.Engine
	logger *slog.Logger
}

// NewHandler builds the HTTP handler. The Prometheus gatherer may be
// nil, which disables the /metrics endpoint.
func NewHandler(engine *convoflow.Engine, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Post("/v1/turn", s.processTurn)
	r.Get("/v1/sessions/{tenant}/{user}/{session}", s.getSession)
	r.Get("/healthz", s.health)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type turnRequest struct {
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id,omitempty"`
	TemplateID string `json:"template_id"`
	Text       string `json:"text"`
}

type turnResponse struct {
	SessionID string                   `json:"session_id"`
	Messages  []domain.OutboundMessage `json:"messages"`
	Options   []domain.OptionPayload   `json:"options,omitempty"`
	Debug     domain.DebugState        `json:"debug"`
}

func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("turn: invalid request body", "err", err)
		return
	}
	if body.TenantID == "" || body.UserID == "" || body.TemplateID == "" {
		http.Error(w, "tenant_id, user_id and template_id are required", http.StatusBadRequest)
		return
	}

	res, err := s.engine.ProcessTurn(r.Context(), convoflow.TurnRequest(body))
	if err != nil {
		s.writeTurnError(w, body, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		SessionID: res.SessionKey.SessionID,
		Messages:  res.Messages,
		Options:   res.Options,
		Debug:     res.Debug,
	})
}

func (s *Server) writeTurnError(w http.ResponseWriter, body turnRequest, err error) {
	var compileErr *domain.CompileError
	var persistErr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrFlowNotFound):
		http.Error(w, "flow template not found", http.StatusNotFound)
	case errors.As(err, &compileErr):
		s.logger.Error("turn: flow failed to compile",
			"tenant", body.TenantID, "template", body.TemplateID, "err", err)
		http.Error(w, "flow template is invalid", http.StatusUnprocessableEntity)
	case errors.As(err, &persistErr):
		s.logger.Error("turn: session store unavailable",
			"tenant", body.TenantID, "err", err)
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
	default:
		s.logger.Error("turn failed", "tenant", body.TenantID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	key := domain.SessionKey{
		TenantID:  chi.URLParam(r, "tenant"),
		UserID:    chi.URLParam(r, "user"),
		SessionID: chi.URLParam(r, "session"),
	}
	snap, err := s.engine.Session(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.logger.Error("session lookup failed", "session", key.String(), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
