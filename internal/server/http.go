package server

import (
	"encoding/json"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// Requests carrying Authorization: Bearer <adminToken> run as admin. Every
// request outside /v1/ and /metrics ticks the updater before it is handed to
// host; a nil host answers 404 after the tick.
func (s *Server) NewHTTPHandler(adminToken string, host http.Handler) http.Handler {
	if host == nil {
		host = http.NotFoundHandler()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /v1/status", s.limited(s.handleStatus))
	mux.Handle("POST /v1/tick", s.limited(s.handleTick))
	if s.events != nil {
		mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", TickMiddleware(s.updater, s.logger, host))

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	return RecoveryMiddleware(s.logger,
		LoggingMiddleware(s.logger,
			sentryHandler.Handle(AdminMiddleware(adminToken, mux))))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.updater.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load plugin parameters")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleTick handles POST /v1/tick. Only admin requests may tick explicitly.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !updater.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "admin token required")
		return
	}
	writeJSON(w, http.StatusOK, s.updater.Tick(r.Context()))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
