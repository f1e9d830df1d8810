// Package server exposes the updater over HTTP: a small admin API plus the
// tick middleware that runs the updater on every host request.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

// Server serves the admin API for one Updater.
type Server struct {
	updater *updater.Updater
	events  *EventHub // nil disables /v1/events/stream
	limiter *limiter.Limiter
	logger  *slog.Logger
}

// New returns a Server for u. hub should be one of u's publishers so that
// streamed clients see its notices and demotions.
func New(u *updater.Updater, hub *EventHub, logger *slog.Logger) *Server {
	return &Server{updater: u, events: hub, logger: logger}
}

// SetRateLimit throttles the status and tick endpoints to rps requests per
// second per client address, allowing bursts of burst. rps <= 0 removes the
// limit. Call before NewHTTPHandler.
func (s *Server) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetBurst(burst)
	lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
	msg, _ := json.Marshal(map[string]string{"error": "rate limit exceeded"})
	lmt.SetMessage(string(msg))
	lmt.SetMessageContentType("application/json")
	s.limiter = lmt
}

// limited wraps h in the rate limiter, if any.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return tollbooth.LimitHandler(s.limiter, h)
}
