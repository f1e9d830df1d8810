package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sebest/xff"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

// AdminMiddleware marks requests carrying Authorization: Bearer <token> as
// admin. Other requests pass through unmarked; nothing is rejected here.
// When token is empty no request is admin.
func AdminMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if provided, ok := strings.CutPrefix(auth, "Bearer "); ok &&
			subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
			r = r.WithContext(updater.WithAdmin(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

// TickMiddleware runs one updater tick before handing the request on, the
// way the host platform runs system plugins early in every page load. The
// tick outlives a client that hangs up: once the update is committed,
// last_check must still be saved.
func TickMiddleware(u *updater.Updater, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := u.Tick(context.WithoutCancel(r.Context()))
		if res.Outcome.Ran() {
			logger.Info("request tick completed",
				"tick_id", res.TickID,
				"outcome", res.Outcome,
				"updated", len(res.Updated),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the event stream needs for flushing.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs every request at debug level. The logged client
// address is the first public one in X-Forwarded-For, if any.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", xff.GetRemoteAddr(r),
		)
	})
}

// RecoveryMiddleware catches panics in downstream handlers, logs the stack
// trace, and answers 500 instead of crashing the server.
func RecoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered in HTTP handler",
					"path", r.URL.Path,
					"panic", fmt.Sprintf("%v", v),
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
