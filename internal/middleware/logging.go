package middleware

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	"antpi/internal/logger"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type contextKey struct{}

// RequestID returns the ID assigned to the request by LoggingMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// LoggingMiddleware tags every request with an ID (reusing an incoming
// X-Request-ID) and logs method, path, status and duration once it completes.
func LoggingMiddleware(logger *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), contextKey{}, id))

		m := httpsnoop.CaptureMetrics(next, w, r)

		switch {
		case m.Code >= http.StatusInternalServerError:
			logger.Error("[%s] %s %s -> %d (%s)", id, r.Method, r.URL.Path, m.Code, m.Duration)
		case m.Code >= http.StatusBadRequest:
			logger.Warning("[%s] %s %s -> %d (%s)", id, r.Method, r.URL.Path, m.Code, m.Duration)
		default:
			logger.Info("[%s] %s %s -> %d %dB (%s)", id, r.Method, r.URL.Path, m.Code, m.Written, m.Duration)
		}
	})
}
