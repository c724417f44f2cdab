package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestIDHeader carries the client supplied request id.
const RequestIDHeader = "X-Request-ID"

// WithRequestLogging logs one line per request with its outcome.
func WithRequestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Error("request failed", fields...)
				return
			}
			log.Info("request handled", fields...)
		})
	}
}
