package middleware

import (
	"net/http"
	"time"

	"shape/pkg/logger"
)

func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": time.Since(startTime).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}

			switch {
			case rw.statusCode >= 500:
				log.ErrorContext(r.Context(), "Request failed", fields)
			case rw.statusCode >= 400:
				log.WarnContext(r.Context(), "Request rejected", fields)
			default:
				log.InfoContext(r.Context(), "Request completed", fields)
			}
		})
	}
}
