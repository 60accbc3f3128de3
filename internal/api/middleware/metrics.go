package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"shape/pkg/metrics"
)

// MetricsMiddleware labels requests by route template so ids do not blow up
// label cardinality. Install it with mux.Router.Use so the route is known.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)

		metrics.RecordHttpRequest(
			r.Method,
			routeTemplate(r),
			strconv.Itoa(rw.statusCode),
			time.Since(startTime),
		)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
