package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shape/internal/api/middleware"
	"shape/internal/config"
	"shape/pkg/logger"
)

type RouterDeps struct {
	Config     *config.Config
	NewService UserServiceFactory
	Notifier   WelcomeNotifier
	DB         Pinger
	Logger     logger.Logger
}

// NewRouter assembles the HTTP surface. Outer middleware sees every
// request; metrics only sees matched routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	NewHealthHandler(deps.Config.App, deps.DB, deps.Logger).RegisterRoutes(r)
	NewUserHandler(deps.NewService, deps.Notifier, deps.Logger).RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = middleware.RecoveryMiddleware(deps.Logger)(handler)
	handler = middleware.LoggingMiddleware(deps.Logger)(handler)
	handler = middleware.TracingMiddleware(handler)
	handler = middleware.CORSMiddleware(deps.Config.CORS.AllowedOrigins)(handler)

	return handler
}
