package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"shape/internal/config"
	"shape/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	app    config.AppConfig
	db     Pinger
	logger logger.Logger
}

type RootResponse struct {
	Status      string `json:"status"`
	App         string `json:"app"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type ReadinessResponse struct {
	Status string   `json:"status"`
	Issues []string `json:"issues,omitempty"`
}

func NewHealthHandler(app config.AppConfig, db Pinger, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		app:    app,
		db:     db,
		logger: logger.Named("health_handler"),
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.Ready).Methods(http.MethodGet)
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Status:      "ok",
		App:         h.app.Name,
		Version:     h.app.Version,
		Environment: h.app.Environment,
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var issues []string

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "Database health check failed", map[string]interface{}{"error": err})
			issues = append(issues, "database: "+err.Error())
		}
	}

	if len(issues) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Issues: issues})
		return
	}

	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
}
