package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
)

// PingResponse describes the running server and what it can connect to.
type PingResponse struct {
	Status          string   `json:"status"`
	Version         string   `json:"version"`
	Service         string   `json:"service"`
	GoVersion       string   `json:"go_version"`
	Hostname        string   `json:"hostname"`
	Environment     string   `json:"environment"`
	ComputeSchemes  []string `json:"compute_schemes"`
	DatasourceTypes []string `json:"datasource_types"`
}

// HealthHandler serves liveness, readiness and ping.
type HealthHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the public health routes.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health for liveness checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready. It fails until the metadata store answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	q, err := database.QuerierFrom(ctx)
	if err == nil {
		var one int
		err = q.QueryRow(ctx, "SELECT 1").Scan(&one)
	}
	if err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		writeDetails(w, http.StatusServiceUnavailable, "Metadata store unavailable", h.logger)
		return
	}
	writeDetails(w, http.StatusOK, "ready", h.logger)
}

// Ping handles GET /ping.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		writeDetails(w, http.StatusInternalServerError, "Failed to get hostname", h.logger)
		return
	}

	var dsTypes []string
	for _, info := range datasource.RegisteredAdapters() {
		dsTypes = append(dsTypes, string(info.Type))
	}

	writeDetails(w, http.StatusOK, PingResponse{
		Status:          "ok",
		Version:         h.cfg.Version,
		Service:         "ekaya-lakehouse",
		GoVersion:       runtime.Version(),
		Hostname:        hostname,
		Environment:     h.cfg.Env,
		ComputeSchemes:  compute.Schemes(),
		DatasourceTypes: dsTypes,
	}, h.logger)
}
