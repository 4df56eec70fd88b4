package api

import (
	"net/http"

	"github.com/alfredlabs/zettel/internal/log"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pinger Pinger
	logger log.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(pinger Pinger, logger log.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// RegisterRoutes registers probe routes on the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
}

// health reports process liveness; it never touches the database.
func (h *HealthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports whether the database is reachable.
func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no database configured")
		return
	}
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness probe failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
