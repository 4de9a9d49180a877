package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports whether a store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports which store the server runs on
type HealthHandler struct {
	db           Pinger
	store        string
	cloudEnabled bool
	logger       *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, store string, cloudEnabled bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, store: store, cloudEnabled: cloudEnabled, logger: logger}
}

// Healthz answers liveness checks
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	view := HealthView{Status: "ok", Store: h.store, CloudEnabled: h.cloudEnabled}
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		view.Status = "unavailable"
		respondWithJSON(w, http.StatusServiceUnavailable, view)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}
