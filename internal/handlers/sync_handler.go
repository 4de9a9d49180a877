package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"tribeboard/internal/cloudsync"
)

// SyncHandler exposes the cloud sync engine
type SyncHandler struct {
	engine *cloudsync.Engine
	logger *zap.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(engine *cloudsync.Engine, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, logger: logger}
}

// SyncNow runs a push and pull and returns the report
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.SyncNow(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// Status returns the state of the sync engine
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Status())
}
