package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/service"
)

// errorStatuses maps service sentinels onto HTTP statuses. Their messages are
// safe to show to users.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrFamilyNotFound, http.StatusNotFound},
	{service.ErrMembershipNotFound, http.StatusNotFound},
	{service.ErrProfileNotFound, http.StatusNotFound},
	{service.ErrInvitationNotFound, http.StatusNotFound},
	{service.ErrNotFamilyMember, http.StatusForbidden},
	{service.ErrPermissionDenied, http.StatusForbidden},
	{service.ErrInvitationNotAllowed, http.StatusForbidden},
	{service.ErrParentAdminExists, http.StatusConflict},
	{service.ErrParentAdminRequired, http.StatusConflict},
	{service.ErrInvitationUsed, http.StatusConflict},
	{service.ErrInvitationExpired, http.StatusGone},
	{service.ErrSessionNotFound, http.StatusUnauthorized},
	{service.ErrSessionExpired, http.StatusUnauthorized},
	{service.ErrInvalidAppleToken, http.StatusUnauthorized},
	{service.ErrMissingToken, http.StatusBadRequest},
}

// classify describes err for the client
func classify(err error) apperr.UserFacing {
	// Taxonomy errors carry their own message even when they wrap a sentinel
	var d apperr.Describer
	if errors.As(err, &d) {
		return apperr.Classify(err)
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return apperr.UserFacing{Message: e.err.Error(), Recovery: apperr.UserIntervention, Status: e.status}
		}
	}
	return apperr.Classify(err)
}

// respondWithError writes err as a JSON {error, recovery} body
func respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	uf := classify(err)
	if uf.Status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", uf.Status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", uf.Status), zap.Error(err))
	}
	respondWithJSON(w, uf.Status, uf)
}

// respondWithMessage writes a plain error message with no underlying error
func respondWithMessage(w http.ResponseWriter, status int, message string, recovery apperr.RecoveryStrategy) {
	respondWithJSON(w, status, apperr.UserFacing{Message: message, Recovery: recovery, Status: status})
}

func respondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
