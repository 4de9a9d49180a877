package apperr

import (
	"fmt"
	"net/http"
)

// SyncKind identifies why a sync with the cloud record database failed
type SyncKind string

const (
	NetworkUnavailable SyncKind = "network_unavailable"
	RecordNotFound     SyncKind = "record_not_found"
	SyncConflict       SyncKind = "conflict"
	QuotaExceeded      SyncKind = "quota_exceeded"
	Unauthenticated    SyncKind = "unauthenticated"
	SyncDisabled       SyncKind = "disabled"
	SyncInternal       SyncKind = "internal"
)

// SyncError describes a sync failure
type SyncError struct {
	Kind SyncKind
	Err  error
}

// NewSyncError wraps err with a kind
func NewSyncError(kind SyncKind, err error) *SyncError {
	return &SyncError{Kind: kind, Err: err}
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sync: %s", e.Kind)
	}
	return fmt.Sprintf("sync: %s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func (e *SyncError) UserMessage() string {
	switch e.Kind {
	case NetworkUnavailable:
		return "Can't reach the cloud right now. Changes will sync when you're back online."
	case RecordNotFound:
		return "This item no longer exists in the cloud."
	case SyncConflict:
		return "This item changed on another device. The newest version was kept."
	case QuotaExceeded:
		return "Cloud storage is full."
	case Unauthenticated:
		return "Sign in to sync your family."
	case SyncDisabled:
		return "Cloud sync is turned off. Your data is stored on this device."
	}
	return "Sync failed."
}

func (e *SyncError) Recovery() RecoveryStrategy {
	switch e.Kind {
	case NetworkUnavailable, SyncConflict:
		return AutomaticRetry
	case QuotaExceeded, Unauthenticated:
		return UserIntervention
	case SyncDisabled:
		return FallbackToLocal
	}
	return NoRecovery
}

func (e *SyncError) HTTPStatus() int {
	switch e.Kind {
	case NetworkUnavailable, SyncDisabled:
		return http.StatusServiceUnavailable
	case RecordNotFound:
		return http.StatusNotFound
	case SyncConflict:
		return http.StatusConflict
	case QuotaExceeded:
		return http.StatusInsufficientStorage
	case Unauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
