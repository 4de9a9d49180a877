package apperr

import (
	"fmt"
	"net/http"
)

// ModelContainerKind identifies which store bootstrap stage failed
type ModelContainerKind string

const (
	CloudUnavailable      ModelContainerKind = "cloud_unavailable"
	LocalStoreFailed      ModelContainerKind = "local_store_failed"
	InMemoryFailed        ModelContainerKind = "in_memory_failed"
	SchemaMigrationFailed ModelContainerKind = "schema_migration_failed"
)

// ModelContainerError describes a store bootstrap failure
type ModelContainerError struct {
	Kind ModelContainerKind
	Err  error
}

// NewModelContainerError wraps err with a kind
func NewModelContainerError(kind ModelContainerKind, err error) *ModelContainerError {
	return &ModelContainerError{Kind: kind, Err: err}
}

func (e *ModelContainerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model container: %s", e.Kind)
	}
	return fmt.Sprintf("model container: %s: %v", e.Kind, e.Err)
}

func (e *ModelContainerError) Unwrap() error {
	return e.Err
}

func (e *ModelContainerError) UserMessage() string {
	switch e.Kind {
	case CloudUnavailable:
		return "Cloud sync is unavailable. Your data is stored on this device."
	case LocalStoreFailed:
		return "Local storage is unavailable. Changes will not be kept after restart."
	case InMemoryFailed:
		return "Storage could not be started."
	case SchemaMigrationFailed:
		return "Storage could not be upgraded."
	}
	return "Storage could not be started."
}

func (e *ModelContainerError) Recovery() RecoveryStrategy {
	switch e.Kind {
	case CloudUnavailable, LocalStoreFailed:
		return FallbackToLocal
	}
	return NoRecovery
}

func (e *ModelContainerError) HTTPStatus() int {
	switch e.Kind {
	case CloudUnavailable, LocalStoreFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
