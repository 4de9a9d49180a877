package apperr

import (
	"fmt"
	"net/http"
)

// FamilyCreationKind identifies why creating or joining a family failed
type FamilyCreationKind string

const (
	CodeGenerationFailed FamilyCreationKind = "code_generation_failed"
	CodeCollision        FamilyCreationKind = "code_collision"
	ValidationFailed     FamilyCreationKind = "validation_failed"
	PersistenceFailed    FamilyCreationKind = "persistence_failed"
	SyncFailed           FamilyCreationKind = "sync_failed"
	AlreadyMember        FamilyCreationKind = "already_member"
)

// FamilyCreationError describes a failure while creating or joining a family
type FamilyCreationError struct {
	Kind FamilyCreationKind
	Err  error
}

// NewFamilyCreationError wraps err with a kind
func NewFamilyCreationError(kind FamilyCreationKind, err error) *FamilyCreationError {
	return &FamilyCreationError{Kind: kind, Err: err}
}

func (e *FamilyCreationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("family creation: %s", e.Kind)
	}
	return fmt.Sprintf("family creation: %s: %v", e.Kind, e.Err)
}

func (e *FamilyCreationError) Unwrap() error {
	return e.Err
}

func (e *FamilyCreationError) UserMessage() string {
	switch e.Kind {
	case CodeGenerationFailed:
		return "We couldn't generate a family code. Please try again."
	case CodeCollision:
		return "That family code is already taken. Please try again."
	case ValidationFailed:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Some family details are invalid."
	case PersistenceFailed:
		return "We couldn't save your family. Please try again."
	case SyncFailed:
		return "Your family was saved on this device and will sync later."
	case AlreadyMember:
		return "You are already a member of this family."
	}
	return "We couldn't create your family."
}

func (e *FamilyCreationError) Recovery() RecoveryStrategy {
	switch e.Kind {
	case CodeGenerationFailed, CodeCollision, PersistenceFailed:
		return AutomaticRetry
	case SyncFailed:
		return FallbackToLocal
	case ValidationFailed, AlreadyMember:
		return UserIntervention
	}
	return NoRecovery
}

func (e *FamilyCreationError) HTTPStatus() int {
	switch e.Kind {
	case ValidationFailed:
		return http.StatusBadRequest
	case CodeCollision, AlreadyMember:
		return http.StatusConflict
	case SyncFailed:
		return http.StatusAccepted
	}
	return http.StatusInternalServerError
}
