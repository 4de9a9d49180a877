// Package apperr defines the user-facing error taxonomy. Each error carries a
// message safe to show in the app and a recovery hint for the client.
package apperr

import (
	"errors"
	"net/http"

	"tribeboard/internal/validation"
)

// RecoveryStrategy tells the client how it may recover from a failure
type RecoveryStrategy string

const (
	AutomaticRetry   RecoveryStrategy = "automatic_retry"
	FallbackToLocal  RecoveryStrategy = "fallback_to_local"
	UserIntervention RecoveryStrategy = "user_intervention"
	NoRecovery       RecoveryStrategy = "no_recovery"
)

// Describer is implemented by every error in the taxonomy
type Describer interface {
	error
	UserMessage() string
	Recovery() RecoveryStrategy
	HTTPStatus() int
}

// UserFacing is the classified view of an error sent to clients
type UserFacing struct {
	Message  string           `json:"error"`
	Recovery RecoveryStrategy `json:"recovery"`
	Status   int              `json:"-"`
}

// Classify maps any error onto its user-facing description
func Classify(err error) UserFacing {
	var d Describer
	if errors.As(err, &d) {
		return UserFacing{Message: d.UserMessage(), Recovery: d.Recovery(), Status: d.HTTPStatus()}
	}

	var vErr validation.ValidationError
	if errors.As(err, &vErr) {
		return UserFacing{Message: vErr.Error(), Recovery: UserIntervention, Status: http.StatusBadRequest}
	}

	return UserFacing{Message: "Something went wrong. Please try again later.", Recovery: NoRecovery, Status: http.StatusInternalServerError}
}

// RecoveryOf returns the recovery strategy for err
func RecoveryOf(err error) RecoveryStrategy {
	return Classify(err).Recovery
}
