package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribeboard/internal/validation"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		recovery RecoveryStrategy
		status   int
	}{
		{
			name:     "code collision retries",
			err:      NewFamilyCreationError(CodeCollision, nil),
			recovery: AutomaticRetry,
			status:   http.StatusConflict,
		},
		{
			name:     "sync failure falls back to local",
			err:      NewFamilyCreationError(SyncFailed, errors.New("offline")),
			recovery: FallbackToLocal,
			status:   http.StatusAccepted,
		},
		{
			name:     "already member needs the user",
			err:      NewFamilyCreationError(AlreadyMember, nil),
			recovery: UserIntervention,
			status:   http.StatusConflict,
		},
		{
			name:     "cloud unavailable falls back",
			err:      NewModelContainerError(CloudUnavailable, errors.New("dial tcp")),
			recovery: FallbackToLocal,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "in-memory failure is final",
			err:      NewModelContainerError(InMemoryFailed, errors.New("oom")),
			recovery: NoRecovery,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "network sync error retries",
			err:      fmt.Errorf("push: %w", NewSyncError(NetworkUnavailable, errors.New("timeout"))),
			recovery: AutomaticRetry,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "quota needs the user",
			err:      NewSyncError(QuotaExceeded, nil),
			recovery: UserIntervention,
			status:   http.StatusInsufficientStorage,
		},
		{
			name:     "validation error",
			err:      fmt.Errorf("create: %w", validation.ValidationError{Field: "code", Message: "bad"}),
			recovery: UserIntervention,
			status:   http.StatusBadRequest,
		},
		{
			name:     "unknown error",
			err:      errors.New("boom"),
			recovery: NoRecovery,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.recovery, got.Recovery)
			assert.Equal(t, tt.status, got.Status)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestFamilyCreationValidationMessage(t *testing.T) {
	vErr := validation.ValidationError{Field: "name", Message: "family name is required"}
	err := NewFamilyCreationError(ValidationFailed, vErr)

	got := Classify(err)
	assert.Equal(t, "name: family name is required", got.Message)
	assert.Equal(t, http.StatusBadRequest, got.Status)

	var unwrapped validation.ValidationError
	require.ErrorAs(t, err, &unwrapped)
	assert.Equal(t, "name", unwrapped.Field)
}

func TestErrorStringsIncludeCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewModelContainerError(LocalStoreFailed, cause)

	assert.Contains(t, err.Error(), "local_store_failed")
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, FallbackToLocal, RecoveryOf(err))
}
