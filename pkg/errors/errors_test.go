package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("mark sent: %w", Clone(ErrReminderNotPending, "reminder 4 already SENT"))

	got := FromError(wrapped)

	assert.Equal(t, "REMINDER_NOT_PENDING", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "reminder 4 already SENT", got.Message)
	assert.ErrorIs(t, wrapped, ErrReminderNotPending)
	assert.NotErrorIs(t, wrapped, ErrConflict)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.True(t, errors.Is(got, sql.ErrConnDone))
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "student not found")

	assert.Equal(t, "student not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, ErrNotFound.Message, Clone(ErrNotFound, "").Message)
}

func TestErrorString(t *testing.T) {
	err := Internal(errors.New("timeout"), "load items")
	assert.Equal(t, "load items: timeout", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.NotErrorIs(t, errors.New("plain"), ErrInternal)
}

func TestValidationWrapsCause(t *testing.T) {
	cause := errors.New("sesi out of range")
	err := Validation(cause, "invalid quiz payload")

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, cause)
}
