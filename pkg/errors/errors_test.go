package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("grade: %w", ErrAlreadyGraded)
	appErr := FromError(wrapped)
	assert.Equal(t, ErrAlreadyGraded.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestFromErrorHidesUnknownCause(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "submission not found")
	assert.Equal(t, "submission not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	assert.True(t, Is(Clone(ErrTokenExpired, "expired yesterday"), ErrTokenExpired))
	assert.False(t, Is(ErrTokenInvalid, ErrTokenExpired))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
}

func TestStateErrorStatuses(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrAlreadySubmitted.Status)
	assert.Equal(t, http.StatusBadRequest, ErrNotSubmitted.Status)
	assert.Equal(t, http.StatusConflict, ErrAlreadyGraded.Status)
	assert.Equal(t, http.StatusUnauthorized, ErrTokenExpired.Status)
}
