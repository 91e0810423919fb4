package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", Clone(ErrScheduleInput, "semester has no weeks"))

	got := FromError(wrapped)

	assert.Equal(t, ErrScheduleInput.Code, got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Status)
	assert.Equal(t, "semester has no weeks", got.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestIsComparesCodes(t *testing.T) {
	err := fmt.Errorf("cache: %w", Clone(ErrCacheMiss, "reference snapshot not cached"))

	assert.True(t, Is(err, ErrCacheMiss))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrConflict, "schedule already active")

	assert.Equal(t, "conflict", ErrConflict.Message)
	assert.Equal(t, "schedule already active", clone.Message)
	assert.Nil(t, Clone(nil, "x"))
}
