package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := stderrors.New("no rows")
	err := fmt.Errorf("failed to get department: %w", NotFound("department", cause))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsSlotTaken(err))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNotFoundSentinel)
	assert.Equal(t, "failed to get department: department not found: no rows", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		slug   string
	}{
		{NotFound("doctor", nil), http.StatusNotFound, "not_found"},
		{Validation("bad date", nil), http.StatusBadRequest, "validation_error"},
		{Unauthorized(nil), http.StatusUnauthorized, "unauthorized"},
		{Forbidden("patient is blacklisted"), http.StatusForbidden, "forbidden"},
		{Conflict("email taken", nil), http.StatusConflict, "conflict"},
		{SlotTaken(nil), http.StatusConflict, "slot_taken"},
		{Unavailable("doctor is off"), http.StatusUnprocessableEntity, "unavailable"},
		{TooManyRequests(), http.StatusTooManyRequests, "rate_limited"},
		{Internal(stderrors.New("db down")), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.slug, tt.err.Slug())
		})
	}
}
