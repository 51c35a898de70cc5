package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("car not found")))
	assert.Equal(t, KindQuotaExceeded, KindOf(QuotaExceeded("car limit reached")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	// Wrapped errors keep their kind
	wrapped := fmt.Errorf("register car: %w", Conflict("email already in use"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("missing brand")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("no such part")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("email taken")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("not the owner")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(QuotaExceeded("limit")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticated("bad token")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("save image", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}
