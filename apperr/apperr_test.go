package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(CodeValidation, "bad").Status())
	assert.Equal(t, http.StatusUnprocessableEntity, New(CodeInsufficientReal, "").Status())
	assert.Equal(t, http.StatusInternalServerError, New(CodeIntegrityError, "").Status())
}

func TestAsFallback(t *testing.T) {
	plain := errors.New("boom")
	e := As(plain)
	assert.Equal(t, CodeIntegrityError, e.Code)
	assert.ErrorIs(t, e, plain)
}

func TestIs(t *testing.T) {
	err := New(CodeGiftExpired, "too late")
	assert.True(t, Is(err, CodeGiftExpired))
	assert.False(t, Is(err, CodeGiftNotFound))
}
