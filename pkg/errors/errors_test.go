package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")
	require.Equal(t, "failed: boom", err.Error())
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
}

func TestCopiesStillMatchSentinel(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", ErrNotFound.WithInternal(stdErrors.New("row missing")))
	require.ErrorIs(t, wrapped, ErrNotFound)
	require.NotErrorIs(t, wrapped, ErrBadRequest)

	msg := ErrNotFound.WithMessage("Todo not found")
	require.ErrorIs(t, msg, ErrNotFound)
	require.Equal(t, "Todo not found", msg.Message)
	require.Equal(t, "Resource not found", ErrNotFound.Message)
}

func TestFromError(t *testing.T) {
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	require.Nil(t, FromError(nil))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, "invalid payload", err.Message)
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
}
