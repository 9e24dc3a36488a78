package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsComparesCodeAndMessage(t *testing.T) {
	err := New(CodeNotFound, "namespace not found")
	wrapped := fmt.Errorf("lookup: %w", err)

	require.ErrorIs(t, wrapped, New(CodeNotFound, "namespace not found"))
	assert.NotErrorIs(t, wrapped, New(CodeNotFound, "feed not found"))
	assert.NotErrorIs(t, wrapped, New(CodeInvalidInput, "namespace not found"))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load namespace")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to load namespace", MessageOf(err))
	assert.Equal(t, "failed to load namespace: connection reset", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.False(t, HasCode(err, CodeInternal))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeConflict, "seqno contention")))
	assert.True(t, Retryable(New(CodeTimeout, "context cancelled")))
	assert.False(t, Retryable(New(CodeInvalidInput, "bad envelope")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeInvariantViolation: http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeConflict:           http.StatusConflict,
		CodeTimeout:            http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), "code %s", code)
	}
}
