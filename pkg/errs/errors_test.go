package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_WithoutCause(t *testing.T) {
	err := New(NotConnected, "no session")
	assert.Equal(t, "[200] no session", err.Error())
}

func TestError_WithCause(t *testing.T) {
	err := Wrap(errors.New("boom"), GenerationFailed, "model call failed")
	assert.Equal(t, "[400] model call failed : boom", err.Error())
	assert.True(t, time.Since(err.Timestamp) < time.Second)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("list tools: %w", Wrap(nil, NotConnected, "MCP client is null"))
	assert.True(t, errors.Is(wrapped, ErrNotConnected))
	assert.False(t, errors.Is(wrapped, ErrNotConfigured))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("pipe closed")
	err := Wrap(cause, ToolInvocationFailed, "call failed")
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not connected", ErrNotConnected, http.StatusBadRequest},
		{"invalid request", New(InvalidRequest, "bad"), http.StatusBadRequest},
		{"not configured", ErrNotConfigured, http.StatusInternalServerError},
		{"plain", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestMessageStripsCodes(t *testing.T) {
	err := Wrap(errors.New("quota exceeded"), GenerationFailed, "gemini generate")
	require.Equal(t, "gemini generate: quota exceeded", Message(err))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
