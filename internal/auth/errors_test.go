package auth

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name:     "message and cause",
			err:      NewFetchError("http://auth/verify", "failed to fetch auth", io.ErrUnexpectedEOF),
			expected: "failed to fetch auth: unexpected EOF",
		},
		{
			name:     "message only",
			err:      NewFetchError("http://auth/verify", "invalid auth request", nil),
			expected: "invalid auth request",
		},
		{
			name:     "default message",
			err:      &FetchError{},
			expected: "auth fetch failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestFetchError_Is(t *testing.T) {
	t.Parallel()

	err := NewFetchError("u", "m", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.True(t, errors.Is(err, &FetchError{}))
	assert.False(t, errors.Is(err, ErrAuthNotConfigured))
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Unwrap(err))
}
