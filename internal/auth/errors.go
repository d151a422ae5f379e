package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for auth fetch operations.
var (
	// ErrAuthNotConfigured indicates that a target requires auth but no
	// auth target is configured.
	ErrAuthNotConfigured = errors.New("auth target not configured")

	// ErrFetchFailed indicates that the auth endpoint could not be reached
	// or returned an unusable response.
	ErrFetchFailed = errors.New("auth fetch failed")
)

// FetchError describes a failed call to the auth endpoint.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrFetchFailed.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrFetchFailed, a *FetchError or matches
// the cause.
func (e *FetchError) Is(target error) bool {
	if target == ErrFetchFailed { //nolint:errorlint // sentinel identity
		return true
	}
	_, ok := target.(*FetchError)
	return ok || errors.Is(e.Cause, target)
}

// NewFetchError creates a new FetchError.
func NewFetchError(url, message string, cause error) *FetchError {
	return &FetchError{
		URL:     url,
		Message: message,
		Cause:   cause,
	}
}
