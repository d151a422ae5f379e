package proxy

import (
	"errors"
	"fmt"
)

// Sentinel errors for proxy operations.
var (
	// ErrForwardFailed indicates that the upstream request could not be
	// completed.
	ErrForwardFailed = errors.New("upstream request failed")

	// ErrInvalidUpstreamURL indicates that the rewritten upstream URL could
	// not be turned into a request.
	ErrInvalidUpstreamURL = errors.New("invalid upstream URL")

	// ErrRequestBody indicates that the inbound request body could not be
	// read before forwarding.
	ErrRequestBody = errors.New("failed to read request body")
)

// Operation names used in ProxyError.
const (
	opBuildRequest = "build_request"
	opReadBody     = "read_body"
	opForward      = "forward"
	opStream       = "stream"
)

// ProxyError represents a proxy-related error with details.
type ProxyError struct {
	Op      string // Operation that failed
	Target  string // Target name
	URL     string // Upstream URL if known
	Message string // Human-readable message
	Cause   error  // Underlying error

	kind error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	if e.Target != "" {
		if e.Cause != nil {
			return fmt.Sprintf("proxy error [%s] target=%s: %s: %v", e.Op, e.Target, e.Message, e.Cause)
		}
		return fmt.Sprintf("proxy error [%s] target=%s: %s", e.Op, e.Target, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("proxy error [%s]: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("proxy error [%s]: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ProxyError) Is(target error) bool {
	if e.kind != nil && target == e.kind { //nolint:errorlint // sentinel identity
		return true
	}
	_, ok := target.(*ProxyError)
	return ok || errors.Is(e.Cause, target)
}

// NewProxyError creates a new ProxyError.
func NewProxyError(op, target, url, message string, cause error) *ProxyError {
	return &ProxyError{
		Op:      op,
		Target:  target,
		URL:     url,
		Message: message,
		Cause:   cause,
	}
}

// NewForwardError creates an error for a failed upstream request.
func NewForwardError(target, url string, cause error) *ProxyError {
	return &ProxyError{
		Op:      opForward,
		Target:  target,
		URL:     url,
		Message: ErrForwardFailed.Error(),
		Cause:   cause,
		kind:    ErrForwardFailed,
	}
}

// NewInvalidURLError creates an error for an upstream URL that could not
// be built.
func NewInvalidURLError(target, url string, cause error) *ProxyError {
	return &ProxyError{
		Op:      opBuildRequest,
		Target:  target,
		URL:     url,
		Message: ErrInvalidUpstreamURL.Error(),
		Cause:   cause,
		kind:    ErrInvalidUpstreamURL,
	}
}

// NewRequestBodyError creates an error for an inbound body that failed to
// read.
func NewRequestBodyError(target, url string, cause error) *ProxyError {
	return &ProxyError{
		Op:      opReadBody,
		Target:  target,
		URL:     url,
		Message: ErrRequestBody.Error(),
		Cause:   cause,
		kind:    ErrRequestBody,
	}
}
