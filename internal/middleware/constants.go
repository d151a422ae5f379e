package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderOrigin is the Origin header name.
	HeaderOrigin = "Origin"

	// HeaderVary is the Vary header name.
	HeaderVary = "Vary"

	// HeaderXRequestID is the X-Request-ID header name.
	HeaderXRequestID = "X-Request-ID"
)

// CORS header names.
const (
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerExposeHeaders    = "Access-Control-Expose-Headers"
	headerMaxAge           = "Access-Control-Max-Age"
	headerRequestMethod    = "Access-Control-Request-Method"
	headerRequestHeaders   = "Access-Control-Request-Headers"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// Error response bodies.
const (
	// ErrRateLimitExceeded is the error message for rate limit exceeded.
	ErrRateLimitExceeded = `{"error":"rate limit exceeded"}`

	// ErrInternalServerError is the error message for internal server error.
	ErrInternalServerError = `{"error":"internal server error"}`

	// ErrRequestEntityTooLarge is the error message for request body too large.
	ErrRequestEntityTooLarge = `{"error":"request entity too large"}`
)
