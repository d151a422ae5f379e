package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// maxRequestIDLength caps inbound request IDs; longer values are
// replaced with a generated one.
const maxRequestIDLength = 128

// RequestID returns a middleware that adds a request ID to each request.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
// An inbound X-Request-ID is kept and forwarded upstream unchanged.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = generator()
				r.Header.Set(HeaderXRequestID, requestID)
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set(HeaderXRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
