package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{name: "generates new request ID", expectNewID: true},
		{name: "uses existing request ID", existingRequestID: "existing-request-id-123"},
		{name: "replaces oversized request ID", existingRequestID: strings.Repeat("x", maxRequestIDLength+1), expectNewID: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var capturedRequestID, forwardedHeader string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedRequestID = observability.RequestIDFromContext(r.Context())
				forwardedHeader = r.Header.Get(HeaderXRequestID)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(HeaderXRequestID, tt.existingRequestID)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			responseRequestID := rec.Header().Get(HeaderXRequestID)
			require.NotEmpty(t, responseRequestID)
			assert.Equal(t, responseRequestID, capturedRequestID)
			assert.Equal(t, responseRequestID, forwardedHeader, "upstream sees the same ID")

			if tt.expectNewID {
				_, err := uuid.Parse(responseRequestID)
				assert.NoError(t, err, "generated ID should be a UUID")
			} else {
				assert.Equal(t, tt.existingRequestID, responseRequestID)
			}
		})
	}
}

func TestRequestIDWithGenerator(t *testing.T) {
	t.Parallel()

	handler := RequestIDWithGenerator(func() string { return "fixed-id" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "fixed-id", rec.Header().Get(HeaderXRequestID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
