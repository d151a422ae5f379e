package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS_Permissive(t *testing.T) {
	t.Parallel()

	var reached bool
	handler := CORS(PermissiveCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight answered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/users", nil)
		req.Header.Set(HeaderOrigin, "https://app.example.com")
		req.Header.Set(headerRequestMethod, http.MethodPut)
		req.Header.Set(headerRequestHeaders, "Authorization, Content-Type")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get(headerAllowOrigin))
		assert.Equal(t, http.MethodPut, rec.Header().Get(headerAllowMethods))
		assert.Equal(t, "Authorization, Content-Type", rec.Header().Get(headerAllowHeaders))
		assert.Equal(t, "86400", rec.Header().Get(headerMaxAge))
		assert.Contains(t, rec.Header().Values(HeaderVary), HeaderOrigin)
		assert.False(t, reached, "preflight must not reach the proxy")
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	cfg := CORSConfig{
		AllowOrigins:     []string{"https://exact.example.com", "*.example.org"},
		AllowMethods:     []string{"GET", "POST"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
	}

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantReached bool
	}{
		{name: "exact origin", method: http.MethodGet, origin: "https://exact.example.com", wantStatus: http.StatusOK, wantOrigin: "https://exact.example.com", wantReached: true},
		{name: "wildcard origin", method: http.MethodGet, origin: "https://api.example.org:8443", wantStatus: http.StatusOK, wantOrigin: "https://api.example.org:8443", wantReached: true},
		{name: "bare wildcard domain rejected", method: http.MethodGet, origin: "https://example.org", wantStatus: http.StatusOK, wantReached: true},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.com", wantStatus: http.StatusOK, wantReached: true},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK, wantReached: true},
		{name: "plain options passes through", method: http.MethodOptions, origin: "https://exact.example.com", wantStatus: http.StatusOK, wantOrigin: "https://exact.example.com", wantReached: true},
		{name: "preflight", method: http.MethodOptions, origin: "https://exact.example.com", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "https://exact.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var reached bool
			handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set(HeaderOrigin, tt.origin)
			}
			if tt.preflight {
				req.Header.Set(headerRequestMethod, http.MethodPost)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get(headerAllowOrigin))
			assert.Equal(t, tt.wantReached, reached)

			if tt.wantOrigin != "" {
				assert.Equal(t, "true", rec.Header().Get(headerAllowCredentials))
			}
			if tt.preflight {
				assert.Equal(t, "GET, POST", rec.Header().Get(headerAllowMethods))
			} else if tt.wantOrigin != "" {
				assert.Equal(t, "X-Request-ID", rec.Header().Get(headerExposeHeaders))
			}
		})
	}
}
