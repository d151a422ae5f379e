package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORS request types used as metric labels.
const (
	corsTypePreflight = "preflight"
	corsTypeActual    = "actual"
)

// CORSConfig contains CORS configuration. Empty AllowMethods or
// AllowHeaders mean the values requested by the preflight are echoed.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// PermissiveCORSConfig allows any origin, method and header.
func PermissiveCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		MaxAge:       86400,
	}
}

// corsPolicy holds pre-computed CORS header values.
type corsPolicy struct {
	origins          map[string]struct{}
	wildcardSuffixes []string
	allowAll         bool
	allowMethods     string
	allowHeaders     string
	exposeHeaders    string
	maxAge           string
	allowCredentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:          make(map[string]struct{}, len(cfg.AllowOrigins)),
		allowMethods:     strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:     strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders:    strings.Join(cfg.ExposeHeaders, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	for _, origin := range cfg.AllowOrigins {
		switch {
		case origin == "*":
			p.allowAll = true
		case strings.HasPrefix(origin, "*."):
			p.wildcardSuffixes = append(p.wildcardSuffixes, origin[1:])
		default:
			p.origins[origin] = struct{}{}
		}
	}

	return p
}

// allows reports whether origin may access the proxy.
func (p *corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAll {
		return true
	}
	if _, ok := p.origins[origin]; ok {
		return true
	}

	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	for _, suffix := range p.wildcardSuffixes {
		if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// preflight answers a CORS preflight request.
func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()

	methods := p.allowMethods
	if methods == "" {
		methods = r.Header.Get(headerRequestMethod)
	}
	h.Set(headerAllowMethods, methods)

	headers := p.allowHeaders
	if headers == "" {
		headers = r.Header.Get(headerRequestHeaders)
	}
	if headers != "" {
		h.Set(headerAllowHeaders, headers)
	}

	if p.maxAge != "" {
		h.Set(headerMaxAge, p.maxAge)
	}
	h.Add(HeaderVary, headerRequestMethod)
	h.Add(HeaderVary, headerRequestHeaders)

	w.WriteHeader(http.StatusNoContent)
}

// CORS returns a middleware that adds CORS headers for allowed origins
// and answers preflight requests itself. Other OPTIONS requests are
// passed through to the next handler.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(HeaderOrigin)
			if !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set(headerAllowOrigin, origin)
			h.Add(HeaderVary, HeaderOrigin)
			if policy.allowCredentials {
				h.Set(headerAllowCredentials, "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get(headerRequestMethod) != "" {
				GetMiddlewareMetrics().corsRequestsTotal.WithLabelValues(corsTypePreflight).Inc()
				policy.preflight(w, r)
				return
			}

			GetMiddlewareMetrics().corsRequestsTotal.WithLabelValues(corsTypeActual).Inc()
			if policy.exposeHeaders != "" {
				h.Set(headerExposeHeaders, policy.exposeHeaders)
			}

			next.ServeHTTP(w, r)
		})
	}
}
