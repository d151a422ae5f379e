// Package middleware provides the HTTP middleware wrapped around the
// proxy handler.
//
//   - Recovery: panic recovery with stack trace logging
//   - RequestID: X-Request-ID propagation and generation
//   - Logging: one structured access log line per request
//   - CORS: permissive cross-origin headers and preflight answers
//   - BodyLimit: request body size limiting
//   - RateLimit: token bucket rate limiting, global or per client
//
// Middleware functions follow the standard Go pattern and compose with
// Chain, outermost first:
//
//	handler := middleware.Chain(proxyHandler,
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
package middleware
