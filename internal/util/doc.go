// Package util provides small helpers shared across the proxy packages.
//
// # Context Helpers
//
// The matched target name is only known deep inside the handler, after
// the outer middleware has already run. ContextWithRouteHolder installs a
// mutable slot that inner handlers fill with SetRoute and outer
// middleware read back with RouteFromContext once the handler returns.
//
// # HTTP Utilities
//
// Response writer wrapper for status and size capture:
//
//	w := util.NewStatusCapturingResponseWriter(responseWriter)
//	handler.ServeHTTP(w, r)
//	statusCode := w.StatusCode
package util
