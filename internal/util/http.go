package util

import (
	"net"
	"net/http"
)

// StatusCapturingResponseWriter wraps http.ResponseWriter to track the
// status code and the number of body bytes written.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	Size          int64
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter creates a new StatusCapturingResponseWriter
// wrapping the provided http.ResponseWriter with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks header as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.Size += int64(n)
	return n, err
}

// Flush implements http.Flusher interface for streaming support. Flushing
// commits the headers, so HeaderWritten is set.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.HeaderWritten = true
		f.Flush()
	}
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (w *StatusCapturingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Compile-time interface assertion.
var _ http.Flusher = (*StatusCapturingResponseWriter)(nil)

// ClientIP returns the peer address of the request without its port.
// RemoteAddr values that are not host:port pairs are returned unchanged.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
