package proxy

import (
	"io"
	"net/http"
	"strconv"
)

const (
	landingPage  = "<h1>API Proxy</h1>"
	notFoundPage = "<h1>Not Found</h1>"

	contentTypeHTML  = "text/html; charset=utf-8"
	contentTypePlain = "text/plain; charset=utf-8"
)

// DefaultResponder answers requests that match no target: a landing page
// for "/" and a 404 for every other path. It never contacts an upstream.
func DefaultResponder(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusNotFound, notFoundPage
	if r.URL.EscapedPath() == "/" {
		status, body = http.StatusOK, landingPage
	}

	getProxyMetrics().defaultResponses.WithLabelValues(strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, body)
	}
}

// writeError writes a plain-text error response.
func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", contentTypePlain)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
