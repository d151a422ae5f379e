package proxy

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"golang.org/x/net/http/httpguts"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/router"
)

// streamBufferSize is the size of each relayed body chunk.
const streamBufferSize = 32 << 10

var streamBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, streamBufferSize)
		return &buf
	},
}

// errClientWrite marks a failure to write to the downstream client.
var errClientWrite = errors.New("client write failed")

// ResponseStatus returns the status reported to the client: the upstream
// status, or 200 when the target ignores errors and the upstream status
// is not 2xx.
func ResponseStatus(status int, target *router.Target) int {
	if target.IgnoreErrors && !isSuccess(status) {
		return http.StatusOK
	}
	return status
}

// isSuccess reports whether status is 2xx.
func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// streamResponse relays resp to w: status, headers, then the body chunk
// by chunk with a flush after each chunk. It returns the first read or
// write error; once headers are sent the status cannot change.
func (h *Handler) streamResponse(
	w http.ResponseWriter,
	resp *http.Response,
	target *router.Target,
	logger observability.Logger,
) error {
	h.copyResponseHeaders(w.Header(), resp.Header, target, logger)

	status := ResponseStatus(resp.StatusCode, target)
	if status != resp.StatusCode {
		getProxyMetrics().statusRewrites.WithLabelValues(target.Name).Inc()
	}

	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	bufp := streamBufferPool.Get().(*[]byte)
	defer streamBufferPool.Put(bufp)
	buf := *bufp

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return errors.Join(errClientWrite, err)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// copyResponseHeaders copies all upstream headers. An upstream header
// replaces any value already set under the same name, so headers added
// by outer middleware (CORS, request ID) are never duplicated. Names or
// values that are not valid HTTP are skipped one by one.
func (h *Handler) copyResponseHeaders(
	dst, src http.Header,
	target *router.Target,
	logger observability.Logger,
) {
	for name, values := range src {
		if !httpguts.ValidHeaderFieldName(name) {
			h.skipHeader(name, target, logger)
			continue
		}
		valid := make([]string, 0, len(values))
		for _, value := range values {
			if !httpguts.ValidHeaderFieldValue(value) {
				h.skipHeader(name, target, logger)
				continue
			}
			valid = append(valid, value)
		}
		if len(valid) > 0 {
			dst[name] = valid
		}
	}
}

// skipHeader logs and counts a dropped upstream header.
func (h *Handler) skipHeader(name string, target *router.Target, logger observability.Logger) {
	getProxyMetrics().skippedHeaders.WithLabelValues(target.Name).Inc()
	logger.Warn("skipping invalid upstream response header",
		observability.String("target", target.Name),
		observability.String("header", name),
	)
}
