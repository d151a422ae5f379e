package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// ErrBodyTooLarge is returned by reads past the configured body limit.
var ErrBodyTooLarge = errors.New("request body size exceeded")

// BodyLimit returns a middleware that limits the request body size.
// Requests announcing a larger Content-Length get 413 immediately;
// bodies of unknown length fail with ErrBodyTooLarge once the limit is
// passed. A non-positive maxSize disables the limit.
func BodyLimit(maxSize int64, logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxSize <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				logger.WithContext(r.Context()).Warn("request body too large",
					observability.Int64("content_length", r.ContentLength),
					observability.Int64("max_size", maxSize),
					observability.String("path", r.URL.Path),
				)

				GetMiddlewareMetrics().bodyLimitRejected.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = io.WriteString(w, ErrRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &limitedReadCloser{ReadCloser: r.Body, remaining: maxSize}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitedReadCloser wraps an io.ReadCloser and limits the number of bytes that can be read.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

// Read reads up to len(p) bytes into p, respecting the remaining limit.
// A body of exactly the limit still ends with io.EOF.
func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrBodyTooLarge
	}

	if l.remaining <= 0 {
		var probe [1]byte
		n, err := l.ReadCloser.Read(probe[:])
		if n == 0 && err != nil {
			return 0, err
		}
		l.exceeded = true
		GetMiddlewareMetrics().bodyLimitRejected.Inc()
		return 0, ErrBodyTooLarge
	}

	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}

	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)

	return n, err
}
