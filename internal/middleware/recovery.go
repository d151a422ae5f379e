package middleware

import (
	"errors"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/util"
)

// Recovery returns a middleware that recovers from panics and answers
// with a JSON 500 when nothing has been written yet. A panic after the
// response headers went out is logged and counted but leaves the partial
// response untouched.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := util.NewStatusCapturingResponseWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// The server aborts the connection on this value; keep that behavior.
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.WithContext(r.Context()).Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", rec),
					observability.Bool("headers_sent", rw.HeaderWritten),
					observability.String("stack", string(debug.Stack())),
				)

				GetMiddlewareMetrics().panicsRecovered.Inc()

				if rw.HeaderWritten {
					return
				}

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, ErrInternalServerError)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
