package middleware

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/util"
)

// Logging returns a middleware that writes one access log line per
// request. It installs the route holder so the matched target name is
// available once the handler returns.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := util.ContextWithStartTime(r.Context(), start)
			ctx, holder := util.ContextWithRouteHolder(ctx)
			r = r.WithContext(ctx)

			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := holder.Get()
			if route == "" {
				route = "-"
			}

			//nolint:contextcheck // request context carries the request ID
			logger.WithContext(r.Context()).Info("http request",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.String("route", route),
				observability.Int("status", rw.StatusCode),
				observability.Int64("size", rw.Size),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", util.ClientIP(r)),
				observability.String("user_agent", r.UserAgent()),
			)
		})
	}
}
