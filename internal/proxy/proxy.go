package proxy

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/auth"
	"github.com/vyrodovalexey/apiproxy/internal/middleware"
	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/router"
	"github.com/vyrodovalexey/apiproxy/internal/util"
)

// Response bodies for request-scoped failures.
const (
	msgAuthConfigMissing = "Proxy auth config missing."
	msgAuthError         = "Proxy auth error"
	msgError             = "Error"
	msgBodyTooLarge      = "Request body too large."
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handler matches inbound requests against the route table, forwards
// them upstream and streams the response back. It is safe for
// concurrent use.
type Handler struct {
	table          *router.Table
	client         Doer
	injector       *auth.Injector
	logger         observability.Logger
	tracer         *observability.Tracer
	redactErrors   bool
	requestTimeout time.Duration
}

// Option is a functional option for configuring the Handler.
type Option func(*Handler)

// WithLogger sets the logger for the handler.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClient sets the client used to reach upstreams.
func WithClient(client Doer) Option {
	return func(h *Handler) {
		h.client = client
	}
}

// WithInjector sets the auth injector. Without it the handler builds one
// from the table's auth target and its own client.
func WithInjector(injector *auth.Injector) Option {
	return func(h *Handler) {
		h.injector = injector
	}
}

// WithTracer sets the tracer used for upstream client spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(h *Handler) {
		h.tracer = tracer
	}
}

// WithRedactErrors replaces error details in 500 bodies with fixed text.
func WithRedactErrors(redact bool) Option {
	return func(h *Handler) {
		h.redactErrors = redact
	}
}

// WithRequestTimeout bounds auth, forward and stream of each request.
// Zero disables the deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.requestTimeout = timeout
	}
}

// New creates a Handler for table.
func New(table *router.Table, opts ...Option) *Handler {
	h := &Handler{
		table:  table,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.client == nil {
		h.client = NewClient(DefaultClientConfig())
	}
	if h.injector == nil {
		authTarget, _ := table.Auth()
		h.injector = auth.NewInjector(authTarget, h.client,
			auth.WithLogger(h.logger),
			auth.WithTracer(h.tracer),
		)
	}

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, ok := h.table.Match(r.URL.EscapedPath())
	if !ok {
		DefaultResponder(w, r)
		return
	}

	ctx := r.Context()
	util.SetRoute(ctx, target.Name)

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	logger := h.logger.WithContext(ctx).With(observability.String("target", target.Name))

	authTarget, _ := h.table.Auth()
	out, err := NewOutboundRequest(ctx, r, target, authTarget)
	if err != nil {
		h.rejectOutbound(w, target, logger, err)
		return
	}

	if target.UseAuth && !h.injectAuth(ctx, w, r, out, target, logger) {
		return
	}

	resp, err := h.forward(ctx, out, target)
	if err != nil {
		errType := errTypeForward
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			errType = errTypeCanceled
		}
		h.recordError(target, errType)
		logger.Error("upstream request failed",
			observability.String("url", out.URL.String()),
			observability.Error(err),
		)
		if errors.Is(err, middleware.ErrBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		var perr *ProxyError
		if errors.As(err, &perr) && perr.Cause != nil {
			err = perr.Cause
		}
		h.writeFailure(w, msgError, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if err := h.streamResponse(w, resp, target, logger); err != nil {
		h.recordError(target, errTypeStream)
		logger.Warn("response stream interrupted",
			observability.Int("status", resp.StatusCode),
			observability.Error(NewProxyError(opStream, target.Name, out.URL.String(), "relay aborted", err)),
		)
		return
	}

	fields := []observability.Field{
		observability.String("url", out.URL.String()),
		observability.Int("status", resp.StatusCode),
	}
	if start := util.StartTimeFromContext(ctx); !start.IsZero() {
		fields = append(fields, observability.Duration("elapsed", time.Since(start)))
	}
	logger.Debug("response relayed", fields...)
}

// rejectOutbound answers a request whose upstream request could not be
// built. The upstream is not contacted.
func (h *Handler) rejectOutbound(
	w http.ResponseWriter,
	target *router.Target,
	logger observability.Logger,
	err error,
) {
	if !errors.Is(err, ErrRequestBody) {
		h.recordError(target, errTypeInvalidURL)
		logger.Error("failed to build upstream request", observability.Error(err))
		h.writeFailure(w, msgError, err)
		return
	}

	h.recordError(target, errTypeRequestBody)
	logger.Warn("failed to read request body", observability.Error(err))

	if errors.Is(err, middleware.ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}

	var perr *ProxyError
	if errors.As(err, &perr) && perr.Cause != nil {
		err = perr.Cause
	}
	h.writeFailure(w, msgError, err)
}

// injectAuth fetches credentials and applies them to out. On failure it
// writes the error response and returns false.
func (h *Handler) injectAuth(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	out *http.Request,
	target *router.Target,
	logger observability.Logger,
) bool {
	var (
		fetched http.Header
		err     = auth.ErrAuthNotConfigured
	)
	if h.injector != nil {
		fetched, err = h.injector.FetchHeaders(ctx, r.Header)
	}

	switch {
	case errors.Is(err, auth.ErrAuthNotConfigured):
		h.recordError(target, errTypeAuthMissing)
		logger.Error("target requires auth but no auth target is configured")
		writeError(w, http.StatusInternalServerError, msgAuthConfigMissing)
		return false
	case err != nil:
		h.recordError(target, errTypeAuthFetch)
		logger.Error("auth fetch failed", observability.Error(err))
		h.writeFailure(w, msgAuthError, err)
		return false
	}

	h.injector.Apply(out, fetched)
	return true
}

// forward sends out upstream inside a client span.
func (h *Handler) forward(ctx context.Context, out *http.Request, target *router.Target) (*http.Response, error) {
	upstreamURL := out.URL.String()

	ctx, span := h.tracer.StartClientSpan(ctx, "proxy.forward", out.Method, upstreamURL)
	out = out.WithContext(ctx)
	if h.tracer.Enabled() {
		observability.InjectTraceContext(ctx, out)
	}

	start := time.Now()
	resp, err := h.client.Do(out)
	if err != nil {
		observability.EndSpan(span, 0, err)
		return nil, NewForwardError(target.Name, upstreamURL, err)
	}
	observability.EndSpan(span, resp.StatusCode, nil)

	getProxyMetrics().upstreamDuration.
		WithLabelValues(target.Name, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	return resp, nil
}

// writeFailure writes a 500 with "<prefix>: <err>", or "<prefix>." when
// errors are redacted.
func (h *Handler) writeFailure(w http.ResponseWriter, prefix string, err error) {
	body := prefix + "."
	if !h.redactErrors {
		body = prefix + ": " + err.Error()
	}
	writeError(w, http.StatusInternalServerError, body)
}

func (h *Handler) recordError(target *router.Target, errType string) {
	getProxyMetrics().errorsTotal.WithLabelValues(target.Name, errType).Inc()
}
