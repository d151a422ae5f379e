package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/router"
)

// maxDrainBytes bounds how much of an auth response body is read before
// closing it, so that small bodies let the connection be reused.
const maxDrainBytes = 64 << 10

// Error type label values.
const (
	errTypeNotConfigured = "not_configured"
	errTypeRequest       = "request"
	errTypeTransport     = "transport"
	errTypeCanceled      = "canceled"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Injector fetches credentials from the auth target and applies them to
// outbound requests. It is safe for concurrent use.
type Injector struct {
	target  *router.AuthTarget
	client  Doer
	logger  observability.Logger
	metrics *Metrics
	tracer  *observability.Tracer
}

// Option is a functional option for configuring the Injector.
type Option func(*Injector)

// WithLogger sets the logger for the injector.
func WithLogger(logger observability.Logger) Option {
	return func(i *Injector) {
		i.logger = logger
	}
}

// WithMetrics sets the metrics for the injector.
func WithMetrics(metrics *Metrics) Option {
	return func(i *Injector) {
		i.metrics = metrics
	}
}

// WithTracer sets the tracer used for auth client spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(i *Injector) {
		i.tracer = tracer
	}
}

// NewInjector creates an Injector. target may be nil when no auth target
// is configured; FetchHeaders then fails with ErrAuthNotConfigured.
func NewInjector(target *router.AuthTarget, client Doer, opts ...Option) *Injector {
	i := &Injector{
		target:  target,
		client:  client,
		logger:  observability.NopLogger(),
		metrics: GetSharedMetrics(),
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.client == nil {
		i.client = http.DefaultClient
	}

	return i
}

// Configured reports whether an auth target is set.
func (i *Injector) Configured() bool {
	return i.target != nil
}

// FetchHeaders calls the auth endpoint once and returns its response
// headers. Only headers named in the auth target's request header list
// are copied from inbound. Any HTTP response counts as success, whatever
// its status.
func (i *Injector) FetchHeaders(ctx context.Context, inbound http.Header) (http.Header, error) {
	if i.target == nil {
		i.metrics.RecordError(errTypeNotConfigured, 0)
		return nil, ErrAuthNotConfigured
	}

	start := time.Now()
	url := i.target.URL()

	ctx, span := i.tracer.StartClientSpan(ctx, "auth.fetch", i.target.Method, url)

	req, err := http.NewRequestWithContext(ctx, i.target.Method, url, http.NoBody)
	if err != nil {
		observability.EndSpan(span, 0, err)
		i.metrics.RecordError(errTypeRequest, time.Since(start))
		return nil, NewFetchError(url, "invalid auth request", err)
	}

	for _, name := range i.target.RequestHeaders {
		for _, value := range inbound.Values(name) {
			req.Header.Add(name, value)
		}
	}

	if i.tracer.Enabled() {
		observability.InjectTraceContext(ctx, req)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		observability.EndSpan(span, 0, err)
		errType := errTypeTransport
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			errType = errTypeCanceled
		}
		i.metrics.RecordError(errType, time.Since(start))
		return nil, NewFetchError(url, "failed to fetch auth", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	observability.EndSpan(span, resp.StatusCode, nil)
	i.metrics.RecordSuccess(strconv.Itoa(resp.StatusCode), time.Since(start))

	logger := i.logger.WithContext(ctx)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("auth endpoint returned non-success status",
			observability.String("url", url),
			observability.Int("status", resp.StatusCode),
		)
	} else {
		logger.Debug("auth headers fetched",
			observability.String("url", url),
			observability.Int("status", resp.StatusCode),
			observability.Duration("duration", time.Since(start)),
		)
	}

	return resp.Header, nil
}

// Apply copies each configured response header present in fetched onto
// out, replacing any existing values.
func (i *Injector) Apply(out *http.Request, fetched http.Header) {
	if i.target == nil || fetched == nil {
		return
	}

	for _, name := range i.target.ResponseHeaders {
		values := fetched.Values(name)
		if len(values) == 0 {
			continue
		}
		out.Header[name] = append([]string(nil), values...)
	}
}
