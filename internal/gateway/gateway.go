package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/config"
	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// Listener names.
const (
	listenerProxy = "proxy"
	listenerAdmin = "admin"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway owns the proxy listener and the optional admin listener.
type Gateway struct {
	config       *config.Config
	logger       observability.Logger
	handler      http.Handler
	adminHandler http.Handler
	state        atomic.Int32
	startTime    time.Time
	mu           sync.RWMutex
	listeners    []*Listener
	errCh        chan error
	done         chan struct{}

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// WithHandler sets the handler served on the proxy port.
func WithHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.handler = handler
	}
}

// WithAdminHandler sets the handler served on the metrics port. The
// admin listener only starts when metrics are enabled.
func WithAdminHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.adminHandler = handler
	}
}

// New creates a new Gateway instance.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	g := &Gateway{
		config:          cfg,
		logger:          observability.NopLogger(),
		shutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.handler == nil {
		return nil, ErrNilHandler
	}
	if g.shutdownTimeout <= 0 {
		g.shutdownTimeout = config.DefaultShutdownTimeout
	}

	g.state.Store(int32(StateStopped))

	return g, nil
}

// Start binds every listener. On failure the listeners already started
// are stopped again.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("address", g.config.ListenAddress()),
		observability.Int("targets", len(g.config.Targets)),
	)

	listeners := g.createListeners()

	for i, listener := range listeners {
		if err := listener.Start(ctx); err != nil {
			g.stopListeners(ctx, listeners[:i])
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", listener.Name(), err)
		}
	}

	errCh := make(chan error, len(listeners))
	done := make(chan struct{})
	for _, listener := range listeners {
		go forwardErrors(listener, errCh, done)
	}

	g.mu.Lock()
	g.listeners = listeners
	g.errCh = errCh
	g.done = done
	g.startTime = time.Now()
	g.mu.Unlock()

	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.Int("listeners", len(listeners)),
	)

	return nil
}

// Stop stops the gateway gracefully. Without a deadline on ctx the
// configured shutdown timeout applies.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	g.mu.RLock()
	listeners := g.listeners
	done := g.done
	g.mu.RUnlock()

	close(done)
	g.stopListeners(ctx, listeners)

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped")

	return nil
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Listeners returns the started listeners.
func (g *Gateway) Listeners() []*Listener {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Listener, len(g.listeners))
	copy(out, g.listeners)
	return out
}

// Errors delivers serve errors from every listener of the current run.
// It returns nil before the first Start.
func (g *Gateway) Errors() <-chan error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.errCh
}

func forwardErrors(l *Listener, errCh chan<- error, done <-chan struct{}) {
	select {
	case err := <-l.Errors():
		errCh <- fmt.Errorf("listener %s: %w", l.Name(), err)
	case <-done:
	}
}

func (g *Gateway) createListeners() []*Listener {
	server := g.config.Server

	listeners := []*Listener{
		NewListener(ListenerConfig{
			Name:              listenerProxy,
			Address:           g.config.ListenAddress(),
			ReadHeaderTimeout: server.ReadHeaderTimeout.Duration(),
			IdleTimeout:       server.IdleTimeout.Duration(),
		}, g.handler, WithListenerLogger(g.logger)),
	}

	if g.adminHandler != nil && g.config.Observability.Metrics.Enabled {
		listeners = append(listeners, NewListener(ListenerConfig{
			Name:              listenerAdmin,
			Address:           g.config.MetricsAddress(),
			ReadHeaderTimeout: server.ReadHeaderTimeout.Duration(),
			IdleTimeout:       server.IdleTimeout.Duration(),
		}, g.adminHandler, WithListenerLogger(g.logger)))
	}

	return listeners
}

func (g *Gateway) stopListeners(ctx context.Context, listeners []*Listener) {
	var wg sync.WaitGroup

	for _, listener := range listeners {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			if err := l.Stop(ctx); err != nil {
				g.logger.Error("failed to stop listener",
					observability.String("name", l.Name()),
					observability.Error(err),
				)
			}
		}(listener)
	}

	wg.Wait()
}
