package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// maxHeaderBytes bounds inbound request headers.
const maxHeaderBytes = 1 << 20

// ListenerConfig holds the address and server timeouts of a listener.
type ListenerConfig struct {
	Name              string
	Address           string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// Listener is one HTTP server bound to one address.
type Listener struct {
	config  ListenerConfig
	handler http.Handler
	logger  observability.Logger

	mu      sync.Mutex
	server  *http.Server
	addr    net.Addr
	running atomic.Bool
	errCh   chan error
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a new listener.
func NewListener(cfg ListenerConfig, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
		errCh:   make(chan error, 1),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.config.Name
}

// Address returns the bound address once started, else the configured
// one.
func (l *Listener) Address() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.addr != nil {
		return l.addr.String()
	}
	return l.config.Address
}

// Errors delivers the error that ended serving, if any.
func (l *Listener) Errors() <-chan error {
	return l.errCh
}

// Start binds the address and serves in the background. Write timeouts
// are left unset so long responses can stream.
func (l *Listener) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrListenerRunning, l.config.Name)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.config.Address)
	if err != nil {
		l.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}

	server := &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: l.config.ReadHeaderTimeout,
		IdleTimeout:       l.config.IdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
		ErrorLog:          observability.NewStdLogAt(l.logger, "http server"),
	}

	l.mu.Lock()
	l.server = server
	l.addr = ln.Addr()
	l.mu.Unlock()

	l.logger.Info("listener started",
		observability.String("name", l.config.Name),
		observability.String("address", ln.Addr().String()),
	)

	go l.serve(server, ln)

	return nil
}

func (l *Listener) serve(server *http.Server, ln net.Listener) {
	err := server.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("name", l.config.Name),
			observability.Error(err),
		)
		l.errCh <- err
	}
	l.running.Store(false)
}

// Stop shuts the server down, waiting for in-flight requests until ctx
// expires; remaining connections are then closed.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()

	if server == nil || !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.config.Name),
	)

	if err := server.Shutdown(ctx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped",
		observability.String("name", l.config.Name),
	)

	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
