package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/apiproxy/internal/auth"
	"github.com/vyrodovalexey/apiproxy/internal/config"
	"github.com/vyrodovalexey/apiproxy/internal/gateway"
	"github.com/vyrodovalexey/apiproxy/internal/health"
	"github.com/vyrodovalexey/apiproxy/internal/middleware"
	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/proxy"
	"github.com/vyrodovalexey/apiproxy/internal/router"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	gateway       *gateway.Gateway
	healthChecker *health.Checker
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	rateLimiter   *middleware.RateLimiter
	handler       http.Handler
	adminHandler  http.Handler
}

// newApplication wires the route table, proxy handler, middleware chain
// and listeners from a validated configuration.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("apiproxy")
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerSubsystemMetrics(metrics)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, err
	}

	table, err := router.NewTable(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	client := proxy.NewClient(proxy.DefaultClientConfig())
	authTarget, _ := table.Auth()
	injector := auth.NewInjector(authTarget, client,
		auth.WithLogger(logger),
		auth.WithTracer(tracer),
		auth.WithMetrics(auth.GetSharedMetrics()),
	)

	proxyHandler := proxy.New(table,
		proxy.WithLogger(logger),
		proxy.WithClient(client),
		proxy.WithInjector(injector),
		proxy.WithTracer(tracer),
		proxy.WithRedactErrors(cfg.RedactErrors),
		proxy.WithRequestTimeout(cfg.Server.RequestTimeout.Duration()),
	)

	rateLimit, rateLimiter := middleware.RateLimitFromConfig(&cfg.RateLimit, logger)
	handler := buildMiddlewareChain(proxyHandler, cfg, logger, metrics, tracer, rateLimit)

	healthChecker := health.NewChecker(version, logger)
	healthChecker.RegisterCheck("routes", routesCheck(table))
	adminHandler := buildAdminHandler(cfg, metrics, healthChecker)

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithHandler(handler),
		gateway.WithAdminHandler(adminHandler),
	)
	if err != nil {
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &application{
		config:        cfg,
		logger:        logger,
		gateway:       gw,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		rateLimiter:   rateLimiter,
		handler:       handler,
		adminHandler:  adminHandler,
	}, nil
}

// registerSubsystemMetrics binds the package metric singletons to the
// registry served on the admin port.
func registerSubsystemMetrics(metrics *observability.Metrics) {
	registry := metrics.Registry()
	proxy.InitMetrics(registry)
	middleware.InitMetrics(registry)
	health.InitMetrics(registry)
	auth.GetSharedMetrics().MustRegister(registry)
}

// initTracer creates the tracer from configuration.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tc := cfg.Observability.Tracing
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  tc.ServiceName,
		OTLPEndpoint: tc.OTLPEndpoint,
		SamplingRate: tc.SamplingRate,
		Enabled:      tc.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	return tracer, nil
}

// buildMiddlewareChain builds the middleware chain.
// The execution order (outermost executes first):
// Recovery -> RequestID -> Logging -> Tracing -> Metrics -> BodyLimit ->
// CORS -> RateLimit -> [proxy]
func buildMiddlewareChain(
	handler http.Handler,
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	rateLimit func(http.Handler) http.Handler,
) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		observability.TracingMiddleware(tracer),
		observability.MetricsMiddleware(metrics),
		middleware.BodyLimit(cfg.Server.MaxBodySize, logger),
	}

	if cfg.CORS {
		mws = append(mws, middleware.CORS(middleware.PermissiveCORSConfig()))
	}

	mws = append(mws, rateLimit)

	return middleware.Chain(handler, mws...)
}

// buildAdminHandler serves metrics and health probes.
func buildAdminHandler(
	cfg *config.Config,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(cfg.Observability.Metrics.Path, metrics.Handler())
	healthChecker.Register(mux)
	return mux
}

// routesCheck reports unhealthy when the table has no targets.
func routesCheck(table *router.Table) health.CheckFunc {
	return func() health.Check {
		n := table.Len()
		if n == 0 {
			return health.Check{Status: health.StatusUnhealthy, Message: "no targets"}
		}
		return health.Check{Status: health.StatusHealthy, Message: strconv.Itoa(n) + " targets"}
	}
}

// run starts the listeners and blocks until ctx is done or a listener
// fails, then shuts down.
func (a *application) run(ctx context.Context) error {
	if err := a.gateway.Start(ctx); err != nil {
		a.cleanup(context.Background())
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case serveErr = <-a.gateway.Errors():
		a.logger.Error("listener failed", observability.Error(serveErr))
	}

	return errors.Join(serveErr, a.shutdown())
}

// shutdown drains the gateway and releases background resources.
func (a *application) shutdown() error {
	a.healthChecker.SetDraining(true)

	timeout := a.config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	if stopErr := a.gateway.Stop(ctx); stopErr != nil {
		a.logger.Error("failed to stop gateway gracefully", observability.Error(stopErr))
		err = stopErr
	}

	a.cleanup(ctx)

	a.logger.Info("apiproxy stopped", observability.Duration("shutdown_timeout", timeout))
	return err
}

func (a *application) cleanup(ctx context.Context) {
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
}
