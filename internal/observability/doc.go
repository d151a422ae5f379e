// Package observability provides logging, metrics, and tracing
// functionality for the proxy.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request forwarded",
//	    observability.String("target", "users"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// HTTP request metrics on a dedicated Prometheus registry:
//
//	metrics := observability.NewMetrics("apiproxy")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with OTLP/gRPC export. Outbound calls get client
// spans and W3C trace context headers:
//
//	tracer, err := observability.NewTracer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability
