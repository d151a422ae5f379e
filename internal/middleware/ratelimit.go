package middleware

import (
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/apiproxy/internal/config"
	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/util"
)

// Rate limiter default configuration constants.
const (
	// DefaultClientTTL is the default TTL for client rate limiter entries.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup operations.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup operations.
	MaxCleanupInterval = time.Minute
)

// clientEntry holds a rate limiter and its last access time for TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a token bucket limiter, either global or keyed by
// client IP.
type RateLimiter struct {
	limiter   *rate.Limiter
	perClient bool
	rps       int
	burst     int
	logger    observability.Logger
	clientTTL time.Duration

	mu       sync.Mutex
	clients  map[string]*clientEntry
	stopCh   chan struct{}
	stopOnce sync.Once
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithClientTTL sets how long an idle client entry is kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.clientTTL = ttl
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rps, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		clients:   make(map[string]*clientEntry),
		rps:       rps,
		burst:     burst,
		logger:    observability.NopLogger(),
		clientTTL: DefaultClientTTL,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow checks if a request is allowed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.perClient {
		return rl.limiter.Allow()
	}

	rl.mu.Lock()
	entry, ok := rl.clients[clientIP]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.clients[clientIP] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Clients returns the number of tracked client entries.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldClients removes client entries idle for longer than maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for clientIP, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, clientIP)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup periodically drops idle client entries until Stop is
// called.
func (rl *RateLimiter) StartAutoCleanup() {
	interval := min(max(rl.clientTTL/2, MinCleanupInterval), MaxCleanupInterval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(rl.clientTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// RateLimit returns a middleware that answers 429 once the limiter is
// exhausted.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := util.ClientIP(r)

			if !rl.Allow(clientIP) {
				rl.logger.WithContext(r.Context()).Warn("rate limit exceeded",
					observability.String("client_ip", clientIP),
					observability.String("path", r.URL.Path),
				)

				GetMiddlewareMetrics().rateLimitRejected.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.Header().Set(HeaderRetryAfter, "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, ErrRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitFromConfig creates rate limit middleware from configuration.
// The returned limiter is nil when rate limiting is disabled; otherwise
// the caller stops it during shutdown.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	logger observability.Logger,
) (func(http.Handler) http.Handler, *RateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}

	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.PerClient, WithRateLimiterLogger(logger))
	if cfg.PerClient {
		rl.StartAutoCleanup()
	}

	return RateLimit(rl), rl
}
