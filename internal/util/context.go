package util

import (
	"context"
	"sync"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyStartTime ctxKey = "start_time"
	ctxKeyRoute     ctxKey = "route"
)

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// RouteHolder is a request-scoped slot for the matched target name.
type RouteHolder struct {
	mu   sync.RWMutex
	name string
}

// Set stores the route name.
func (h *RouteHolder) Set(name string) {
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()
}

// Get returns the stored route name.
func (h *RouteHolder) Get() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// ContextWithRouteHolder returns a context carrying a RouteHolder. If the
// context already carries one, it is reused.
func ContextWithRouteHolder(ctx context.Context) (context.Context, *RouteHolder) {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		return ctx, h
	}
	h := &RouteHolder{}
	return context.WithValue(ctx, ctxKeyRoute, h), h
}

// SetRoute records the matched route name on the context's RouteHolder.
// It is a no-op when no holder is installed.
func SetRoute(ctx context.Context, name string) {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		h.Set(name)
	}
}

// RouteFromContext extracts the route name from context.
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(ctxKeyRoute).(*RouteHolder); ok {
		return h.Get()
	}
	return ""
}
