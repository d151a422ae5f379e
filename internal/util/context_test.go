package util

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithStartTime(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ctx := ContextWithStartTime(context.Background(), now)

	assert.Equal(t, now, StartTimeFromContext(ctx))
	assert.True(t, StartTimeFromContext(context.Background()).IsZero())
}

func TestRouteHolder(t *testing.T) {
	t.Parallel()

	ctx, holder := ContextWithRouteHolder(context.Background())
	require.NotNil(t, holder)
	assert.Empty(t, RouteFromContext(ctx))

	// Inner handlers see the same holder through derived contexts.
	inner := context.WithValue(ctx, ctxKey("other"), "x")
	SetRoute(inner, "users")

	assert.Equal(t, "users", RouteFromContext(ctx))
	assert.Equal(t, "users", holder.Get())
}

func TestContextWithRouteHolder_Reuses(t *testing.T) {
	t.Parallel()

	ctx, first := ContextWithRouteHolder(context.Background())
	ctx2, second := ContextWithRouteHolder(ctx)

	assert.Same(t, first, second)
	assert.Equal(t, ctx, ctx2)
}

func TestSetRoute_NoHolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.NotPanics(t, func() { SetRoute(ctx, "users") })
	assert.Empty(t, RouteFromContext(ctx))
}

func TestRouteHolder_Concurrent(t *testing.T) {
	t.Parallel()

	ctx, _ := ContextWithRouteHolder(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetRoute(ctx, "users")
			_ = RouteFromContext(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, "users", RouteFromContext(ctx))
}
