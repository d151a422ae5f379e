package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	})
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewListener(t *testing.T) {
	t.Parallel()

	cfg := ListenerConfig{Name: "proxy", Address: "127.0.0.1:0"}
	l := NewListener(cfg, okHandler("ok"), WithListenerLogger(observability.NopLogger()))

	assert.Equal(t, "proxy", l.Name())
	assert.Equal(t, "127.0.0.1:0", l.Address())
	assert.False(t, l.IsRunning())
	assert.NotNil(t, l.Errors())
}

func TestListener_StartServeStop(t *testing.T) {
	t.Parallel()

	l := NewListener(ListenerConfig{
		Name:              "proxy",
		Address:           "127.0.0.1:0",
		ReadHeaderTimeout: time.Second,
		IdleTimeout:       time.Second,
	}, okHandler("hello"))

	require.NoError(t, l.Start(context.Background()))
	assert.True(t, l.IsRunning())
	assert.NotEqual(t, "127.0.0.1:0", l.Address())

	status, body := get(t, "http://"+l.Address()+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", body)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))
	assert.False(t, l.IsRunning())
}

func TestListener_StartTwice(t *testing.T) {
	t.Parallel()

	l := NewListener(ListenerConfig{Name: "proxy", Address: "127.0.0.1:0"}, okHandler(""))
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop(context.Background()) })

	err := l.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrListenerRunning)
}

func TestListener_StartAddressInUse(t *testing.T) {
	t.Parallel()

	var lc net.ListenConfig
	taken, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })

	l := NewListener(ListenerConfig{Name: "proxy", Address: taken.Addr().String()}, okHandler(""))
	err = l.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
	assert.False(t, l.IsRunning())
}

func TestListener_StopNotStarted(t *testing.T) {
	t.Parallel()

	l := NewListener(ListenerConfig{Name: "proxy", Address: "127.0.0.1:0"}, okHandler(""))
	assert.NoError(t, l.Stop(context.Background()))
}

func TestListener_StopWaitsForInflight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = io.WriteString(w, "done")
	})

	l := NewListener(ListenerConfig{Name: "proxy", Address: "127.0.0.1:0"}, handler)
	require.NoError(t, l.Start(context.Background()))

	result := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + l.Address() + "/")
		if err != nil {
			result <- err.Error()
			return
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		result <- string(body)
	}()

	<-started
	stopped := make(chan error, 1)
	go func() { stopped <- l.Stop(context.Background()) }()

	time.AfterFunc(50*time.Millisecond, func() { close(release) })

	assert.Equal(t, "done", <-result)
	assert.NoError(t, <-stopped)
}
