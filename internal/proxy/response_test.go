package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
	"github.com/vyrodovalexey/apiproxy/internal/router"
)

// flushCounter counts Flush calls on top of a recorder.
type flushCounter struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushCounter) Flush() {
	f.flushes++
	f.ResponseRecorder.Flush()
}

// failingWriter accepts headers but fails every body write.
type failingWriter struct {
	header http.Header
	status int
}

func (f *failingWriter) Header() http.Header       { return f.header }
func (f *failingWriter) WriteHeader(status int)    { f.status = status }
func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestResponseStatus(t *testing.T) {
	t.Parallel()

	plain := &router.Target{}
	ignoring := &router.Target{IgnoreErrors: true}

	tests := []struct {
		status int
		target *router.Target
		want   int
	}{
		{status: 200, target: plain, want: 200},
		{status: 500, target: plain, want: 500},
		{status: 302, target: plain, want: 302},
		{status: 200, target: ignoring, want: 200},
		{status: 204, target: ignoring, want: 204},
		{status: 299, target: ignoring, want: 299},
		{status: 199, target: ignoring, want: 200},
		{status: 302, target: ignoring, want: 200},
		{status: 404, target: ignoring, want: 200},
		{status: 503, target: ignoring, want: 200},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResponseStatus(tt.status, tt.target), "status %d ignore=%v", tt.status, tt.target.IgnoreErrors)
	}
}

func TestStreamResponse_ChunksAndFlushes(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("a", 2*streamBufferSize+100)
	resp := &http.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"X-Multi": {"1", "2"}, "Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(payload)),
	}

	h := New(newTestTable(t, nil, usersTarget("stream")), WithClient(&recorder{}))
	w := &flushCounter{ResponseRecorder: httptest.NewRecorder()}

	err := h.streamResponse(w, resp, &router.Target{Name: "stream"}, observability.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, payload, w.Body.String())
	assert.Equal(t, []string{"1", "2"}, w.Header().Values("X-Multi"))
	assert.Equal(t, 4, w.flushes, "one flush after headers and one per chunk")
}

func TestStreamResponse_IgnoredErrorCounted(t *testing.T) {
	t.Parallel()

	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("bad gateway")),
	}
	target := &router.Target{Name: "stream-ignored", IgnoreErrors: true}

	h := New(newTestTable(t, nil, usersTarget("stream-ignored")), WithClient(&recorder{}))
	w := httptest.NewRecorder()

	require.NoError(t, h.streamResponse(w, resp, target, observability.NopLogger()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bad gateway", w.Body.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(getProxyMetrics().statusRewrites.WithLabelValues(target.Name)))
}

func TestStreamResponse_WriteErrorStopsRelay(t *testing.T) {
	t.Parallel()

	body := io.NopCloser(strings.NewReader(strings.Repeat("x", 3*streamBufferSize)))
	resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}

	h := New(newTestTable(t, nil, usersTarget("stream-fail")), WithClient(&recorder{}))
	w := &failingWriter{header: http.Header{}}

	err := h.streamResponse(w, resp, &router.Target{Name: "stream-fail"}, observability.NopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, errClientWrite)
	assert.Equal(t, http.StatusOK, w.status)
}

func TestStreamResponse_ReadError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("upstream reset")
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(io.MultiReader(strings.NewReader("partial"), &errReader{err: readErr})),
	}

	h := New(newTestTable(t, nil, usersTarget("stream-read")), WithClient(&recorder{}))
	w := httptest.NewRecorder()

	err := h.streamResponse(w, resp, &router.Target{Name: "stream-read"}, observability.NopLogger())
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, "partial", w.Body.String())
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

func TestCopyResponseHeaders_SkipsInvalid(t *testing.T) {
	t.Parallel()

	src := http.Header{
		"X-Good":     {"ok"},
		"Bad Name":   {"value"},
		"X-Bad-Val":  {"line1\nline2", "fine"},
		"Set-Cookie": {"a=1", "b=2"},
	}
	target := &router.Target{Name: "skip-headers"}

	h := New(newTestTable(t, nil, usersTarget("skip-headers")), WithClient(&recorder{}))
	dst := http.Header{}

	assert.NotPanics(t, func() {
		h.copyResponseHeaders(dst, src, target, observability.NopLogger())
	})

	assert.Equal(t, []string{"ok"}, dst["X-Good"])
	assert.Equal(t, []string{"a=1", "b=2"}, dst["Set-Cookie"])
	assert.Equal(t, []string{"fine"}, dst["X-Bad-Val"])
	assert.NotContains(t, dst, "Bad Name")
	assert.Equal(t, float64(2), testutil.ToFloat64(getProxyMetrics().skippedHeaders.WithLabelValues(target.Name)))
}

func TestHandler_UpstreamInvalidHeader(t *testing.T) {
	t.Parallel()

	upstream := &recorder{header: http.Header{"X-Ok": {"1"}, "X-Broken": {"a\r\nInjected: yes"}}, body: "body"}
	h := New(newTestTable(t, nil, usersTarget("handler-skip")), WithClient(upstream))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/x", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Ok"))
	assert.Empty(t, rec.Header().Get("X-Broken"))
	assert.Empty(t, rec.Header().Get("Injected"))
	assert.Equal(t, "body", rec.Body.String())
}

func TestCopyResponseHeaders_ReplacesPresetValues(t *testing.T) {
	t.Parallel()

	h := New(newTestTable(t, nil, usersTarget("replace")), WithClient(&recorder{}))
	target := &router.Target{Name: "replace"}

	dst := http.Header{
		"Access-Control-Allow-Origin": {"https://app.example.com"},
		"X-Request-Id":                {"generated-id"},
		"Vary":                        {"Origin"},
	}
	src := http.Header{
		"Access-Control-Allow-Origin": {"*"},
		"X-Request-Id":                {"upstream-id"},
		"X-Only-Invalid":              {"bad\x00value"},
	}
	dst["X-Only-Invalid"] = []string{"kept"}

	h.copyResponseHeaders(dst, src, target, observability.NopLogger())

	assert.Equal(t, []string{"*"}, dst["Access-Control-Allow-Origin"])
	assert.Equal(t, []string{"upstream-id"}, dst["X-Request-Id"])
	assert.Equal(t, []string{"Origin"}, dst["Vary"], "headers the upstream does not send are kept")
	assert.Equal(t, []string{"kept"}, dst["X-Only-Invalid"], "an all-invalid upstream header leaves the preset value")
}
