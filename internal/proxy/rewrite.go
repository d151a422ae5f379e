package proxy

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/apiproxy/internal/router"
	"github.com/vyrodovalexey/apiproxy/internal/util"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerUserAgent    = "User-Agent"
)

// UpstreamURL builds the upstream URL for an inbound request: scheme and
// host from the target, the escaped inbound path with its source prefix
// replaced, and the raw query when non-empty.
func UpstreamURL(r *http.Request, target *router.Target) string {
	var sb strings.Builder
	sb.WriteString(target.Scheme())
	sb.WriteString("://")
	sb.WriteString(target.Host)
	sb.WriteString(target.RewritePath(r.URL.EscapedPath()))
	if r.URL.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(r.URL.RawQuery)
	}
	return sb.String()
}

// NewOutboundRequest builds the request forwarded to target. auth may be
// nil; when set, the headers it sends to the auth endpoint are not
// forwarded upstream.
func NewOutboundRequest(
	ctx context.Context,
	r *http.Request,
	target *router.Target,
	auth *router.AuthTarget,
) (*http.Request, error) {
	upstreamURL := UpstreamURL(r, target)

	body, contentLength, err := outboundBody(r)
	if err != nil {
		return nil, NewRequestBodyError(target.Name, upstreamURL, err)
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, body)
	if err != nil {
		return nil, NewInvalidURLError(target.Name, upstreamURL, err)
	}
	out.ContentLength = contentLength
	if body == nil {
		out.Body = http.NoBody
	}

	copyRequestHeaders(out.Header, r.Header, auth)
	out.Header.Set(headerForwardedFor, forwardedFor(r))

	// An explicitly empty User-Agent stops the client from adding its own.
	if _, ok := out.Header[headerUserAgent]; !ok {
		out.Header[headerUserAgent] = []string{""}
	}

	out.Host = target.Host

	return out, nil
}

// copyRequestHeaders copies every inbound header except X-Forwarded-For,
// Host and, when auth is set, the headers destined for the auth endpoint.
func copyRequestHeaders(dst, src http.Header, auth *router.AuthTarget) {
	for name, values := range src {
		canonical := http.CanonicalHeaderKey(name)
		switch {
		case canonical == headerForwardedFor, canonical == "Host":
			continue
		case auth != nil && auth.IsRequestHeader(canonical):
			continue
		}
		dst[canonical] = append(dst[canonical], values...)
	}
}

// forwardedFor returns the X-Forwarded-For value for the outbound
// request: the inbound chain with the client IP appended, or just the
// client IP when the inbound header is absent or empty.
func forwardedFor(r *http.Request) string {
	clientIP := util.ClientIP(r)

	prior := strings.Join(r.Header.Values(headerForwardedFor), ", ")
	if strings.TrimSpace(prior) == "" {
		return clientIP
	}
	return prior + ", " + clientIP
}

// outboundBody returns the body to forward and its length. Empty bodies
// are dropped. Bodies of unknown length are peeked so that an empty
// chunked body is also dropped; everything else is streamed through. A
// peek that fails with anything but io.EOF is returned as an error.
func outboundBody(r *http.Request) (io.ReadCloser, int64, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil, 0, nil
	}

	if r.ContentLength > 0 {
		return r.Body, r.ContentLength, nil
	}

	br := bufio.NewReader(r.Body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	return &peekedBody{Reader: br, closer: r.Body}, -1, nil
}

// peekedBody reads through a buffered reader and closes the original
// body.
type peekedBody struct {
	*bufio.Reader
	closer io.Closer
}

// Close closes the underlying body.
func (b *peekedBody) Close() error {
	return b.closer.Close()
}
