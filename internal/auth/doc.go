// Package auth implements the credential fetch performed before
// forwarding requests to targets that require authentication.
//
// The Injector sends one request to the configured auth endpoint,
// copying only the configured request headers from the inbound request,
// and returns the auth response headers. Apply then copies the
// configured response headers onto the outbound request.
//
//	headers, err := injector.FetchHeaders(ctx, r.Header)
//	if err != nil {
//	    // 500 Proxy auth error
//	}
//	injector.Apply(outReq, headers)
package auth
