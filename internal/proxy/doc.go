// Package proxy implements the request pipeline of the API proxy.
//
// For every inbound request the Handler matches a target in the route
// table, rewrites the path, filters and rewrites headers, optionally
// fetches credentials from the auth endpoint, forwards the request with
// a shared HTTP client and streams the upstream response back without
// buffering it. Requests that match no target get a fixed landing page
// on "/" and a fixed 404 elsewhere.
//
// # Usage
//
//	client := proxy.NewClient(proxy.DefaultClientConfig())
//	handler := proxy.New(table,
//	    proxy.WithClient(client),
//	    proxy.WithInjector(auth.NewInjector(authTarget, client)),
//	    proxy.WithLogger(logger),
//	)
//	http.ListenAndServe(":8080", handler)
package proxy
