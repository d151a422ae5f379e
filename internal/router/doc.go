// Package router holds the immutable route table of the proxy.
//
// A Table is built once from validated configuration and shared by
// pointer across all request goroutines. Targets are evaluated in
// configured order and the first target whose source path is a literal
// prefix of the request path wins. No normalization is applied, so
// "/v1" also matches "/v1x/...".
//
// # Usage
//
//	table, err := router.NewTable(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	target, ok := table.Match(r.URL.EscapedPath())
//	if ok {
//	    upstreamPath := target.RewritePath(r.URL.EscapedPath())
//	}
package router
