// Package gateway runs the proxy and admin HTTP listeners.
//
// A Gateway moves through stopped, starting, running and stopping.
// Start binds the proxy port (and the admin port when metrics are
// enabled); Stop drains in-flight requests until the shutdown timeout
// expires and then closes the remaining connections.
package gateway
