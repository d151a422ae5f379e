// Package health provides the health, readiness and liveness endpoints
// served on the admin port.
//
// Readiness aggregates registered checks and turns unhealthy while the
// process is draining for shutdown:
//
//	checker := health.NewChecker(version, logger)
//	checker.RegisterCheck("routes", func() health.Check {
//	    return health.Check{Status: health.StatusHealthy}
//	})
//	checker.Register(mux)
package health
