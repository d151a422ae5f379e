// Package config provides configuration types and loading for the proxy.
//
// Configuration is a single YAML document describing the listen port,
// the ordered list of proxy targets, the optional auth endpoint and the
// ambient server, rate limit and observability settings.
//
// # Features
//
//   - YAML configuration file loading
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Defaults for every optional field
//   - Validation with aggregated, path-qualified error reporting
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
package config
