// Package main is the entry point for the API proxy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/apiproxy/internal/config"
	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Environment variables backing the global flags.
const (
	envConfigPath = "APIPROXY_CONFIG"
	envLogLevel   = "APIPROXY_LOG_LEVEL"
	envLogFormat  = "APIPROXY_LOG_FORMAT"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command. Running it without a subcommand
// starts the proxy.
func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "apiproxy",
		Short: "Reverse proxy with prefix routing and auth header injection",
		Long: `apiproxy forwards requests whose path starts with a configured
source prefix to the matching upstream, rewriting the prefix to the
target's destination path. Targets marked useAuth first fetch
credentials from the auth endpoint and forward its response headers.

Example:
  apiproxy --config /etc/apiproxy/config.yaml`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c",
		getEnvOrDefault(envConfigPath, "config.yaml"), "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level",
		getEnvOrDefault(envLogLevel, "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format",
		getEnvOrDefault(envLogFormat, "json"), "Log format (json, console)")

	rootCmd.AddCommand(newValidateCmd(flags), newVersionCmd())

	return rootCmd
}

// newValidateCmd loads and validates the configuration without serving.
func newValidateCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "validate",
		Short:        "Validate the configuration file and exit",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration %s is valid: %d targets, auth %s\n",
				flags.configPath, len(cfg.Targets), authState(cfg))
			return err
		},
	}
}

// newVersionCmd prints build information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "apiproxy version %s\n  Build time: %s\n  Git commit: %s\n",
		version, buildTime, gitCommit)
	return err
}

// runServe builds the application and serves until ctx is done.
func runServe(ctx context.Context, flags *cliFlags) error {
	logCfg := observability.DefaultLogConfig()
	logCfg.Level = flags.logLevel
	logCfg.Format = flags.logFormat

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting apiproxy",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		logger.Error("failed to load configuration", observability.Error(err))
		return err
	}

	logger.Info("configuration loaded",
		observability.Int("targets", len(cfg.Targets)),
		observability.String("auth", authState(cfg)),
		observability.Bool("cors", cfg.CORS),
	)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", observability.Error(err))
		return err
	}

	return app.run(ctx)
}

// loadConfig resolves, loads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func authState(cfg *config.Config) string {
	if cfg.Auth == nil {
		return "none"
	}
	return cfg.Auth.Method + " " + cfg.Auth.Host + cfg.Auth.Path
}
