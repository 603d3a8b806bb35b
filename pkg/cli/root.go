package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pkgindex/pkg/config"
	"github.com/platinummonkey/pkgindex/pkg/observability"
)

// rootOptions are flags shared by every command. Set flags override the
// PKGINDEX_* environment.
type rootOptions struct {
	driver      string
	dsn         string
	logLevel    string
	logFormat   string
	metricsFile string
	cache       bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "pkgindex",
		Short:         "pkgindex - dependency integrity checks for a package index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.driver, "driver", "", "Index database driver (sqlite3 or postgres)")
	flags.StringVar(&opts.dsn, "dsn", "", "Index database DSN")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json or text)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.BoolVar(&opts.cache, "cache", false, "Serve reads through the index cache")

	root.AddCommand(newInitCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	root.AddCommand(newAddCommand(opts))
	root.AddCommand(newCheckDeleteCommand(opts))
	root.AddCommand(newRemoveCommand(opts))
	root.AddCommand(newGraphCommand(opts))
	root.AddCommand(newHealthCommand(opts))
	root.AddCommand(newWatchCommand(opts))

	return root
}

// Execute runs the CLI with ctx
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// config loads the environment configuration and applies flag overrides.
func (o *rootOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromEnv()

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Index.Driver = o.driver
	}
	if flags.Changed("dsn") {
		cfg.Index.DSN = o.dsn
	}
	if flags.Changed("log-level") {
		level, err := observability.ParseLogLevel(o.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Observability.LogLevel = level
	}
	if flags.Changed("log-format") {
		cfg.Observability.LogFormat = o.logFormat
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = o.metricsFile
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled = o.cache
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// withApp opens the index for one command run and closes it afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, a)
}
