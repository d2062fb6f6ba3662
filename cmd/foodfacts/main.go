package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/config"
	"github.com/faizanr27/food-facts/internal/observability"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "foodfacts",
		Short:         "Browse the Open Food Facts catalog",
		Long:          "foodfacts serves a web catalog of Open Food Facts products and can query the catalog from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file merged under the process environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newServeCmd(opts), newSearchCmd(opts), newShowCmd(opts))
	return root
}

// load reads configuration and builds the process logger.
func (o *rootOptions) load(ctx context.Context) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(ctx, config.WithEnvFile(o.envFile))
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := observability.NewLogger(level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("initialise logger: %w", err)
	}
	return cfg, logger.Named("foodfacts"), nil
}
