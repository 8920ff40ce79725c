package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-resolver/internal/config"
	"github.com/JakeFAU/gallery-resolver/internal/logging"
)

type appKeyType struct{}

// newApp is the application factory. Tests replace it to inject fakes.
var newApp = buildApp

// rootCmd owns the services its pre-run hook builds so they are released
// even when a subcommand fails.
type rootCmd struct {
	*cobra.Command
	app *app
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *rootCmd {
	var cfgFile string
	root := &rootCmd{}

	root.Command = &cobra.Command{
		Use:   "resolver",
		Short: "Resolves board listing pages into posts with verified media URLs.",
		Long: `resolver fetches one listing page of a tag query, extracts every post on it
and probes the media CDN for each post's real file extension.`,
		SilenceUsage: true,

		// Runs before every subcommand: load config, build logger and services,
		// and stash them on the command context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				syncLogger(logger)
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			root.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, a))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); RESOLVER_* env vars override it")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSearchCmd())
	return root
}

// execute runs the command tree and then releases the application services.
func (r *rootCmd) execute() error {
	defer func() {
		if r.app != nil {
			r.app.Close()
			r.app = nil
		}
	}()
	if err := r.Execute(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	return nil
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKeyType{}).(*app)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

func syncLogger(logger *zap.Logger) {
	// Sync on a console sink returns EINVAL on some platforms; nothing useful to do with it.
	_ = logger.Sync()
}
