// Command authrelay runs the OAuth login relay: it authenticates users
// against a configured OAuth 2.0 provider and manages the resulting local
// users and sessions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"authrelay/internal/app"
	"authrelay/internal/config"
	httpserver "authrelay/internal/http"
	"authrelay/internal/observability/logger"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "authrelay",
		Short:         "OAuth 2.0 login relay and user manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), configCheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		migrate    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := config.NewResolver(configPath)
			if err != nil {
				return err
			}
			cfg := resolver.Snapshot()

			logger.Init(logger.Config{Env: cfg.App.Env, Level: "info", ServiceName: "authrelay"})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, resolver, app.Options{Migrate: migrate})
			if err != nil {
				return err
			}
			defer a.Close()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := resolver.Watch(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				return httpserver.Serve(ctx, cfg.Server.Addr, a.Handler)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the settings file")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func configCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "config-check",
		Short: "Validate the settings file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d provider(s) configured\n", len(cfg.OAuth.Providers))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the settings file")
	return cmd
}
