package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"play-llm-server/app"
	"play-llm-server/config"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "play-llm-server",
		Short:         "Game platform where users play strategy games against LLMs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var skipMigrate bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, task consumer and session sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !skipMigrate {
					if err := a.Migrate(); err != nil {
						return err
					}
				}
				return a.Serve(ctx)
			})
		},
	}
	serve.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "don't migrate the schema on startup")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(_ context.Context, a *app.App) error {
				return a.Migrate()
			})
		},
	}

	root.AddCommand(serve, migrate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Printf("❌ %v", err)
		stop()
		os.Exit(1)
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("⚠️  shutdown: %v", err)
		}
	}()

	return fn(ctx, a)
}
