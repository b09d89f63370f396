package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/playersync/internal/api"
	"github.com/mcoot/playersync/internal/config"
	"github.com/mcoot/playersync/internal/factory"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			envCfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				envCfg.HTTPPort = port
			}
			if cfg.Verbose {
				envCfg.LogLevel = "debug"
			}

			logger := envCfg.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, envCfg, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Listen port (env: PLAYERSYNC_HTTP_PORT)")

	return cmd
}

// serve runs the API until ctx is cancelled, then shuts down and flushes saves
func serve(ctx context.Context, envCfg config.Config, logger *slog.Logger) error {
	app, err := factory.New(factory.ConfigFrom(envCfg, logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		_ = app.Close(context.Background())
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Auth:        app.Auth,
		Progression: app.Progression,
		Hub:         app.Hub,
		Credentials: app.Provider,
	})
	server := api.NewServer(router, api.ServerConfigFrom(envCfg), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// Close the hub first so open event streams end and Shutdown can finish
		app.Hub.Close()
		serveErr = server.Shutdown(context.Background())
	}

	if err := app.Close(context.Background()); err != nil {
		logger.Error("failed to close application", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return serveErr
}
