package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"status-relay/src/config"
	"status-relay/src/gitlab"
	"status-relay/src/logger"
	"status-relay/src/metrics"
	"status-relay/src/pipeline"
	"status-relay/src/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Listen on PORT for POST /webhook?repoId=<id>&tokenName=<alias> and forward
build-status-changed events as commit statuses.

Also serves GET /healthz and GET /metrics.

In queued mode without REDPANDA_BROKERS the worker runs in this process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, appConfig, log)
	},
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.LogrusLogger) error {
	if err := cfg.RequireForwarding(); err != nil {
		return err
	}

	p, err := pipeline.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	workerDone, err := p.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	router := webhook.NewRouter(webhook.NewHandler(p.Dispatcher(), log), metrics.NewHandler(), log)
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	log.WithField("mode", p.Mode().String()).Info("Listening on %s, forwarding to %s", cfg.ListenAddr(), gitlab.NormalizeBaseURL(cfg.RESTAPI))

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Worker stopped: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
