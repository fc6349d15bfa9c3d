package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"status-relay/src/pipeline"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Forward queued status requests from Redpanda",
	Long: `Consume RELAY_TOPIC as RELAY_CONSUMER_GROUP and forward each status request.

Requires RELAY_MODE=queued and REDPANDA_BROKERS. Run 'relay serve' with RELAY_MODE=queued to fill the topic.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if pipeline.DetectMode(cfg) != pipeline.DistributedMode {
			return fmt.Errorf("the worker needs RELAY_MODE=queued and REDPANDA_BROKERS (example: export REDPANDA_BROKERS=localhost:19092)")
		}
		if err := cfg.RequireForwarding(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := pipeline.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Worker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker error: %w", err)
		}

		log.Info("Worker stopped")
		return nil
	},
}
