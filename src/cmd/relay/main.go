// Package main provides the status relay CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"status-relay/src/config"
	"status-relay/src/logger"
)

var (
	appConfig *config.Config
	log       *logger.LogrusLogger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay build-status webhooks to GitLab commit statuses",
	Long: `status-relay receives build-status-changed webhooks from a visual testing
provider and posts the matching commit status to a GitLab-compatible REST API.

Configuration is read from the environment (REST_API, TOKEN, PORT, RELAY_MODE, ...).

Modes:
- direct (default): the webhook request forwards the status before answering
- queued: the webhook is published to a broker and forwarded by a worker
  (in-process with the in-memory broker, 'relay worker' with REDPANDA_BROKERS)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		log, err = logger.New(appConfig.LogLevel, appConfig.LogFormat)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(deliveriesCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
