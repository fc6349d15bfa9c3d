// Package main provides the MCP server entry point for the status relay.
// It exposes preview_status, list_deliveries and get_delivery over stdio so an
// agent can inspect what the relay would send and what it has sent.
package main

import (
	"context"
	"fmt"
	"os"

	"status-relay/src/config"
	"status-relay/src/logger"
	"status-relay/src/mcp"
	"status-relay/src/pipeline"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr.
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set: list_deliveries and get_delivery will see an empty log")
	}
	st, err := pipeline.OpenStore(context.Background(), cfg, log)
	if err != nil {
		log.Error("Failed to open delivery log: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	server := mcp.NewServer(st, pipeline.NewClient(cfg), pipeline.NewResolver(cfg))

	// Run server over stdin/stdout (stdio transport)
	if err := server.Run(); err != nil {
		log.Error("MCP server error: %v", err)
		os.Exit(1)
	}
}
