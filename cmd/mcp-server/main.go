// Command mcp-server serves the medication net-benefit MCP tools over stdio.
// It needs no config file: NETBENEFIT_* environment variables and defaults only.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medication-net-benefit/internal/cli"
	"github.com/medication-net-benefit/internal/config"
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg := config.LoadEnvConfig()
	log.Printf("Data directory: %s", cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeMCP(ctx, cfg); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
