package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/medication-net-benefit/internal/cli"
	"github.com/medication-net-benefit/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	log.Printf("Starting medication net-benefit API on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeHTTP(ctx, cfg); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
