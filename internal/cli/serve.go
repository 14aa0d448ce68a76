package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medication-net-benefit/internal/api"
	"github.com/medication-net-benefit/internal/config"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/logging"
	mcpserver "github.com/medication-net-benefit/internal/mcp"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return ServeHTTP(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")

	return cmd
}

func mcpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Long: `Serves the MCP tools over stdin/stdout for desktop assistants.
Configuration comes from NETBENEFIT_* environment variables only; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.LoadEnvConfig()
			if opts.catalogPath != "" {
				env.CatalogPath = opts.catalogPath
			}
			if opts.logLevel != "" {
				env.LogLevel = opts.logLevel
			}
			return ServeMCP(cmd.Context(), env)
		},
	}
}

// ServeHTTP runs the HTTP API until ctx is cancelled.
func ServeHTTP(ctx context.Context, cfg *domain.Config) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Error("Failed to release resources")
		}
	}()

	server := api.NewServer(cfg, api.Dependencies{
		Evaluation: app.Evaluation,
		Feedback:   app.Feedback,
		Cache:      app.Cache,
	}, logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// ServeMCP runs the stdio MCP server until the client disconnects or ctx is
// cancelled.
func ServeMCP(ctx context.Context, env *config.EnvConfig) error {
	if err := env.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := env.Config()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(cfg.MCP, app.Evaluation, app.Feedback, env.ExportDir(), logger)
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Error("Failed to release resources")
		}
	}()

	logger.WithField("data_dir", env.DataDir).Info("Starting MCP server on stdio")
	return server.Start(ctx)
}
