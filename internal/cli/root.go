// Package cli implements the netbenefit command line.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medication-net-benefit/internal/config"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/logging"
)

type rootOptions struct {
	configFile  string
	catalogPath string
	logLevel    string
}

// NewRootCommand builds the netbenefit command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "netbenefit",
		Short:         "Estimate the net clinical benefit of medications for a patient",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: config.yaml in ., ./config or /etc/netbenefit)")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "medication catalog file (default: bundled sample)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(risksCmd(opts))
	root.AddCommand(evaluateCmd(opts))
	root.AddCommand(catalogCmd(opts))
	root.AddCommand(feedbackCmd(opts))
	root.AddCommand(migrateCmd(opts))
	root.AddCommand(serveCmd(opts))
	root.AddCommand(mcpCmd(opts))
	root.AddCommand(setupCmd())

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// loadConfig reads the file/env configuration and applies flag overrides.
func (o *rootOptions) loadConfig() (*domain.Config, error) {
	manager, err := config.NewManager(o.configFile)
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()
	if o.catalogPath != "" {
		cfg.Catalog.Path = o.catalogPath
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// offlineConfig is the configuration for one-shot commands: no feedback
// store, no shared cache, and logs kept off stdout.
func (o *rootOptions) offlineConfig() (*domain.Config, *logrus.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.Feedback.Driver = "none"
	cfg.Cache.RedisURL = ""
	cfg.Logging.Output = "stderr"
	if o.logLevel == "" {
		cfg.Logging.Level = "warn"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("an input file is required (-f, or - for stdin)")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// decodeStrict unmarshals JSON, rejecting unknown fields.
func decodeStrict(data []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.NewEngineError(domain.CodeInvalidInput, "malformed JSON input", err.Error(), domain.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
