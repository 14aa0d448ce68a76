package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medication-net-benefit/internal/catalog"
	"github.com/medication-net-benefit/internal/database"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/logging"
	"github.com/medication-net-benefit/internal/service"
)

func risksCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "risks",
		Short: "Calculate the risk scores that apply to a patient",
		Long:  "Reads patient attributes as JSON and prints every risk score whose inputs are present.",
		Example: `  netbenefit risks -f patient.json
  cat patient.json | netbenefit risks -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var patient domain.PatientAttributes
			if err := decodeStrict(data, &patient); err != nil {
				return err
			}

			app, err := opts.offlineApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Evaluation.CalculateRisks(cmd.Context(), patient)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "patient attributes JSON file (- for stdin)")

	return cmd
}

func evaluateCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Rank catalog medications by net clinical benefit for a patient",
		Long: `Reads an evaluation request as JSON:

  {"patient": {...}, "preferences": {...}, "medication_ids": [...]}

and prints the ranked results. Omitted preferences take their defaults and
an empty medication_ids evaluates the whole catalog.`,
		Example: `  netbenefit evaluate -f request.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var params service.EvaluateParams
			if err := decodeStrict(data, &params); err != nil {
				return err
			}

			app, err := opts.offlineApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Evaluation.Evaluate(cmd.Context(), &params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "evaluation request JSON file (- for stdin)")

	return cmd
}

func catalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate medication catalogs",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the medications in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			c, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			summaries := make([]service.MedicationSummary, 0, c.Len())
			for _, med := range c.List() {
				summaries = append(summaries, service.Summarize(med))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"catalog_version": c.Version(),
					"medications":     summaries,
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCLASS\tPURPOSE\tBURDEN\tINDICATIONS")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Class, s.Purpose, s.Burden, strings.Join(s.Indications, ","))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d medications, catalog %s\n", c.Len(), c.Version())
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a catalog file without loading the services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d medications, version %s\n", args[0], c.Len(), c.Version())
			return nil
		},
	})

	return cmd
}

func feedbackCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Manage recorded clinician feedback",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print recorded feedback with agreement statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.storeApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			page, err := app.Feedback.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "page size (default 50)")
	listCmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	cmd.AddCommand(listCmd)

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export all feedback as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.storeApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if output == "" || output == "-" {
				_, err := app.Feedback.Export(cmd.Context(), cmd.OutOrStdout())
				return err
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer file.Close()

			count, err := app.Feedback.Export(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d feedback entries to %s\n", count, output)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.AddCommand(exportCmd)

	var input string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import feedback exported by 'feedback export'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			app, err := opts.storeApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			imported, skipped, err := app.Feedback.Import(cmd.Context(), bytes.NewReader(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d feedback entries (%d already present)\n", imported, skipped)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&input, "file", "f", "", "export file (- for stdin)")
	cmd.AddCommand(importCmd)

	return cmd
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL feedback schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default: feedback.postgres_url)")

	runner := func() (*database.MigrationRunner, error) {
		url := databaseURL
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		if url == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return nil, err
			}
			url = cfg.Feedback.PostgresURL
			if l, err := logging.New(domain.LoggingConfig{Level: cfg.Logging.Level, Format: "text", Output: "stderr"}); err == nil {
				logger = l
			}
		}
		if url == "" {
			return nil, fmt.Errorf("no database URL: set --database-url or feedback.postgres_url")
		}
		return database.NewMigrationRunner(url, logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Up(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Down(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()

			version, dirty, err := mr.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

// offlineApp wires services for a one-shot calculation.
func (o *rootOptions) offlineApp(ctx context.Context) (*App, error) {
	cfg, logger, err := o.offlineConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, logger)
}

// storeApp wires services with the configured feedback store and fails when
// feedback is disabled.
func (o *rootOptions) storeApp(ctx context.Context) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Output = "stderr"
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if !app.Feedback.Enabled() {
		app.Close()
		return nil, fmt.Errorf("feedback storage is disabled (feedback.driver is %q)", cfg.Feedback.Driver)
	}
	return app, nil
}
