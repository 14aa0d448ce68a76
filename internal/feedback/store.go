package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/database"
	"github.com/medication-net-benefit/internal/domain"
)

// Store drivers accepted by NewStore.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// DefaultSQLitePath is used when the sqlite driver has no path configured.
const DefaultSQLitePath = "data/feedback.db"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

const selectColumns = `id, evaluation_id, medication_id,
			suggested_recommendation, clinician_recommendation, agreed,
			net_score, tables_version, reviewer, notes, created_at, updated_at`

// NewStore opens the store selected by cfg.Driver. The "none" driver returns
// a nil Store and no error; callers treat that as feedback disabled.
func NewStore(ctx context.Context, cfg domain.FeedbackConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverNone:
		logger.Info("Feedback storage disabled")
		return nil, nil
	case "", DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite feedback store: %w", err)
		}
		logger.WithField("path", path).Info("Feedback store ready (sqlite)")
		return store, nil
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return nil, domain.NewValidationError("feedback.postgres_url", "postgres url is required for the postgres driver", "")
		}
		if cfg.MigrateOnStart {
			if err := migrate(ctx, cfg.PostgresURL, logger); err != nil {
				return nil, err
			}
		}
		store, err := NewPostgresStoreFromURL(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres feedback store: %w", err)
		}
		logger.Info("Feedback store ready (postgres)")
		return store, nil
	default:
		return nil, domain.NewValidationError("feedback.driver", "driver must be sqlite, postgres or none", cfg.Driver)
	}
}

func migrate(ctx context.Context, url string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(url, logger)
	if err != nil {
		return fmt.Errorf("preparing feedback migrations: %w", err)
	}
	defer runner.Close()
	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("migrating feedback schema: %w", err)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row selected with selectColumns.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var suggested, clinician string

	err := s.Scan(
		&fb.ID, &fb.EvaluationID, &fb.MedicationID,
		&suggested, &clinician, &fb.Agreed,
		&fb.NetScore, &fb.TablesVersion, &fb.Reviewer, &fb.Notes,
		&fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.SuggestedRecommendation = domain.Recommendation(suggested)
	fb.ClinicianRecommendation = domain.Recommendation(clinician)
	return fb, nil
}

func scanList(rows *sql.Rows) ([]*Feedback, error) {
	defer rows.Close()

	result := make([]*Feedback, 0)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

func scanStats(rows *sql.Rows) (*Stats, error) {
	defer rows.Close()

	stats := &Stats{Overrides: make(map[domain.Recommendation]int64)}
	for rows.Next() {
		var tier string
		var total, agreed int64
		if err := rows.Scan(&tier, &total, &agreed); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total += total
		stats.Agreed += agreed
		if total > agreed {
			stats.Overrides[domain.Recommendation(tier)] = total - agreed
		}
	}
	return stats, rows.Err()
}

func notFound(evaluationID, medicationID string) error {
	return domain.NewEngineError(domain.CodeNotFound, "feedback not found",
		evaluationID+"/"+medicationID, domain.ErrFeedbackNotFound)
}

func databaseError(op string, err error) error {
	return domain.NewEngineError(domain.CodeDatabaseError, "feedback store "+op+" failed", "", err)
}

func prepare(feedback *Feedback) error {
	if feedback == nil {
		return domain.NewValidationError("feedback", "feedback is required", nil)
	}
	feedback.Normalize()
	return feedback.Validate()
}

func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &FeedbackExport{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importJSON saves entries whose (evaluation, medication) pair is not yet stored.
func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, domain.NewEngineError(domain.CodeInvalidInput, "failed to decode feedback export", err.Error(), domain.ErrInvalidInput)
	}

	for _, fb := range export.Feedback {
		if fb == nil {
			skipped++
			continue
		}
		fb.Normalize()
		_, err := store.Get(ctx, fb.EvaluationID, fb.MedicationID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrFeedbackNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		fb.ID = 0
		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
