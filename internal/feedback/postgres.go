package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a new PostgreSQL feedback store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL feedback store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates feedback in one upsert.
func (s *PostgresStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := prepare(feedback); err != nil {
		return err
	}
	now := s.now()

	query := `
		INSERT INTO feedback (
			evaluation_id, medication_id,
			suggested_recommendation, clinician_recommendation, agreed,
			net_score, tables_version, reviewer, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (evaluation_id, medication_id) DO UPDATE SET
			suggested_recommendation = EXCLUDED.suggested_recommendation,
			clinician_recommendation = EXCLUDED.clinician_recommendation,
			agreed = EXCLUDED.agreed,
			net_score = EXCLUDED.net_score,
			tables_version = EXCLUDED.tables_version,
			reviewer = EXCLUDED.reviewer,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		feedback.EvaluationID,
		feedback.MedicationID,
		string(feedback.SuggestedRecommendation),
		string(feedback.ClinicianRecommendation),
		feedback.Agreed,
		feedback.NetScore,
		feedback.TablesVersion,
		feedback.Reviewer,
		feedback.Notes,
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return databaseError("save", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// Get retrieves feedback for one medication of one evaluation.
func (s *PostgresStore) Get(ctx context.Context, evaluationID, medicationID string) (*Feedback, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM feedback
		WHERE evaluation_id = $1 AND medication_id = $2
	`

	fb, err := scanFeedback(s.db.QueryRowContext(ctx, query, evaluationID, medicationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(evaluationID, medicationID)
	}
	if err != nil {
		return nil, databaseError("get", err)
	}
	return fb, nil
}

// List returns feedback entries, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, databaseError("list", err)
	}
	return scanList(rows)
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	if err != nil {
		return 0, databaseError("count", err)
	}
	return count, nil
}

// Stats summarizes agreement per suggested tier.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT suggested_recommendation, COUNT(*), COUNT(*) FILTER (WHERE agreed)
		FROM feedback
		GROUP BY suggested_recommendation
	`)
	if err != nil {
		return nil, databaseError("stats", err)
	}
	return scanStats(rows)
}

// Delete removes a feedback entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = $1", id)
	if err != nil {
		return databaseError("delete", err)
	}
	return nil
}

// ExportJSON exports all feedback to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
