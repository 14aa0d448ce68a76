package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps SQLite from reporting SQLITE_BUSY under the
	// concurrent HTTP handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// createSchema creates the feedback table and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evaluation_id TEXT NOT NULL,
		medication_id TEXT NOT NULL,
		suggested_recommendation TEXT NOT NULL,
		clinician_recommendation TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		net_score REAL NOT NULL DEFAULT 0,
		tables_version TEXT NOT NULL DEFAULT '',
		reviewer TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(evaluation_id, medication_id)
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_medication ON feedback(medication_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Save stores or updates feedback for a recommendation.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := prepare(feedback); err != nil {
		return err
	}
	now := s.now()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM feedback WHERE evaluation_id = ? AND medication_id = ?",
		feedback.EvaluationID, feedback.MedicationID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		feedback.ID = existingID
		feedback.CreatedAt = createdAt
		feedback.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE feedback SET
				suggested_recommendation = ?,
				clinician_recommendation = ?,
				agreed = ?,
				net_score = ?,
				tables_version = ?,
				reviewer = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(feedback.SuggestedRecommendation),
			string(feedback.ClinicianRecommendation),
			feedback.Agreed,
			feedback.NetScore,
			feedback.TablesVersion,
			feedback.Reviewer,
			feedback.Notes,
			now,
			existingID,
		)
		if err != nil {
			return databaseError("update", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return databaseError("lookup", err)
	}

	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			evaluation_id, medication_id,
			suggested_recommendation, clinician_recommendation, agreed,
			net_score, tables_version, reviewer, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return databaseError("insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id

	return nil
}

// Get retrieves feedback for one medication of one evaluation.
func (s *SQLiteStore) Get(ctx context.Context, evaluationID, medicationID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM feedback
		WHERE evaluation_id = ? AND medication_id = ?
	`, evaluationID, medicationID)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(evaluationID, medicationID)
	}
	if err != nil {
		return nil, databaseError("get", err)
	}
	return fb, nil
}

// List returns feedback entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, databaseError("list", err)
	}
	return scanList(rows)
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	return count, err
}

// Stats summarizes agreement per suggested tier.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT suggested_recommendation, COUNT(*), SUM(CASE WHEN agreed THEN 1 ELSE 0 END)
		FROM feedback
		GROUP BY suggested_recommendation
	`)
	if err != nil {
		return nil, databaseError("stats", err)
	}
	return scanStats(rows)
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	return err
}

// ExportJSON exports all feedback to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
