// Package feedback stores clinician feedback on net-benefit recommendations.
// It records whether a reviewer agreed with the suggested tier, and the tier
// they would choose instead. No patient attributes are stored.
package feedback

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/medication-net-benefit/internal/domain"
)

// ExportVersion is the version of the JSON export format.
const ExportVersion = "1.0"

// Feedback represents a clinician's feedback on one medication recommendation.
type Feedback struct {
	ID                      int64                 `json:"id,omitempty"`
	EvaluationID            string                `json:"evaluation_id"`
	MedicationID            string                `json:"medication_id"`
	SuggestedRecommendation domain.Recommendation `json:"suggested_recommendation"` // engine's tier
	ClinicianRecommendation domain.Recommendation `json:"clinician_recommendation"` // reviewer's tier
	Agreed                  bool                  `json:"agreed"`
	NetScore                float64               `json:"net_score"`
	TablesVersion           string                `json:"tables_version,omitempty"`
	Reviewer                string                `json:"reviewer,omitempty"`
	Notes                   string                `json:"notes,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	UpdatedAt               time.Time             `json:"updated_at"`
}

// Normalize trims identifiers, lowercases the medication id and derives
// Agreed when the clinician tier is given.
func (f *Feedback) Normalize() {
	f.EvaluationID = strings.TrimSpace(f.EvaluationID)
	f.MedicationID = strings.ToLower(strings.TrimSpace(f.MedicationID))
	f.Reviewer = strings.TrimSpace(f.Reviewer)
	if f.ClinicianRecommendation == "" && f.Agreed {
		f.ClinicianRecommendation = f.SuggestedRecommendation
	}
	if f.ClinicianRecommendation != "" {
		f.Agreed = f.ClinicianRecommendation == f.SuggestedRecommendation
	}
}

// Validate checks the fields a store requires.
func (f *Feedback) Validate() error {
	if f.EvaluationID == "" {
		return domain.NewValidationError("evaluation_id", "evaluation id is required", f.EvaluationID)
	}
	if f.MedicationID == "" {
		return domain.NewValidationError("medication_id", "medication id is required", f.MedicationID)
	}
	if !f.SuggestedRecommendation.IsValid() {
		return domain.NewValidationError("suggested_recommendation", "unknown recommendation tier", f.SuggestedRecommendation)
	}
	if !f.ClinicianRecommendation.IsValid() {
		return domain.NewValidationError("clinician_recommendation", "unknown recommendation tier", f.ClinicianRecommendation)
	}
	if len(f.Notes) > 4000 {
		return domain.NewValidationError("notes", "notes must be at most 4000 characters", len(f.Notes))
	}
	return nil
}

// Stats aggregates agreement across stored feedback.
type Stats struct {
	Total     int64                           `json:"total"`
	Agreed    int64                           `json:"agreed"`
	Overrides map[domain.Recommendation]int64 `json:"overrides"` // keyed by suggested tier
}

// AgreementRate is Agreed/Total, or 0 with no feedback.
func (s Stats) AgreementRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Agreed) / float64(s.Total)
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for the same evaluation and
	// medication replaces the earlier entry.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for one medication of one evaluation.
	// A miss returns an error wrapping domain.ErrFeedbackNotFound.
	Get(ctx context.Context, evaluationID, medicationID string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Stats summarizes agreement across all entries.
	Stats(ctx context.Context) (*Stats, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
