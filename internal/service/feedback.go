package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/feedback"
)

const (
	defaultFeedbackPageSize = 50
	maxFeedbackPageSize     = 500
)

// FeedbackParams is a clinician's verdict on one recommendation.
type FeedbackParams struct {
	EvaluationID            string                `json:"evaluation_id"`
	MedicationID            string                `json:"medication_id"`
	SuggestedRecommendation domain.Recommendation `json:"suggested_recommendation"`
	ClinicianRecommendation domain.Recommendation `json:"clinician_recommendation,omitempty"`
	Agreed                  bool                  `json:"agreed"`
	NetScore                float64               `json:"net_score"`
	Reviewer                string                `json:"reviewer,omitempty"`
	Notes                   string                `json:"notes,omitempty"`
}

// FeedbackPage is one page of stored feedback.
type FeedbackPage struct {
	Feedback []*feedback.Feedback `json:"feedback"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Stats    *feedback.Stats      `json:"stats,omitempty"`
}

// FeedbackService records clinician feedback against catalog medications.
// A nil store disables it; every call then fails with domain.ErrFeedbackDisabled.
type FeedbackService struct {
	store         feedback.Store
	catalog       domain.MedicationCatalog
	tablesVersion string
	logger        *logrus.Logger
}

// NewFeedbackService creates a feedback service over store.
func NewFeedbackService(store feedback.Store, catalog domain.MedicationCatalog, tablesVersion string, logger *logrus.Logger) *FeedbackService {
	if logger == nil {
		logger = logrus.New()
	}
	return &FeedbackService{
		store:         store,
		catalog:       catalog,
		tablesVersion: tablesVersion,
		logger:        logger,
	}
}

// Enabled reports whether a store is configured.
func (s *FeedbackService) Enabled() bool {
	return s != nil && s.store != nil
}

// Record validates and stores feedback. Re-submitting for the same evaluation
// and medication replaces the earlier verdict.
func (s *FeedbackService) Record(ctx context.Context, params *FeedbackParams) (*feedback.Feedback, error) {
	if !s.Enabled() {
		return nil, disabled()
	}
	if params == nil {
		return nil, domain.NewValidationError("request", "request body is required", nil)
	}

	// Step 1: The medication must exist in the loaded catalog
	med, err := s.catalog.Get(params.MedicationID)
	if err != nil {
		return nil, err
	}

	// Step 2: Build and store
	fb := &feedback.Feedback{
		EvaluationID:            params.EvaluationID,
		MedicationID:            med.ID,
		SuggestedRecommendation: params.SuggestedRecommendation,
		ClinicianRecommendation: params.ClinicianRecommendation,
		Agreed:                  params.Agreed,
		NetScore:                params.NetScore,
		TablesVersion:           s.tablesVersion,
		Reviewer:                params.Reviewer,
		Notes:                   params.Notes,
	}
	if err := s.store.Save(ctx, fb); err != nil {
		return nil, fmt.Errorf("recording feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"evaluation_id": fb.EvaluationID,
		"medication_id": fb.MedicationID,
		"agreed":        fb.Agreed,
		"suggested":     fb.SuggestedRecommendation,
		"clinician":     fb.ClinicianRecommendation,
	}).Info("Clinician feedback recorded")

	return fb, nil
}

// Get returns the feedback for one medication of one evaluation.
func (s *FeedbackService) Get(ctx context.Context, evaluationID, medicationID string) (*feedback.Feedback, error) {
	if !s.Enabled() {
		return nil, disabled()
	}
	return s.store.Get(ctx, evaluationID, medicationID)
}

// List returns a page of feedback, newest first, with agreement statistics.
func (s *FeedbackService) List(ctx context.Context, limit, offset int) (*FeedbackPage, error) {
	if !s.Enabled() {
		return nil, disabled()
	}
	if limit <= 0 {
		limit = defaultFeedbackPageSize
	}
	if limit > maxFeedbackPageSize {
		limit = maxFeedbackPageSize
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "offset must not be negative", offset)
	}

	entries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &FeedbackPage{
		Feedback: entries,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Stats:    stats,
	}, nil
}

// Export writes every stored entry as a JSON document and returns the count.
func (s *FeedbackService) Export(ctx context.Context, w io.Writer) (int64, error) {
	if !s.Enabled() {
		return 0, disabled()
	}
	if err := s.store.ExportJSON(ctx, w); err != nil {
		return 0, fmt.Errorf("exporting feedback: %w", err)
	}
	return s.store.Count(ctx)
}

// Import loads a document produced by Export. Pairs already present are skipped.
func (s *FeedbackService) Import(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	if !s.Enabled() {
		return 0, 0, disabled()
	}
	imported, skipped, err = s.store.ImportJSON(ctx, r)
	if err != nil {
		return imported, skipped, err
	}

	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Feedback imported")
	return imported, skipped, nil
}

// Close releases the store.
func (s *FeedbackService) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.store.Close()
}

func disabled() error {
	return domain.NewEngineError(domain.CodeFeedbackDisabled, "feedback storage is not configured", "", domain.ErrFeedbackDisabled)
}
