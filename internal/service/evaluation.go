// Package service orchestrates risk calculation and net-benefit evaluation
// across the medication catalog for one patient.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/medication-net-benefit/internal/cache"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/engine"
	"github.com/medication-net-benefit/internal/risk"
)

// DefaultMaxConcurrency bounds the per-medication fan-out.
const DefaultMaxConcurrency = 8

// EvaluationService evaluates catalog medications for a patient.
type EvaluationService struct {
	engine   *engine.Engine
	catalog  domain.MedicationCatalog
	cache    domain.ResultCache
	cacheTTL time.Duration
	config   domain.EvaluationConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewEvaluationService wires the engine, catalog and result cache. A nil cache
// disables caching.
func NewEvaluationService(
	eng *engine.Engine,
	catalog domain.MedicationCatalog,
	resultCache domain.ResultCache,
	config domain.EvaluationConfig,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *EvaluationService {
	if resultCache == nil {
		resultCache = cache.Noop{}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &EvaluationService{
		engine:   eng,
		catalog:  catalog,
		cache:    resultCache,
		cacheTTL: cacheTTL,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// CalculateRisks validates the patient and runs every applicable calculator.
func (s *EvaluationService) CalculateRisks(ctx context.Context, patient domain.PatientAttributes) (*RisksResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	bundle := risk.Calculate(patient)
	skipped := make([]domain.RiskName, 0)
	for _, c := range risk.Calculators() {
		if !bundle.Has(c.Name) {
			skipped = append(skipped, c.Name)
		}
	}
	return &RisksResult{Risks: bundle, Skipped: skipped}, nil
}

// Evaluate scores the requested medications (or the whole catalog) for the
// patient and returns them ranked.
func (s *EvaluationService) Evaluate(ctx context.Context, params *EvaluateParams) (*EvaluateResult, error) {
	startTime := time.Now()
	if params == nil {
		return nil, domain.NewValidationError("request", "request body is required", nil)
	}

	// Step 1: Validate inputs and apply preference defaults
	if err := params.Patient.Validate(); err != nil {
		return nil, err
	}
	prefs := domain.DefaultPreferences()
	if params.Preferences != nil {
		prefs = params.Preferences.WithDefaults()
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Resolve medications
	medications, err := s.resolve(params.MedicationIDs)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"medications":   len(medications),
		"goals_of_care": prefs.GoalsOfCare,
	}).Info("Starting medication evaluation")

	// Step 3: Risk bundle, shared by every medication
	risks := risk.Calculate(params.Patient)

	// Step 4: Bounded fan-out; results land at their input index
	results := make([]domain.NetBenefitResult, len(medications))
	var cacheHits atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)
	for i := range medications {
		med := medications[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, hit, err := s.evaluateCached(gctx, med, params.Patient, risks, prefs)
			if err != nil {
				return err
			}
			if hit {
				cacheHits.Add(1)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation aborted: %w", err)
	}

	// Step 5: Filter, rank and summarize
	include := s.config.IncludeNotApplicable
	if params.IncludeNotApplicable != nil {
		include = *params.IncludeNotApplicable
	}
	ranked, notApplicable := filterApplicable(results, include)
	Rank(ranked)

	response := &EvaluateResult{
		EvaluationID:   uuid.New().String(),
		EvaluatedAt:    s.now().UTC(),
		TablesVersion:  s.engine.Tables().Version,
		CatalogVersion: s.catalog.Version(),
		Preferences:    prefs,
		Risks:          risks,
		Results:        ranked,
		Summary:        Summary(ranked),
		NotApplicable:  notApplicable,
		CacheHits:      int(cacheHits.Load()),
		ProcessingTime: time.Since(startTime),
	}

	s.logger.WithFields(logrus.Fields{
		"evaluation_id":   response.EvaluationID,
		"evaluated":       len(medications),
		"returned":        len(ranked),
		"not_applicable":  len(notApplicable),
		"cache_hits":      response.CacheHits,
		"processing_time": response.ProcessingTime,
	}).Info("Medication evaluation completed")

	return response, nil
}

// EvaluateOne scores a single medication without the ranking envelope.
func (s *EvaluationService) EvaluateOne(ctx context.Context, medicationID string, patient domain.PatientAttributes, prefs domain.Preferences) (*domain.NetBenefitResult, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}
	prefs = prefs.WithDefaults()
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	med, err := s.catalog.Get(medicationID)
	if err != nil {
		return nil, err
	}
	result, _, err := s.evaluateCached(ctx, *med, patient, risk.Calculate(patient), prefs)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Medications lists the catalog.
func (s *EvaluationService) Medications() []MedicationSummary {
	records := s.catalog.List()
	out := make([]MedicationSummary, 0, len(records))
	for _, m := range records {
		out = append(out, Summarize(m))
	}
	return out
}

// Medication returns one full catalog record.
func (s *EvaluationService) Medication(id string) (*domain.MedicationRecord, error) {
	return s.catalog.Get(id)
}

// TablesVersion is the version of the engine's static tables.
func (s *EvaluationService) TablesVersion() string {
	return s.engine.Tables().Version
}

// CatalogVersion is the loaded catalog's version string.
func (s *EvaluationService) CatalogVersion() string {
	return s.catalog.Version()
}

func (s *EvaluationService) resolve(ids []string) ([]domain.MedicationRecord, error) {
	if len(ids) == 0 {
		return s.catalog.List(), nil
	}

	seen := make(map[string]bool, len(ids))
	out := make([]domain.MedicationRecord, 0, len(ids))
	for _, id := range ids {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			return nil, domain.NewValidationError("medication_ids", "medication id must not be empty", id)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		med, err := s.catalog.Get(key)
		if err != nil {
			return nil, err
		}
		out = append(out, *med)
	}
	return out, nil
}

func (s *EvaluationService) evaluateCached(ctx context.Context, med domain.MedicationRecord, patient domain.PatientAttributes, risks domain.RiskBundle, prefs domain.Preferences) (domain.NetBenefitResult, bool, error) {
	key, err := cache.Key(s.engine.Tables().Version, med, patient, prefs)
	if err != nil {
		s.logger.WithError(err).WithField("medication_id", med.ID).Warn("Failed to build cache key")
		return s.engine.Evaluate(med, patient, risks, prefs), false, nil
	}

	if cached, ok := s.cache.Get(ctx, key); ok {
		return *cached, true, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.NetBenefitResult{}, false, err
	}

	result := s.engine.Evaluate(med, patient, risks, prefs)
	if err := s.cache.Set(ctx, key, &result, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("medication_id", med.ID).Warn("Failed to cache evaluation result")
	}
	return result, false, nil
}

func filterApplicable(results []domain.NetBenefitResult, include bool) ([]domain.NetBenefitResult, []string) {
	kept := make([]domain.NetBenefitResult, 0, len(results))
	var notApplicable []string
	for _, r := range results {
		if !r.IsApplicable() {
			notApplicable = append(notApplicable, r.MedicationID)
			if !include {
				continue
			}
		}
		kept = append(kept, r)
	}
	sort.Strings(notApplicable)
	return kept, notApplicable
}

// Rank orders results by net score descending, then medication id ascending.
func Rank(results []domain.NetBenefitResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].NetScore != results[j].NetScore {
			return results[i].NetScore > results[j].NetScore
		}
		return results[i].MedicationID < results[j].MedicationID
	})
}

// Summary counts results per recommendation tier. Every tier is present.
func Summary(results []domain.NetBenefitResult) map[domain.Recommendation]int {
	counts := make(map[domain.Recommendation]int, len(domain.AllRecommendations()))
	for _, r := range domain.AllRecommendations() {
		counts[r] = 0
	}
	for _, r := range results {
		counts[r.Recommendation]++
	}
	return counts
}
