package service

import (
	"time"

	"github.com/medication-net-benefit/internal/domain"
)

// EvaluateParams is a request to evaluate medications for one patient.
type EvaluateParams struct {
	Patient     domain.PatientAttributes `json:"patient"`
	Preferences *domain.Preferences      `json:"preferences,omitempty"`
	// MedicationIDs restricts the evaluation; empty means the whole catalog.
	MedicationIDs []string `json:"medication_ids,omitempty"`
	// IncludeNotApplicable keeps medications none of whose indications apply.
	// Nil falls back to the configured default.
	IncludeNotApplicable *bool `json:"include_not_applicable,omitempty"`
}

// EvaluateResult is the ranked evaluation envelope. Results are sorted by net
// score descending, then medication id ascending.
type EvaluateResult struct {
	EvaluationID   string                        `json:"evaluation_id"`
	EvaluatedAt    time.Time                     `json:"evaluated_at"`
	TablesVersion  string                        `json:"tables_version"`
	CatalogVersion string                        `json:"catalog_version"`
	Preferences    domain.Preferences            `json:"preferences"`
	Risks          domain.RiskBundle             `json:"risks"`
	Results        []domain.NetBenefitResult     `json:"results"`
	Summary        map[domain.Recommendation]int `json:"summary"`
	NotApplicable  []string                      `json:"not_applicable,omitempty"`
	CacheHits      int                           `json:"cache_hits"`
	ProcessingTime time.Duration                 `json:"processing_time"`
}

// RisksResult is the output of a risk-only calculation.
type RisksResult struct {
	Risks   domain.RiskBundle `json:"risks"`
	Skipped []domain.RiskName `json:"skipped"`
}

// MedicationSummary is the list view of a catalog record.
type MedicationSummary struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Class        string            `json:"class"`
	Purpose      domain.Purpose    `json:"purpose"`
	Indications  []string          `json:"indications"`
	Burden       domain.BurdenTier `json:"burden"`
	ListedHazard bool              `json:"listed_hazard"`
}

// Summarize builds the list view of a record.
func Summarize(m domain.MedicationRecord) MedicationSummary {
	return MedicationSummary{
		ID:           m.ID,
		Name:         m.Name,
		Class:        m.Class,
		Purpose:      m.Purpose,
		Indications:  m.Indications(),
		Burden:       m.Burden,
		ListedHazard: m.AgeSafety != nil && m.AgeSafety.ListedHazard,
	}
}
