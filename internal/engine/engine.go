// Package engine converts trial efficacy and harm statistics plus a patient's
// calculated risks into one comparable net-benefit score and a recommendation.
//
// All magnitudes are severity-weighted events per 100 patients per year. The
// engine is pure: it holds only read-only tables and a logger, and the same
// inputs always produce the same NetBenefitResult.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/domain"
)

// Engine evaluates medications against a patient.
type Engine struct {
	tables *Tables
	logger *logrus.Logger
}

// New creates an engine over tables. Nil tables select DefaultTables; a nil
// logger discards output.
func New(tables *Tables, logger *logrus.Logger) *Engine {
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Engine{tables: tables, logger: logger}
}

// Tables returns the engine's constant set.
func (e *Engine) Tables() *Tables {
	return e.tables
}

// Evaluate computes the net benefit of one medication for one patient. It never
// fails: missing optional data makes the affected component not applicable.
func (e *Engine) Evaluate(med domain.MedicationRecord, p domain.PatientAttributes, risks domain.RiskBundle, prefs domain.Preferences) domain.NetBenefitResult {
	result := domain.NetBenefitResult{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Class:          med.Class,
		Purpose:        med.Purpose,
		TablesVersion:  e.tables.Version,
	}

	lifeExpectancy, knownLE := e.LifeExpectancy(p, risks)
	horizon := e.effectiveHorizon(lifeExpectancy, knownLE, prefs)
	result.LifeExpectancyYears = round3(lifeExpectancy)
	result.EffectiveHorizonYears = round3(horizon)

	result.ApplicableIndications = e.applicableIndications(med, p, risks)
	result.Benefits = e.benefits(med, result.ApplicableIndications, p, risks, horizon)
	result.Harms = e.harms(med, p, risks)
	result.EffectiveBurden, result.BurdenPenalty = e.burden(med, prefs)

	benefitValues := make([]float64, len(result.Benefits))
	for i, b := range result.Benefits {
		benefitValues[i] = b.Magnitude
	}
	harmValues := make([]float64, len(result.Harms))
	for i, h := range result.Harms {
		harmValues[i] = h.Magnitude
	}
	result.TotalBenefit = sumRounded(benefitValues)
	result.TotalHarm = sumRounded(harmValues)
	result.NetScore = round3(result.TotalBenefit - result.TotalHarm)
	if result.NetScore > 0 {
		nnt := round3(100 / result.NetScore)
		result.NNTEquivalent = &nnt
	}

	result.SafetyWarnings = e.screen(med, p, risks)
	result.Threshold = e.tables.Threshold(prefs.GoalsOfCare)
	result.Recommendation, result.RecommendationRule = Classify(DecisionInput{
		NetScore:               result.NetScore,
		Threshold:              result.Threshold,
		Elderly:                p.IsElderly(),
		ListedHazard:           result.HasWarning(domain.SafetyListedHazard),
		HighSeverityWarning:    result.HasHighSeverityWarning(),
		FrailtyContraindicated: result.HasWarning(domain.SafetyFrailtyContraindication),
		HighBurden:             result.EffectiveBurden == domain.BurdenHigh,
		GoalsOfCare:            prefs.GoalsOfCare,
		HighCost:               prefs.CostSensitivity == domain.LevelHigh && med.AnnualCost > e.tables.HighCostConsiderAt,
		StrongThreshold:        e.tables.StrongThreshold,
		HazardNetFloor:         e.tables.HazardNetFloor,
	})

	e.logger.WithFields(logrus.Fields{
		"medication_id":  med.ID,
		"indications":    len(result.ApplicableIndications),
		"benefits":       len(result.Benefits),
		"harms":          len(result.Harms),
		"net_score":      result.NetScore,
		"recommendation": result.Recommendation.String(),
		"rule":           result.RecommendationRule,
	}).Debug("Evaluated medication")

	return result
}
