package engine

import (
	"fmt"
	"strings"

	"github.com/medication-net-benefit/internal/domain"
)

// hazardCheck grades one age-related hazard category. applies reports whether
// the category is relevant at all; severity is then moderate or high.
type hazardCheck struct {
	category domain.SafetyCategory
	flagged  func(s *domain.AgeSafety) bool
	applies  func(p domain.PatientAttributes) bool
	high     func(p domain.PatientAttributes, egfr float64, hasEGFR bool) bool
	message  string
}

var hazardChecks = []hazardCheck{
	{
		category: domain.SafetyFallRisk,
		flagged:  func(s *domain.AgeSafety) bool { return s.FallRisk },
		applies:  domain.PatientAttributes.IsElderly,
		high: func(p domain.PatientAttributes, _ float64, _ bool) bool {
			return p.AgeAtLeast(75) || p.FallHistory || p.Frailty
		},
		message: "Increases fall risk",
	},
	{
		category: domain.SafetyCognitiveImpairment,
		flagged:  func(s *domain.AgeSafety) bool { return s.CognitiveImpairment },
		applies:  domain.PatientAttributes.IsElderly,
		high: func(p domain.PatientAttributes, _ float64, _ bool) bool {
			return p.Dementia || p.CognitiveImpairment
		},
		message: "May worsen cognition",
	},
	{
		category: domain.SafetySedation,
		flagged:  func(s *domain.AgeSafety) bool { return s.Sedation },
		applies:  domain.PatientAttributes.IsElderly,
		high: func(p domain.PatientAttributes, _ float64, _ bool) bool {
			return p.AgeAtLeast(75) && (p.FallHistory || p.Dementia)
		},
		message: "Sedating",
	},
	{
		category: domain.SafetyHypoglycemia,
		flagged:  func(s *domain.AgeSafety) bool { return s.Hypoglycemia },
		applies:  domain.PatientAttributes.IsElderly,
		high: func(p domain.PatientAttributes, egfr float64, hasEGFR bool) bool {
			return p.AgeAtLeast(75) || (hasEGFR && egfr < 45)
		},
		message: "Risk of hypoglycaemia",
	},
	{
		category: domain.SafetyHeartFailure,
		flagged:  func(s *domain.AgeSafety) bool { return s.HeartFailureExacerbation },
		applies: func(p domain.PatientAttributes) bool {
			return p.HeartFailure || p.EjectionFractionBelow(50)
		},
		high: func(p domain.PatientAttributes, _ float64, _ bool) bool {
			return p.EjectionFractionBelow(40)
		},
		message: "May exacerbate heart failure",
	},
	{
		category: domain.SafetyNarrowTherapeuticIndex,
		flagged:  func(s *domain.AgeSafety) bool { return s.NarrowTherapeuticIndex },
		applies:  domain.PatientAttributes.IsElderly,
		high: func(p domain.PatientAttributes, egfr float64, hasEGFR bool) bool {
			return (hasEGFR && egfr < 30) || p.AgeAtLeast(80)
		},
		message: "Narrow therapeutic index; requires level monitoring",
	},
	{
		category: domain.SafetyFrailtyContraindication,
		flagged:  func(s *domain.AgeSafety) bool { return s.FrailtyContraindication },
		applies: func(p domain.PatientAttributes) bool {
			return p.Frailty
		},
		high: func(domain.PatientAttributes, float64, bool) bool {
			return true
		},
		message: "Contraindicated in frailty",
	},
}

// screen evaluates the medication's age-safety metadata against the patient.
// Warnings are returned in a fixed category order.
func (e *Engine) screen(med domain.MedicationRecord, p domain.PatientAttributes, risks domain.RiskBundle) []domain.SafetyWarning {
	warnings := make([]domain.SafetyWarning, 0)
	safety := med.AgeSafety
	if safety == nil {
		return warnings
	}

	if safety.ListedHazard && p.IsElderly() {
		severity := safety.HazardSeverity
		if !severity.IsValid() {
			severity = domain.SeverityModerate
		}
		warnings = append(warnings, domain.SafetyWarning{
			Category: domain.SafetyListedHazard,
			Severity: severity,
			Message:  listedHazardMessage(med.Name, safety),
		})
	}

	egfr, hasEGFR := patientEGFR(p, risks)
	for _, check := range hazardChecks {
		if !check.flagged(safety) || !check.applies(p) {
			continue
		}
		severity := domain.SeverityModerate
		if check.high(p, egfr, hasEGFR) {
			severity = domain.SeverityHigh
		}
		warnings = append(warnings, domain.SafetyWarning{
			Category: check.category,
			Severity: severity,
			Message:  check.message,
		})
	}
	return warnings
}

func listedHazardMessage(name string, s *domain.AgeSafety) string {
	parts := []string{fmt.Sprintf("%s is listed as potentially inappropriate in older adults", name)}
	if s.HazardStrength != "" {
		parts = append(parts, "strength of recommendation: "+s.HazardStrength)
	}
	if s.Rationale != "" {
		parts = append(parts, s.Rationale)
	}
	return strings.Join(parts, "; ")
}
