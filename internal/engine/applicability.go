package engine

import (
	"sort"
	"strings"

	"github.com/medication-net-benefit/internal/domain"
)

// Predicate decides whether an indication applies to a patient.
type Predicate func(p domain.PatientAttributes, risks domain.RiskBundle) bool

// Indication pairs a catalog indication key with its predicate.
type Indication struct {
	Key         string
	Description string
	Applies     Predicate
}

// DefaultIndications returns the built-in indication predicates keyed by
// catalog indication name.
func DefaultIndications() map[string]Indication {
	indications := make(map[string]Indication)
	add := func(key, description string, applies Predicate) {
		indications[key] = Indication{Key: key, Description: description, Applies: applies}
	}

	add("hfref", "ejection fraction below 50", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.EjectionFractionBelow(50)
	})
	add("heart_failure", "heart failure history or ejection fraction below 50", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.HeartFailure || p.EjectionFractionBelow(50)
	})
	add("prior_mi", "prior myocardial infarction", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.PriorMI
	})
	add("prior_stroke", "prior stroke or TIA", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.PriorStroke
	})
	add("secondary_prevention", "established atherosclerotic disease", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return secondaryPrevention(p)
	})
	add("primary_prevention", "no vascular event and elevated cardiovascular risk", func(p domain.PatientAttributes, risks domain.RiskBundle) bool {
		if secondaryPrevention(p) {
			return false
		}
		if ascvd, ok := risks.Get(domain.RiskASCVD); ok && ascvd.Score >= 7.5 {
			return true
		}
		return p.Diabetes || p.Hyperlipidemia
	})
	add("atrial_fibrillation", "atrial fibrillation", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.AtrialFibrillation
	})
	add("hypertension", "hypertension or systolic pressure of 140 or more", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.Hypertension || (p.SystolicBP != nil && *p.SystolicBP >= 140)
	})
	add("diabetes", "diabetes mellitus", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.Diabetes
	})
	add("ckd", "chronic kidney disease or eGFR below 60", func(p domain.PatientAttributes, risks domain.RiskBundle) bool {
		if p.ChronicKidneyDisease || p.Dialysis {
			return true
		}
		egfr, ok := patientEGFR(p, risks)
		return ok && egfr < 60
	})
	add("osteoporosis", "osteoporosis", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.Osteoporosis
	})
	add("prediabetes", "prediabetes", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.Prediabetes
	})
	add("hyperlipidemia", "hyperlipidemia or LDL of 160 or more", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.Hyperlipidemia || (p.LDL != nil && *p.LDL >= 160)
	})
	add("copd", "chronic obstructive pulmonary disease", func(p domain.PatientAttributes, _ domain.RiskBundle) bool {
		return p.COPD
	})
	add("general", "applies to every patient", func(domain.PatientAttributes, domain.RiskBundle) bool {
		return true
	})

	return indications
}

// IndicationApplies reports whether the named indication holds for the patient.
// Unknown indication names never apply.
func (t *Tables) IndicationApplies(key string, p domain.PatientAttributes, risks domain.RiskBundle) bool {
	ind, ok := t.Indications[strings.ToLower(strings.TrimSpace(key))]
	if !ok || ind.Applies == nil {
		return false
	}
	return ind.Applies(p, risks)
}

// KnownIndications lists the registered indication keys in sorted order.
func (t *Tables) KnownIndications() []string {
	keys := make([]string, 0, len(t.Indications))
	for k := range t.Indications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// applicableIndications filters the medication's indications, in sorted order.
func (e *Engine) applicableIndications(med domain.MedicationRecord, p domain.PatientAttributes, risks domain.RiskBundle) []string {
	applicable := make([]string, 0, len(med.Benefits))
	for _, key := range med.Indications() {
		if e.tables.IndicationApplies(key, p, risks) {
			applicable = append(applicable, key)
		}
	}
	return applicable
}

func secondaryPrevention(p domain.PatientAttributes) bool {
	return p.PriorMI || p.PriorStroke || p.VascularDisease
}

// patientEGFR prefers the calculated estimate and falls back to a reported value.
func patientEGFR(p domain.PatientAttributes, risks domain.RiskBundle) (float64, bool) {
	if egfr, ok := risks.EGFR(); ok {
		return egfr, true
	}
	if p.ReportedEGFR != nil {
		return *p.ReportedEGFR, true
	}
	return 0, false
}
