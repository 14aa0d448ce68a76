// Package risk implements the clinical risk calculators that turn patient
// attributes into named risk estimates.
//
// Every calculator is a pure function guarded by an explicit precondition. When
// the precondition does not hold the calculator reports ok=false and the
// orchestrator leaves the risk out of the bundle; nothing is inferred from
// absent data.
package risk

import (
	"math"

	"github.com/medication-net-benefit/internal/domain"
)

// Func computes one risk estimate. ok is false when the precondition is unmet.
type Func func(p domain.PatientAttributes) (result domain.RiskResult, ok bool)

// Calculator describes one registered risk calculator.
type Calculator struct {
	Name         domain.RiskName
	Label        string
	Precondition string
	Compute      Func
}

// calculators is ordered: renal function runs first so later calculators can
// rely on an eGFR estimate.
var calculators = []Calculator{
	{domain.RiskRenal, "eGFR (CKD-EPI 2021)", "serum creatinine with age and sex, or a reported eGFR", EGFR},
	{domain.RiskStroke, "CHA2DS2-VASc", "atrial fibrillation", Stroke},
	{domain.RiskBleeding, "HAS-BLED", "atrial fibrillation", Bleeding},
	{domain.RiskASCVD, "10-year ASCVD", "age, sex, total cholesterol, HDL and systolic BP", ASCVD},
	{domain.RiskHeartFailure, "Heart failure survival", "ejection fraction below 50 or heart failure history", HeartFailureSurvival},
	{domain.RiskDiabetes, "Diabetes complications", "diabetes", DiabetesComplications},
}

// Calculators returns the registered calculators in evaluation order.
func Calculators() []Calculator {
	out := make([]Calculator, len(calculators))
	copy(out, calculators)
	return out
}

// Calculate runs every applicable calculator and returns the resulting bundle.
func Calculate(p domain.PatientAttributes) domain.RiskBundle {
	bundle := make(domain.RiskBundle, len(calculators))
	for _, c := range calculators {
		if result, ok := c.Compute(p); ok {
			bundle[c.Name] = result
		}
	}
	return bundle
}

// Only runs the named calculators. Unknown names are ignored.
func Only(p domain.PatientAttributes, names ...domain.RiskName) domain.RiskBundle {
	want := make(map[domain.RiskName]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	bundle := make(domain.RiskBundle)
	for _, c := range calculators {
		if !want[c.Name] {
			continue
		}
		if result, ok := c.Compute(p); ok {
			bundle[c.Name] = result
		}
	}
	return bundle
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func boolPoint(b bool, points int) int {
	if b {
		return points
	}
	return 0
}
