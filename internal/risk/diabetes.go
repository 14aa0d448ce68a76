package risk

import (
	"fmt"

	"github.com/medication-net-benefit/internal/domain"
)

const (
	diabetesBasePct   = 10.0
	diabetesMinPct    = 2.0
	diabetesMaxPct    = 60.0
	diabetesTargetA1c = 7.0
)

// DiabetesComplications estimates the 10-year risk of a major diabetes
// complication. Missing HbA1c or duration contribute nothing.
func DiabetesComplications(p domain.PatientAttributes) (domain.RiskResult, bool) {
	if !p.Diabetes {
		return domain.RiskResult{}, false
	}

	risk := diabetesBasePct
	if p.HbA1c != nil {
		risk += 4 * (*p.HbA1c - diabetesTargetA1c)
	}
	if p.DiabetesDurationYears != nil {
		risk += 0.5 * *p.DiabetesDurationYears
	}
	if p.Smoker {
		risk += 5
	}
	if p.SystolicBP != nil && *p.SystolicBP > 140 {
		risk += 5
	}
	if egfr, ok := EGFR(p); ok && egfr.Score < 60 {
		risk += 8
	}
	if p.AgeAtLeast(65) {
		risk += 4
	}

	tenYear := round1(clamp(risk, diabetesMinPct, diabetesMaxPct))
	category := "low"
	switch {
	case tenYear >= 20:
		category = "high"
	case tenYear >= 10:
		category = "moderate"
	}

	return domain.RiskResult{
		Name:               domain.RiskDiabetes,
		Label:              "Diabetes complications",
		Score:              tenYear,
		AnnualRiskPercent:  tenYear / 10,
		TenYearRiskPercent: &tenYear,
		Category:           category,
		Interpretation:     fmt.Sprintf("%.1f%% 10-year risk of a major diabetes complication", tenYear),
	}, true
}
