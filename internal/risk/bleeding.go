package risk

import (
	"fmt"

	"github.com/medication-net-benefit/internal/domain"
)

// bleedRiskByScore is the annual major bleeding risk (%) per HAS-BLED score.
var bleedRiskByScore = [6]float64{1.1, 1.0, 1.9, 3.7, 8.7, 12.5}

// BleedRiskPercent returns the annual major bleed risk for a HAS-BLED score,
// clipping the score to [0,5].
func BleedRiskPercent(score int) float64 {
	return bleedRiskByScore[clampInt(score, 0, 5)]
}

// Bleeding computes the HAS-BLED score for patients in atrial fibrillation.
// Severe hypertension requires a measured systolic pressure above 160.
func Bleeding(p domain.PatientAttributes) (domain.RiskResult, bool) {
	if !p.AtrialFibrillation {
		return domain.RiskResult{}, false
	}

	age, hasAge := p.AgeYears()
	score := boolPoint(p.SystolicBP != nil && *p.SystolicBP > 160, 1) +
		boolPoint(p.AbnormalRenalFunction || p.Dialysis, 1) +
		boolPoint(p.AbnormalLiverFunction, 1) +
		boolPoint(p.PriorStroke, 1) +
		boolPoint(p.BleedingHistory || p.Anemia, 1) +
		boolPoint(p.LabileINR, 1) +
		boolPoint(hasAge && age > 65, 1) +
		boolPoint(p.AntiplateletOrNSAIDUse, 1) +
		boolPoint(p.AlcoholUse, 1)
	score = clampInt(score, 0, 5)
	annual := BleedRiskPercent(score)

	category := "low"
	switch {
	case score >= 3:
		category = "high"
	case score == 2:
		category = "moderate"
	}

	interpretation := fmt.Sprintf("Score %d: %.1f%% annual major bleeding risk", score, annual)
	if score >= 3 {
		interpretation += ". Address modifiable bleeding risk factors and monitor closely"
	}

	return domain.RiskResult{
		Name:              domain.RiskBleeding,
		Label:             "HAS-BLED",
		Score:             float64(score),
		AnnualRiskPercent: annual,
		Category:          category,
		Interpretation:    interpretation,
	}, true
}
