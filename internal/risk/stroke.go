package risk

import (
	"fmt"

	"github.com/medication-net-benefit/internal/domain"
)

// strokeRiskByScore is the annual stroke risk (%) per CHA2DS2-VASc score.
// Score 8 is lower than score 7 in the published cohort data; it is kept as is.
var strokeRiskByScore = [10]float64{0.2, 0.6, 2.2, 3.2, 4.8, 7.2, 9.7, 11.2, 10.8, 12.2}

// StrokeRiskPercent returns the annual stroke risk for a CHA2DS2-VASc score,
// clipping the score to [0,9].
func StrokeRiskPercent(score int) float64 {
	return strokeRiskByScore[clampInt(score, 0, 9)]
}

// Stroke computes the CHA2DS2-VASc score for patients in atrial fibrillation.
func Stroke(p domain.PatientAttributes) (domain.RiskResult, bool) {
	if !p.AtrialFibrillation {
		return domain.RiskResult{}, false
	}

	score := boolPoint(p.HeartFailure, 1) +
		boolPoint(p.Hypertension, 1) +
		boolPoint(p.Diabetes, 1) +
		boolPoint(p.PriorStroke, 2) +
		boolPoint(p.VascularDisease, 1) +
		boolPoint(p.IsFemale(), 1)

	switch {
	case p.AgeAtLeast(75):
		score += 2
	case p.AgeAtLeast(65):
		score++
	}
	score = clampInt(score, 0, 9)
	annual := StrokeRiskPercent(score)

	category := "low"
	interpretation := "Low stroke risk; anticoagulation generally not indicated"
	switch {
	case score >= 2:
		category = "high"
		interpretation = "Anticoagulation recommended unless contraindicated"
	case score == 1:
		category = "moderate"
		interpretation = "Anticoagulation may be considered"
	}

	return domain.RiskResult{
		Name:              domain.RiskStroke,
		Label:             "CHA2DS2-VASc",
		Score:             float64(score),
		AnnualRiskPercent: annual,
		Category:          category,
		Interpretation:    fmt.Sprintf("Score %d: %.1f%% annual stroke risk. %s", score, annual, interpretation),
	}, true
}
