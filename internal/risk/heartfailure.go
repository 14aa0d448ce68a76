package risk

import (
	"fmt"
	"math"

	"github.com/medication-net-benefit/internal/domain"
)

const (
	hfMortalityBase    = 1.5
	hfMortalitySlope   = 0.09
	hfMortalityMinPct  = 1.0
	hfMortalityMaxPct  = 80.0
	hfCreatininePoints = 5
	hfCreatinineCutoff = 2.0
)

// HeartFailurePoints returns the integer points score over the fixed factor list.
func HeartFailurePoints(p domain.PatientAttributes) int {
	points := 0

	if age, ok := p.AgeYears(); ok {
		switch {
		case age >= 80:
			points += 10
		case age >= 75:
			points += 8
		case age >= 70:
			points += 6
		case age >= 65:
			points += 4
		case age >= 60:
			points += 2
		case age >= 55:
			points++
		}
	}

	if p.EjectionFraction != nil {
		ef := *p.EjectionFraction
		switch {
		case ef < 20:
			points += 7
		case ef < 25:
			points += 6
		case ef < 30:
			points += 5
		case ef < 35:
			points += 3
		case ef < 40:
			points += 2
		}
	}

	if p.NYHAClass != nil {
		switch *p.NYHAClass {
		case 2:
			points += 2
		case 3:
			points += 6
		case 4:
			points += 8
		}
	}

	if p.SystolicBP != nil {
		sbp := *p.SystolicBP
		switch {
		case sbp < 110:
			points += 5
		case sbp < 120:
			points += 4
		case sbp < 130:
			points += 3
		case sbp < 140:
			points += 2
		case sbp < 150:
			points++
		}
	}

	if p.Creatinine != nil && *p.Creatinine >= hfCreatinineCutoff {
		points += hfCreatininePoints
	}

	points += boolPoint(p.Diabetes, 3) +
		boolPoint(p.COPD, 2) +
		boolPoint(p.Sex == domain.SexMale, 1) +
		boolPoint(p.Smoker, 1) +
		boolPoint(!p.OnBetaBlocker, 3) +
		boolPoint(!p.OnACEInhibitorOrARB, 1)

	return points
}

// HeartFailureSurvival estimates annual mortality for patients with reduced
// ejection fraction or a heart failure history.
func HeartFailureSurvival(p domain.PatientAttributes) (domain.RiskResult, bool) {
	if !p.HeartFailure && !p.EjectionFractionBelow(50) {
		return domain.RiskResult{}, false
	}

	points := HeartFailurePoints(p)
	annual := round1(clamp(hfMortalityBase*math.Exp(hfMortalitySlope*float64(points)), hfMortalityMinPct, hfMortalityMaxPct))
	survival := round1(math.Pow(1-annual/100, 3) * 100)

	category := "low"
	switch {
	case annual >= 15:
		category = "high"
	case annual >= 5:
		category = "moderate"
	}

	return domain.RiskResult{
		Name:              domain.RiskHeartFailure,
		Label:             "Heart failure survival",
		Score:             float64(points),
		AnnualRiskPercent: annual,
		ThreeYearSurvival: &survival,
		Category:          category,
		Interpretation:    fmt.Sprintf("%d points: %.1f%% annual mortality, %.1f%% 3-year survival", points, annual, survival),
	}, true
}
