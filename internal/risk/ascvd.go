package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/medication-net-benefit/internal/domain"
)

// Coefficients of the simplified pooled-cohort approximation. They are a fixed
// contract of this engine; changing any of them changes every stored result.
const (
	ascvdBaseMale         = -2.9
	ascvdBaseFemale       = -3.5
	ascvdAgeCoefMale      = 0.70
	ascvdAgeCoefFemale    = 0.80
	ascvdLipidCoef        = 0.35
	ascvdSBPTreatedCoef   = 0.55
	ascvdSBPUntreatedCoef = 0.40
	ascvdSmokerCoef       = 0.65
	ascvdDiabetesCoef     = 0.55
	ascvdBlackMaleMult    = 1.10
	ascvdBlackFemaleMult  = 1.20
	ascvdMinPercent       = 0.5
	ascvdMaxPercent       = 50.0
)

// ASCVD estimates 10-year atherosclerotic cardiovascular risk.
func ASCVD(p domain.PatientAttributes) (domain.RiskResult, bool) {
	age, hasAge := p.AgeYears()
	if !hasAge || !p.Sex.IsValid() || p.TotalCholesterol == nil || p.HDL == nil || p.SystolicBP == nil || *p.HDL <= 0 {
		return domain.RiskResult{}, false
	}

	female := p.IsFemale()
	base, ageCoef, raceMult := ascvdBaseMale, ascvdAgeCoefMale, 1.0
	if female {
		base, ageCoef = ascvdBaseFemale, ascvdAgeCoefFemale
	}
	if isBlack(p.Race) {
		raceMult = ascvdBlackMaleMult
		if female {
			raceMult = ascvdBlackFemaleMult
		}
	}
	sbpCoef := ascvdSBPUntreatedCoef
	if p.OnBPTreatment {
		sbpCoef = ascvdSBPTreatedCoef
	}

	lipidRatio := *p.TotalCholesterol / *p.HDL
	x := base +
		ageCoef*(float64(age)-55)/10 +
		ascvdLipidCoef*(lipidRatio-4) +
		sbpCoef*(*p.SystolicBP-120)/20
	if p.Smoker {
		x += ascvdSmokerCoef
	}
	if p.Diabetes {
		x += ascvdDiabetesCoef
	}

	tenYear := round1(clamp(100/(1+math.Exp(-x))*raceMult, ascvdMinPercent, ascvdMaxPercent))
	annual := tenYear / 10

	category := "low"
	switch {
	case tenYear >= 20:
		category = "high"
	case tenYear >= 7.5:
		category = "intermediate"
	case tenYear >= 5:
		category = "borderline"
	}

	return domain.RiskResult{
		Name:               domain.RiskASCVD,
		Label:              "10-year ASCVD",
		Score:              tenYear,
		AnnualRiskPercent:  annual,
		TenYearRiskPercent: &tenYear,
		Category:           category,
		Interpretation:     fmt.Sprintf("%.1f%% 10-year risk of atherosclerotic cardiovascular disease (%s)", tenYear, category),
	}, true
}

func isBlack(race string) bool {
	r := strings.ToLower(strings.TrimSpace(race))
	return r == "black" || r == "african_american" || r == "african american"
}
