package risk

import (
	"fmt"
	"math"

	"github.com/medication-net-benefit/internal/domain"
)

// CKD-EPI 2021 race-free constants.
const (
	ckdEpiIntercept     = 142.0
	ckdEpiKappaFemale   = 0.7
	ckdEpiKappaMale     = 0.9
	ckdEpiAlphaFemale   = -0.241
	ckdEpiAlphaMale     = -0.302
	ckdEpiUpperExponent = -1.200
	ckdEpiAgeBase       = 0.9938
	ckdEpiFemaleMult    = 1.012
)

// CKD stage labels in descending order of kidney function.
const (
	StageG1  = "G1"
	StageG2  = "G2"
	StageG3a = "G3a"
	StageG3b = "G3b"
	StageG4  = "G4"
	StageG5  = "G5"
)

var stageBands = []struct {
	min      float64
	stage    string
	category string
}{
	{90, StageG1, "normal"},
	{60, StageG2, "mildly decreased"},
	{45, StageG3a, "mildly to moderately decreased"},
	{30, StageG3b, "moderately to severely decreased"},
	{15, StageG4, "severely decreased"},
	{math.Inf(-1), StageG5, "kidney failure"},
}

// CKDStage maps an eGFR value to its KDIGO G stage and category.
func CKDStage(egfr float64) (stage, category string) {
	for _, b := range stageBands {
		if egfr >= b.min {
			return b.stage, b.category
		}
	}
	return StageG5, "kidney failure"
}

// StageRank orders stages from best (0) to worst (5). Unknown stages return -1.
func StageRank(stage string) int {
	for i, b := range stageBands {
		if b.stage == stage {
			return i
		}
	}
	return -1
}

// CKDEPI2021 computes eGFR (mL/min/1.73m2) from serum creatinine in mg/dL.
func CKDEPI2021(creatinine float64, age int, female bool) float64 {
	kappa, alpha := ckdEpiKappaMale, ckdEpiAlphaMale
	if female {
		kappa, alpha = ckdEpiKappaFemale, ckdEpiAlphaFemale
	}
	ratio := creatinine / kappa
	egfr := ckdEpiIntercept *
		math.Pow(math.Min(ratio, 1), alpha) *
		math.Pow(math.Max(ratio, 1), ckdEpiUpperExponent) *
		math.Pow(ckdEpiAgeBase, float64(age))
	if female {
		egfr *= ckdEpiFemaleMult
	}
	return egfr
}

// EGFR estimates kidney function. A measured creatinine with age and sex is
// preferred; a reported eGFR is used otherwise.
func EGFR(p domain.PatientAttributes) (domain.RiskResult, bool) {
	var (
		egfr   float64
		source string
	)
	age, hasAge := p.AgeYears()
	switch {
	case p.Creatinine != nil && *p.Creatinine > 0 && hasAge && p.Sex.IsValid():
		egfr = round1(CKDEPI2021(*p.Creatinine, age, p.IsFemale()))
		source = "CKD-EPI 2021"
	case p.ReportedEGFR != nil && *p.ReportedEGFR >= 0:
		egfr = round1(*p.ReportedEGFR)
		source = "reported"
	default:
		return domain.RiskResult{}, false
	}

	stage, category := CKDStage(egfr)
	return domain.RiskResult{
		Name:           domain.RiskRenal,
		Label:          "eGFR",
		Score:          egfr,
		Stage:          stage,
		Category:       category,
		Interpretation: fmt.Sprintf("eGFR %.1f mL/min/1.73m2 (%s), CKD stage %s: %s", egfr, source, stage, category),
	}, true
}
