package engine

import (
	"math"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/risk"
)

// Baseline is an annual event probability and where it came from.
type Baseline struct {
	Annual float64
	Source string
}

// baselineRisk estimates the untreated annual risk of an outcome, preferring a
// calculated risk and falling back to the population default for its category.
func (e *Engine) baselineRisk(kind domain.OutcomeKind, p domain.PatientAttributes, risks domain.RiskBundle) Baseline {
	category, ok := e.tables.OutcomeCategories[kind]
	if !ok {
		category = BaselineOther
	}

	switch category {
	case BaselineStroke:
		if r, ok := risks.Get(domain.RiskStroke); ok {
			return Baseline{r.AnnualProbability(), "CHA2DS2-VASc"}
		}
		if r, ok := risks.Get(domain.RiskASCVD); ok {
			return Baseline{r.AnnualProbability(), "ASCVD"}
		}
	case BaselineCardiovascular:
		if r, ok := risks.Get(domain.RiskASCVD); ok {
			return Baseline{r.AnnualProbability(), "ASCVD"}
		}
	case BaselineMortality:
		if r, ok := risks.Get(domain.RiskHeartFailure); ok {
			return Baseline{r.AnnualProbability(), "heart failure survival"}
		}
	case BaselineHeartFailure:
		if r, ok := risks.Get(domain.RiskHeartFailure); ok {
			return Baseline{math.Min(1, r.AnnualProbability()*e.tables.HFHospitalizationMultiplier), "heart failure survival"}
		}
	case BaselineDiabetes:
		if r, ok := risks.Get(domain.RiskDiabetes); ok {
			return Baseline{r.AnnualProbability(), "diabetes complications"}
		}
	case BaselineRenal:
		if egfr, ok := patientEGFR(p, risks); ok {
			stage, _ := risk.CKDStage(egfr)
			if annual, ok := e.tables.RenalProgression[stage]; ok {
				return Baseline{annual, "eGFR stage " + stage}
			}
		}
	}

	return Baseline{e.tables.PopulationBaselines[category], "population default"}
}
