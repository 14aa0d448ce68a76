package domain

import "sort"

// RiskName identifies a risk calculator and its entry in a RiskBundle.
type RiskName string

const (
	RiskStroke       RiskName = "cha2ds2_vasc"
	RiskBleeding     RiskName = "has_bled"
	RiskASCVD        RiskName = "ascvd"
	RiskRenal        RiskName = "egfr"
	RiskHeartFailure RiskName = "hf_survival"
	RiskDiabetes     RiskName = "diabetes_complications"
)

// RiskResult is the output of one calculator.
type RiskResult struct {
	Name               RiskName `json:"name"`
	Label              string   `json:"label"`
	Score              float64  `json:"score"`
	AnnualRiskPercent  float64  `json:"annual_risk_percent"`
	TenYearRiskPercent *float64 `json:"ten_year_risk_percent,omitempty"`
	ThreeYearSurvival  *float64 `json:"three_year_survival_percent,omitempty"`
	Stage              string   `json:"stage,omitempty"`
	Category           string   `json:"category"`
	Interpretation     string   `json:"interpretation"`
}

// AnnualProbability returns the annual risk as a fraction.
func (r RiskResult) AnnualProbability() float64 {
	return r.AnnualRiskPercent / 100
}

// RiskBundle maps calculator names to results. A name is present only when the
// calculator's precondition held for the patient.
type RiskBundle map[RiskName]RiskResult

// Get returns the result for name.
func (b RiskBundle) Get(name RiskName) (RiskResult, bool) {
	if b == nil {
		return RiskResult{}, false
	}
	r, ok := b[name]
	return r, ok
}

// Has reports whether name is present.
func (b RiskBundle) Has(name RiskName) bool {
	_, ok := b.Get(name)
	return ok
}

// Names returns the present calculator names in sorted order.
func (b RiskBundle) Names() []RiskName {
	names := make([]RiskName, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// EGFR returns the estimated glomerular filtration rate when the renal calculator ran.
func (b RiskBundle) EGFR() (float64, bool) {
	r, ok := b.Get(RiskRenal)
	if !ok {
		return 0, false
	}
	return r.Score, true
}
