package domain

// SafetyCategory names an age-related hazard category surfaced by the safety screen.
type SafetyCategory string

const (
	SafetyListedHazard            SafetyCategory = "listed_hazard"
	SafetyFallRisk                SafetyCategory = "fall_risk"
	SafetyCognitiveImpairment     SafetyCategory = "cognitive_impairment"
	SafetySedation                SafetyCategory = "sedation"
	SafetyHypoglycemia            SafetyCategory = "hypoglycemia"
	SafetyHeartFailure            SafetyCategory = "hf_exacerbation"
	SafetyNarrowTherapeuticIndex  SafetyCategory = "narrow_therapeutic_index"
	SafetyFrailtyContraindication SafetyCategory = "frailty_contraindication"
)

// BenefitEntry is one counted outcome for a medication.
type BenefitEntry struct {
	Indication         string          `json:"indication"`
	Outcome            OutcomeKind     `json:"outcome"`
	Label              string          `json:"label"`
	KnownOutcome       bool            `json:"known_outcome"`
	BaselineAnnualRisk float64         `json:"baseline_annual_risk,omitempty"`
	BaselineSource     string          `json:"baseline_source,omitempty"`
	RRR                float64         `json:"rrr,omitempty"`
	NNT                float64         `json:"nnt,omitempty"`
	AnnualizedNNT      float64         `json:"annualized_nnt"`
	SeverityWeight     float64         `json:"severity_weight"`
	TimeframeYears     float64         `json:"timeframe_years"`
	DiscountFactor     float64         `json:"discount_factor"`
	Magnitude          float64         `json:"magnitude"`
	EvidenceQuality    EvidenceQuality `json:"evidence_quality,omitempty"`
	Source             string          `json:"source,omitempty"`
}

// HarmEntry is one counted adverse effect for a medication.
type HarmEntry struct {
	Harm              HarmKind `json:"harm"`
	Label             string   `json:"label"`
	KnownHarm         bool     `json:"known_harm"`
	AnnualProbability float64  `json:"annual_probability"`
	NNH               float64  `json:"nnh,omitempty"`
	TimeframeYears    float64  `json:"timeframe_years,omitempty"`
	SeverityWeight    float64  `json:"severity_weight"`
	Magnitude         float64  `json:"magnitude"`
	Source            string   `json:"source,omitempty"`
	Modifiers         []string `json:"modifiers,omitempty"`
}

// SafetyWarning is one age-related hazard surfaced for the patient.
type SafetyWarning struct {
	Category SafetyCategory `json:"category"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
}

// NetBenefitResult is the complete evaluation of one medication for one patient.
// It holds no timestamps or generated identifiers so identical inputs produce
// identical values.
type NetBenefitResult struct {
	MedicationID   string  `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	Class          string  `json:"class"`
	Purpose        Purpose `json:"purpose"`

	ApplicableIndications []string       `json:"applicable_indications"`
	Benefits              []BenefitEntry `json:"benefits"`
	Harms                 []HarmEntry    `json:"harms"`

	TotalBenefit    float64    `json:"total_benefit"`
	TotalHarm       float64    `json:"total_harm"`
	BurdenPenalty   float64    `json:"burden_penalty"`
	EffectiveBurden BurdenTier `json:"effective_burden"`
	NetScore        float64    `json:"net_score"`
	NNTEquivalent   *float64   `json:"nnt_equivalent,omitempty"`

	LifeExpectancyYears   float64 `json:"life_expectancy_years"`
	EffectiveHorizonYears float64 `json:"effective_horizon_years"`

	SafetyWarnings     []SafetyWarning `json:"safety_warnings"`
	Recommendation     Recommendation  `json:"recommendation"`
	RecommendationRule string          `json:"recommendation_rule"`
	Threshold          float64         `json:"threshold"`
	TablesVersion      string          `json:"tables_version"`
}

// IsApplicable reports whether at least one indication applied to the patient.
func (r NetBenefitResult) IsApplicable() bool {
	return len(r.ApplicableIndications) > 0
}

// HasHighSeverityWarning reports whether any warning is graded high.
func (r NetBenefitResult) HasHighSeverityWarning() bool {
	for _, w := range r.SafetyWarnings {
		if w.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// HasWarning reports whether a warning of category c was raised.
func (r NetBenefitResult) HasWarning(c SafetyCategory) bool {
	for _, w := range r.SafetyWarnings {
		if w.Category == c {
			return true
		}
	}
	return false
}
