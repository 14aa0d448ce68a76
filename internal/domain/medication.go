package domain

import (
	"fmt"
	"sort"
)

// Efficacy is the trial-derived effect of a medication on one outcome.
// Exactly one of RRR or NNT is expected; when both are present NNT wins.
type Efficacy struct {
	RRR             *float64        `json:"rrr,omitempty" yaml:"rrr,omitempty"`
	NNT             *float64        `json:"nnt,omitempty" yaml:"nnt,omitempty"`
	TimeframeYears  float64         `json:"timeframe_years" yaml:"timeframe_years"`
	EvidenceQuality EvidenceQuality `json:"evidence_quality,omitempty" yaml:"evidence_quality,omitempty"`
	Source          string          `json:"source,omitempty" yaml:"source,omitempty"`
}

// HarmStat is the trial-derived number needed to harm for one adverse effect.
type HarmStat struct {
	NNH            float64 `json:"nnh" yaml:"nnh"`
	TimeframeYears float64 `json:"timeframe_years" yaml:"timeframe_years"`
	Source         string  `json:"source,omitempty" yaml:"source,omitempty"`
}

// AgeSafety carries optional age-related hazard metadata for a medication.
type AgeSafety struct {
	ListedHazard   bool     `json:"listed_hazard,omitempty" yaml:"listed_hazard,omitempty"`
	HazardSeverity Severity `json:"hazard_severity,omitempty" yaml:"hazard_severity,omitempty"`
	HazardStrength string   `json:"hazard_strength,omitempty" yaml:"hazard_strength,omitempty"`
	Rationale      string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	FallRisk                 bool `json:"fall_risk,omitempty" yaml:"fall_risk,omitempty"`
	CognitiveImpairment      bool `json:"cognitive_impairment,omitempty" yaml:"cognitive_impairment,omitempty"`
	Sedation                 bool `json:"sedation,omitempty" yaml:"sedation,omitempty"`
	Hypoglycemia             bool `json:"hypoglycemia,omitempty" yaml:"hypoglycemia,omitempty"`
	HeartFailureExacerbation bool `json:"hf_exacerbation,omitempty" yaml:"hf_exacerbation,omitempty"`
	NarrowTherapeuticIndex   bool `json:"narrow_therapeutic_index,omitempty" yaml:"narrow_therapeutic_index,omitempty"`
	FrailtyContraindication  bool `json:"frailty_contraindication,omitempty" yaml:"frailty_contraindication,omitempty"`
}

// MedicationRecord is one entry of the static medication reference catalog.
// Benefits are keyed indication -> outcome; harms are keyed by harm identifier.
type MedicationRecord struct {
	ID         string                         `json:"id" yaml:"id"`
	Name       string                         `json:"name" yaml:"name"`
	Class      string                         `json:"class" yaml:"class"`
	Purpose    Purpose                        `json:"purpose" yaml:"purpose"`
	Benefits   map[string]map[string]Efficacy `json:"benefits" yaml:"benefits"`
	Harms      map[string]HarmStat            `json:"harms,omitempty" yaml:"harms,omitempty"`
	Burden     BurdenTier                     `json:"burden" yaml:"burden"`
	AnnualCost float64                        `json:"annual_cost" yaml:"annual_cost"`
	AgeSafety  *AgeSafety                     `json:"age_safety,omitempty" yaml:"age_safety,omitempty"`
}

// Indications returns the benefit map keys in sorted order.
func (m MedicationRecord) Indications() []string {
	keys := make([]string, 0, len(m.Benefits))
	for k := range m.Benefits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HarmKeys returns the harm map keys in sorted order.
func (m MedicationRecord) HarmKeys() []string {
	keys := make([]string, 0, len(m.Harms))
	for k := range m.Harms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedOutcomes returns the outcome keys of one indication in sorted order.
func SortedOutcomes(outcomes map[string]Efficacy) []string {
	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the structural integrity of a catalog record.
// Unknown outcome or harm identifiers are allowed; they receive default weights.
func (m MedicationRecord) Validate() error {
	if m.ID == "" {
		return NewValidationError("id", "medication id is required", m.ID)
	}
	if m.Name == "" {
		return NewValidationError("name", "medication name is required", m.ID)
	}
	if !m.Purpose.IsValid() {
		return NewValidationError("purpose", ErrInvalidPurpose.Error(), m.Purpose)
	}
	if !m.Burden.IsValid() {
		return NewValidationError("burden", ErrInvalidBurdenTier.Error(), m.Burden)
	}
	if m.AnnualCost < 0 {
		return NewValidationError("annual_cost", "must not be negative", m.AnnualCost)
	}
	for _, indication := range m.Indications() {
		outcomes := m.Benefits[indication]
		for _, outcome := range SortedOutcomes(outcomes) {
			eff := outcomes[outcome]
			field := fmt.Sprintf("benefits.%s.%s", indication, outcome)
			if eff.NNT == nil && eff.RRR == nil {
				return NewValidationError(field, "either nnt or rrr is required", nil)
			}
			if eff.NNT != nil && *eff.NNT <= 0 {
				return NewValidationError(field+".nnt", "must be positive", *eff.NNT)
			}
			if eff.RRR != nil && (*eff.RRR <= 0 || *eff.RRR > 1) {
				return NewValidationError(field+".rrr", "must be in (0, 1]", *eff.RRR)
			}
			if eff.TimeframeYears <= 0 {
				return NewValidationError(field+".timeframe_years", "must be positive", eff.TimeframeYears)
			}
			if eff.EvidenceQuality != "" && !eff.EvidenceQuality.IsValid() {
				return NewValidationError(field+".evidence_quality", "invalid evidence quality", eff.EvidenceQuality)
			}
		}
	}
	for _, harm := range m.HarmKeys() {
		stat := m.Harms[harm]
		if stat.NNH <= 0 {
			return NewValidationError("harms."+harm+".nnh", "must be positive", stat.NNH)
		}
		if stat.TimeframeYears <= 0 {
			return NewValidationError("harms."+harm+".timeframe_years", "must be positive", stat.TimeframeYears)
		}
	}
	if m.AgeSafety != nil && m.AgeSafety.HazardSeverity != "" && !m.AgeSafety.HazardSeverity.IsValid() {
		return NewValidationError("age_safety.hazard_severity", "invalid severity", m.AgeSafety.HazardSeverity)
	}
	return nil
}
