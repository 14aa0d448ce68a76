package engine

import (
	"strings"

	"github.com/medication-net-benefit/internal/domain"
)

// TablesVersion identifies the default constant set. It is part of every cache
// key so a change to any table invalidates stored results.
const TablesVersion = "2025.1"

// BaselineCategory groups outcomes that share a population default baseline risk.
type BaselineCategory string

const (
	BaselineCardiovascular BaselineCategory = "cardiovascular"
	BaselineStroke         BaselineCategory = "stroke"
	BaselineMortality      BaselineCategory = "mortality"
	BaselineHeartFailure   BaselineCategory = "heart_failure"
	BaselineRenal          BaselineCategory = "renal"
	BaselineFracture       BaselineCategory = "fracture"
	BaselineDiabetes       BaselineCategory = "diabetes"
	BaselineVTE            BaselineCategory = "vte"
	BaselineOther          BaselineCategory = "other"
)

// ActuarialRow is remaining life expectancy in years at a given age.
type ActuarialRow struct {
	Age    float64
	Male   float64
	Female float64
}

// Tables holds every constant the engine consumes. Build it once with
// DefaultTables and treat it as read-only; tests substitute their own.
type Tables struct {
	Version string

	OutcomeWeights map[domain.OutcomeKind]float64
	HarmWeights    map[domain.HarmKind]float64
	UnknownBenefit float64
	UnknownHarm    float64

	BurdenPenalties       map[domain.BurdenTier]float64
	HighCostSurcharge     float64
	HighCostThreshold     float64
	ModerateCostSurcharge float64
	ModerateCostThreshold float64

	Actuarial           []ActuarialRow
	LifeExpectancyFloor float64
	DefaultHorizon      float64

	OutcomeCategories           map[domain.OutcomeKind]BaselineCategory
	PopulationBaselines         map[BaselineCategory]float64
	RenalProgression            map[string]float64 // annual CKD progression by G stage
	HFHospitalizationMultiplier float64

	MaterialityFloor float64
	MinimumNNH       float64

	CalculatedMajorBleedShare   float64
	CalculatedIntracranialShare float64

	SulfonylureaHypoBaseline float64

	GoalThresholds     map[int]float64
	StrongThreshold    float64
	HazardNetFloor     float64
	HighCostConsiderAt float64

	BleedingClasses     map[string]bool
	SulfonylureaClasses map[string]bool

	Indications map[string]Indication
}

// DefaultTables returns the published constant set.
func DefaultTables() *Tables {
	return &Tables{
		Version: TablesVersion,

		OutcomeWeights: domain.DefaultOutcomeWeights(),
		HarmWeights:    domain.DefaultHarmWeights(),
		UnknownBenefit: domain.DefaultBenefitWeight,
		UnknownHarm:    domain.DefaultHarmWeight,

		BurdenPenalties: map[domain.BurdenTier]float64{
			domain.BurdenLow:      1.0,
			domain.BurdenModerate: 3.0,
			domain.BurdenHigh:     6.0,
		},
		HighCostSurcharge:     0.5,
		HighCostThreshold:     2000,
		ModerateCostSurcharge: 0.3,
		ModerateCostThreshold: 5000,

		Actuarial: []ActuarialRow{
			{40, 38.5, 42.0},
			{45, 34.0, 37.5},
			{50, 29.5, 33.0},
			{55, 25.5, 28.7},
			{60, 21.6, 24.6},
			{65, 18.0, 20.6},
			{70, 14.6, 16.9},
			{75, 11.5, 13.4},
			{80, 8.7, 10.2},
			{85, 6.3, 7.4},
			{90, 4.4, 5.2},
			{95, 3.1, 3.6},
			{100, 2.2, 2.5},
		},
		LifeExpectancyFloor: 0.5,
		DefaultHorizon:      10,

		OutcomeCategories: map[domain.OutcomeKind]BaselineCategory{
			domain.OutcomeAllCauseMortality:   BaselineMortality,
			domain.OutcomeCardiovascularDeath: BaselineCardiovascular,
			domain.OutcomeStroke:              BaselineStroke,
			domain.OutcomeMyocardialInfarct:   BaselineCardiovascular,
			domain.OutcomeMACE:                BaselineCardiovascular,
			domain.OutcomeHFHospitalization:   BaselineHeartFailure,
			domain.OutcomeHospitalization:     BaselineHeartFailure,
			domain.OutcomeCKDProgression:      BaselineRenal,
			domain.OutcomeESKD:                BaselineRenal,
			domain.OutcomeHipFracture:         BaselineFracture,
			domain.OutcomeFracture:            BaselineFracture,
			domain.OutcomeVTE:                 BaselineVTE,
			domain.OutcomeMicrovascular:       BaselineDiabetes,
			domain.OutcomeAmputation:          BaselineDiabetes,
			domain.OutcomeCOPDExacerbation:    BaselineOther,
			domain.OutcomeSymptomRelief:       BaselineOther,
		},
		PopulationBaselines: map[BaselineCategory]float64{
			BaselineCardiovascular: 0.01,
			BaselineStroke:         0.02,
			BaselineMortality:      0.03,
			BaselineHeartFailure:   0.08,
			BaselineRenal:          0.02,
			BaselineFracture:       0.02,
			BaselineDiabetes:       0.02,
			BaselineVTE:            0.01,
			BaselineOther:          0.01,
		},
		RenalProgression: map[string]float64{
			"G1":  0.005,
			"G2":  0.01,
			"G3a": 0.02,
			"G3b": 0.04,
			"G4":  0.08,
			"G5":  0.15,
		},
		HFHospitalizationMultiplier: 1.5,

		MaterialityFloor: 0.001,
		MinimumNNH:       5,

		CalculatedMajorBleedShare:   0.85,
		CalculatedIntracranialShare: 0.12,

		SulfonylureaHypoBaseline: 0.02,

		GoalThresholds: map[int]float64{
			1: 3.0,
			2: 1.0,
			3: 0.3,
			4: 0.0,
		},
		StrongThreshold:    3.0,
		HazardNetFloor:     1.0,
		HighCostConsiderAt: 2000,

		BleedingClasses: map[string]bool{
			"doac":                 true,
			"anticoagulant":        true,
			"oral_anticoagulant":   true,
			"vka":                  true,
			"vitamin_k_antagonist": true,
			"antiplatelet":         true,
		},
		SulfonylureaClasses: map[string]bool{
			"sulfonylurea": true,
		},

		Indications: DefaultIndications(),
	}
}

// OutcomeWeight returns the severity weight and whether the outcome is in the table.
func (t *Tables) OutcomeWeight(kind domain.OutcomeKind) (float64, bool) {
	if w, ok := t.OutcomeWeights[kind]; ok {
		return w, true
	}
	return t.UnknownBenefit, false
}

// HarmWeight returns the severity weight and whether the harm is in the table.
func (t *Tables) HarmWeight(kind domain.HarmKind) (float64, bool) {
	if w, ok := t.HarmWeights[kind]; ok {
		return w, true
	}
	return t.UnknownHarm, false
}

// Threshold returns the net-score threshold for a goals-of-care tier.
// Tiers outside the table use the default tier.
func (t *Tables) Threshold(goals int) float64 {
	if th, ok := t.GoalThresholds[goals]; ok {
		return th
	}
	return t.GoalThresholds[domain.DefaultGoalsOfCare]
}

// IsBleedingClass reports whether a medication class carries calculated bleeding risk.
func (t *Tables) IsBleedingClass(class string) bool {
	return t.BleedingClasses[normalizeClass(class)]
}

// IsSulfonylurea reports whether a medication class receives a synthesized
// severe hypoglycaemia estimate.
func (t *Tables) IsSulfonylurea(class string) bool {
	return t.SulfonylureaClasses[normalizeClass(class)]
}

func normalizeClass(class string) string {
	c := strings.ToLower(strings.TrimSpace(class))
	c = strings.ReplaceAll(c, "-", "_")
	return strings.ReplaceAll(c, " ", "_")
}
