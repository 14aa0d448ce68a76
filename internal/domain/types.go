// Package domain contains the core entities for medication net-benefit estimation:
// patient attributes, calculated risks, medication reference records, patient
// preferences and the per-medication evaluation result.
//
// Every benefit and harm magnitude in this package is expressed in one common
// unit: severity-weighted events per 100 patients per year.
package domain

import (
	"errors"
)

// Recommendation is the graded outcome of a net-benefit evaluation.
// Tiers are produced by the recommendation decision table in the engine.
type Recommendation string

const (
	STRONGLY_RECOMMENDED Recommendation = "STRONGLY_RECOMMENDED"
	RECOMMENDED          Recommendation = "RECOMMENDED"
	CONSIDER             Recommendation = "CONSIDER"
	MARGINAL             Recommendation = "MARGINAL"
	CAUTION_ELDERLY      Recommendation = "CAUTION_ELDERLY"
	NOT_RECOMMENDED      Recommendation = "NOT_RECOMMENDED"
)

// Sex is the administrative sex used by the sex-specific calculators.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Purpose tags what a medication is for. Tags are mutually exclusive.
type Purpose string

const (
	PurposePreventive       Purpose = "preventive"
	PurposeDiseaseModifying Purpose = "disease_modifying"
	PurposeSymptomatic      Purpose = "symptomatic"
	PurposeReplacement      Purpose = "replacement"
)

// BurdenTier describes the treatment burden (pill count, monitoring, administration).
type BurdenTier string

const (
	BurdenLow      BurdenTier = "low"
	BurdenModerate BurdenTier = "moderate"
	BurdenHigh     BurdenTier = "high"
)

// Level is a three-step ordinal used for cost sensitivity and pill-burden tolerance.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Severity grades a safety warning.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// EvidenceQuality grades the trial evidence behind an efficacy statistic.
type EvidenceQuality string

const (
	EvidenceHigh     EvidenceQuality = "high"
	EvidenceModerate EvidenceQuality = "moderate"
	EvidenceLow      EvidenceQuality = "low"
)

// Validation errors for reference and patient data
var (
	ErrInvalidRecommendation = errors.New("invalid recommendation tier")
	ErrInvalidPurpose        = errors.New("invalid medication purpose")
	ErrInvalidBurdenTier     = errors.New("invalid burden tier")
	ErrInvalidLevel          = errors.New("invalid level")
	ErrInvalidSex            = errors.New("invalid sex")
)

// IsValid reports whether r is one of the defined tiers.
func (r Recommendation) IsValid() bool {
	switch r {
	case STRONGLY_RECOMMENDED, RECOMMENDED, CONSIDER, MARGINAL, CAUTION_ELDERLY, NOT_RECOMMENDED:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (r Recommendation) String() string {
	return string(r)
}

// Description returns a short human-readable explanation of the tier.
func (r Recommendation) Description() string {
	switch r {
	case STRONGLY_RECOMMENDED:
		return "Strongly recommended - large expected net benefit"
	case RECOMMENDED:
		return "Recommended - net benefit meets the goals-of-care threshold"
	case CONSIDER:
		return "Consider - net benefit meets the threshold but burden, cost or safety warrant discussion"
	case MARGINAL:
		return "Marginal - small positive net benefit below the goals-of-care threshold"
	case CAUTION_ELDERLY:
		return "Caution - age-related safety concerns outweigh a simple recommendation"
	case NOT_RECOMMENDED:
		return "Not recommended - expected harm exceeds benefit or safety concern is prohibitive"
	default:
		return "Unknown recommendation"
	}
}

// Rank orders tiers from most to least favourable; lower is better.
// Unknown tiers sort last.
func (r Recommendation) Rank() int {
	switch r {
	case STRONGLY_RECOMMENDED:
		return 0
	case RECOMMENDED:
		return 1
	case CONSIDER:
		return 2
	case MARGINAL:
		return 3
	case CAUTION_ELDERLY:
		return 4
	case NOT_RECOMMENDED:
		return 5
	default:
		return 6
	}
}

// LogFields returns structured logging fields for audit trails.
func (r Recommendation) LogFields() map[string]any {
	return map[string]any{
		"recommendation": string(r),
		"description":    r.Description(),
		"is_valid":       r.IsValid(),
		"rank":           r.Rank(),
	}
}

// AllRecommendations lists the tiers in rank order.
func AllRecommendations() []Recommendation {
	return []Recommendation{STRONGLY_RECOMMENDED, RECOMMENDED, CONSIDER, MARGINAL, CAUTION_ELDERLY, NOT_RECOMMENDED}
}

// IsValid validates the sex value.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale:
		return true
	default:
		return false
	}
}

// IsValid validates the purpose tag.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposePreventive, PurposeDiseaseModifying, PurposeSymptomatic, PurposeReplacement:
		return true
	default:
		return false
	}
}

// IsValid validates the burden tier.
func (b BurdenTier) IsValid() bool {
	switch b {
	case BurdenLow, BurdenModerate, BurdenHigh:
		return true
	default:
		return false
	}
}

// Escalate moves the tier one step up. High stays high.
func (b BurdenTier) Escalate() BurdenTier {
	switch b {
	case BurdenLow:
		return BurdenModerate
	case BurdenModerate, BurdenHigh:
		return BurdenHigh
	default:
		return b
	}
}

// IsValid validates the level.
func (l Level) IsValid() bool {
	switch l {
	case LevelLow, LevelModerate, LevelHigh:
		return true
	default:
		return false
	}
}

// IsValid validates the severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return true
	default:
		return false
	}
}

// IsValid validates the evidence quality grade.
func (q EvidenceQuality) IsValid() bool {
	switch q {
	case EvidenceHigh, EvidenceModerate, EvidenceLow:
		return true
	default:
		return false
	}
}
