package domain

import "strings"

// OutcomeKind is the closed vocabulary of clinical outcomes a medication can prevent.
// Medication records key their efficacy statistics by these identifiers.
type OutcomeKind string

const (
	OutcomeAllCauseMortality   OutcomeKind = "all_cause_mortality"
	OutcomeCardiovascularDeath OutcomeKind = "cv_death"
	OutcomeStroke              OutcomeKind = "stroke"
	OutcomeMyocardialInfarct   OutcomeKind = "mi"
	OutcomeMACE                OutcomeKind = "mace"
	OutcomeHFHospitalization   OutcomeKind = "hf_hospitalization"
	OutcomeHospitalization     OutcomeKind = "hospitalization"
	OutcomeCKDProgression      OutcomeKind = "ckd_progression"
	OutcomeESKD                OutcomeKind = "eskd"
	OutcomeHipFracture         OutcomeKind = "hip_fracture"
	OutcomeFracture            OutcomeKind = "fracture"
	OutcomeVTE                 OutcomeKind = "vte"
	OutcomeMicrovascular       OutcomeKind = "microvascular"
	OutcomeAmputation          OutcomeKind = "amputation"
	OutcomeCOPDExacerbation    OutcomeKind = "copd_exacerbation"
	OutcomeSymptomRelief       OutcomeKind = "symptom_relief"
)

// HarmKind is the closed vocabulary of adverse effects.
type HarmKind string

const (
	HarmMajorBleeding         HarmKind = "major_bleeding"
	HarmIntracranialBleed     HarmKind = "intracranial_hemorrhage"
	HarmGIBleeding            HarmKind = "gi_bleeding"
	HarmMinorBleeding         HarmKind = "bleeding"
	HarmHypoglycemia          HarmKind = "hypoglycemia"
	HarmSevereHypoglycemia    HarmKind = "severe_hypoglycemia"
	HarmHyperkalemia          HarmKind = "hyperkalemia"
	HarmAcuteKidneyInjury     HarmKind = "aki"
	HarmNewOnsetDiabetes      HarmKind = "new_onset_diabetes"
	HarmFalls                 HarmKind = "falls"
	HarmMyopathy              HarmKind = "myopathy"
	HarmHypotension           HarmKind = "hypotension"
	HarmBradycardia           HarmKind = "bradycardia"
	HarmAngioedema            HarmKind = "angioedema"
	HarmGenitalInfection      HarmKind = "genital_infection"
	HarmKetoacidosis          HarmKind = "dka"
	HarmPancreatitis          HarmKind = "pancreatitis"
	HarmGIIntolerance         HarmKind = "gi_intolerance"
	HarmCognitiveImpairment   HarmKind = "cognitive_impairment"
	HarmSedation              HarmKind = "sedation"
	HarmCough                 HarmKind = "cough"
	HarmEdema                 HarmKind = "edema"
	HarmHyponatremia          HarmKind = "hyponatremia"
	HarmAtypicalFemurFracture HarmKind = "atypical_femur_fracture"
)

// Fallback weights for identifiers outside the vocabulary.
const (
	DefaultBenefitWeight = 0.2
	DefaultHarmWeight    = 0.05
)

// outcomeAliases maps legacy or shorthand catalog keys onto the vocabulary.
var outcomeAliases = map[string]OutcomeKind{
	"mortality":             OutcomeAllCauseMortality,
	"death":                 OutcomeAllCauseMortality,
	"cardiovascular_death":  OutcomeCardiovascularDeath,
	"myocardial_infarction": OutcomeMyocardialInfarct,
	"heart_failure_hosp":    OutcomeHFHospitalization,
}

var harmAliases = map[string]HarmKind{
	"ich":                 HarmIntracranialBleed,
	"intracranial_bleed":  HarmIntracranialBleed,
	"gi_bleed":            HarmGIBleeding,
	"acute_kidney_injury": HarmAcuteKidneyInjury,
	"fall":                HarmFalls,
}

// AllOutcomeKinds lists every outcome in the vocabulary.
func AllOutcomeKinds() []OutcomeKind {
	return []OutcomeKind{
		OutcomeAllCauseMortality, OutcomeCardiovascularDeath, OutcomeStroke, OutcomeMyocardialInfarct,
		OutcomeMACE, OutcomeHFHospitalization, OutcomeHospitalization, OutcomeCKDProgression,
		OutcomeESKD, OutcomeHipFracture, OutcomeFracture, OutcomeVTE, OutcomeMicrovascular,
		OutcomeAmputation, OutcomeCOPDExacerbation, OutcomeSymptomRelief,
	}
}

// AllHarmKinds lists every harm in the vocabulary.
func AllHarmKinds() []HarmKind {
	return []HarmKind{
		HarmMajorBleeding, HarmIntracranialBleed, HarmGIBleeding, HarmMinorBleeding,
		HarmHypoglycemia, HarmSevereHypoglycemia, HarmHyperkalemia, HarmAcuteKidneyInjury,
		HarmNewOnsetDiabetes, HarmFalls, HarmMyopathy, HarmHypotension, HarmBradycardia,
		HarmAngioedema, HarmGenitalInfection, HarmKetoacidosis, HarmPancreatitis,
		HarmGIIntolerance, HarmCognitiveImpairment, HarmSedation, HarmCough, HarmEdema,
		HarmHyponatremia, HarmAtypicalFemurFracture,
	}
}

// ParseOutcomeKind normalizes a catalog key. ok is false when the key is outside
// the vocabulary; the returned kind then carries the normalized raw key.
func ParseOutcomeKind(key string) (OutcomeKind, bool) {
	k := normalizeKey(key)
	if alias, found := outcomeAliases[k]; found {
		return alias, true
	}
	kind := OutcomeKind(k)
	return kind, kind.IsKnown()
}

// ParseHarmKind normalizes a catalog key. ok is false when the key is outside
// the vocabulary.
func ParseHarmKind(key string) (HarmKind, bool) {
	k := normalizeKey(key)
	if alias, found := harmAliases[k]; found {
		return alias, true
	}
	kind := HarmKind(k)
	return kind, kind.IsKnown()
}

// IsKnown reports whether the outcome is part of the vocabulary.
func (o OutcomeKind) IsKnown() bool {
	for _, k := range AllOutcomeKinds() {
		if k == o {
			return true
		}
	}
	return false
}

// IsKnown reports whether the harm is part of the vocabulary.
func (h HarmKind) IsKnown() bool {
	for _, k := range AllHarmKinds() {
		if k == h {
			return true
		}
	}
	return false
}

// IsBleeding reports whether the harm is a bleeding event.
func (h HarmKind) IsBleeding() bool {
	switch h {
	case HarmMajorBleeding, HarmIntracranialBleed, HarmGIBleeding, HarmMinorBleeding:
		return true
	default:
		return false
	}
}

// IsHypoglycemia reports whether the harm is a hypoglycaemic event.
func (h HarmKind) IsHypoglycemia() bool {
	return h == HarmHypoglycemia || h == HarmSevereHypoglycemia
}

// Label returns a display label for the outcome.
func (o OutcomeKind) Label() string {
	return humanize(string(o))
}

// Label returns a display label for the harm.
func (h HarmKind) Label() string {
	return humanize(string(h))
}

// DefaultOutcomeWeights returns the QALY loss per event for every outcome.
// A fresh map is returned on each call.
func DefaultOutcomeWeights() map[OutcomeKind]float64 {
	return map[OutcomeKind]float64{
		OutcomeAllCauseMortality:   1.0,
		OutcomeCardiovascularDeath: 1.0,
		OutcomeStroke:              0.6,
		OutcomeMyocardialInfarct:   0.4,
		OutcomeMACE:                0.5,
		OutcomeHFHospitalization:   0.3,
		OutcomeHospitalization:     0.2,
		OutcomeCKDProgression:      0.3,
		OutcomeESKD:                0.6,
		OutcomeHipFracture:         0.5,
		OutcomeFracture:            0.25,
		OutcomeVTE:                 0.2,
		OutcomeMicrovascular:       0.15,
		OutcomeAmputation:          0.5,
		OutcomeCOPDExacerbation:    0.2,
		OutcomeSymptomRelief:       0.1,
	}
}

// DefaultHarmWeights returns the QALY loss per event for every harm.
func DefaultHarmWeights() map[HarmKind]float64 {
	return map[HarmKind]float64{
		HarmMajorBleeding:         0.3,
		HarmIntracranialBleed:     0.8,
		HarmGIBleeding:            0.2,
		HarmMinorBleeding:         0.02,
		HarmHypoglycemia:          0.05,
		HarmSevereHypoglycemia:    0.1,
		HarmHyperkalemia:          0.05,
		HarmAcuteKidneyInjury:     0.1,
		HarmNewOnsetDiabetes:      0.05,
		HarmFalls:                 0.15,
		HarmMyopathy:              0.02,
		HarmHypotension:           0.05,
		HarmBradycardia:           0.03,
		HarmAngioedema:            0.1,
		HarmGenitalInfection:      0.01,
		HarmKetoacidosis:          0.2,
		HarmPancreatitis:          0.1,
		HarmGIIntolerance:         0.01,
		HarmCognitiveImpairment:   0.1,
		HarmSedation:              0.05,
		HarmCough:                 0.005,
		HarmEdema:                 0.01,
		HarmHyponatremia:          0.05,
		HarmAtypicalFemurFracture: 0.3,
	}
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	return strings.ReplaceAll(k, " ", "_")
}

func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
