package domain

import (
	"fmt"
)

// PatientAttributes is the flat record of demographic, laboratory and comorbidity
// data for one patient. Numeric fields are optional (nil means not supplied);
// history flags default to false (absent). The record is read-only input to
// every calculation in a run.
type PatientAttributes struct {
	// Demographics
	Age  *int   `json:"age,omitempty" yaml:"age,omitempty"`
	Sex  Sex    `json:"sex,omitempty" yaml:"sex,omitempty"`
	Race string `json:"race,omitempty" yaml:"race,omitempty"`

	// Vitals and labs
	SystolicBP            *float64 `json:"systolic_bp,omitempty" yaml:"systolic_bp,omitempty"`
	DiastolicBP           *float64 `json:"diastolic_bp,omitempty" yaml:"diastolic_bp,omitempty"`
	TotalCholesterol      *float64 `json:"total_cholesterol,omitempty" yaml:"total_cholesterol,omitempty"`
	HDL                   *float64 `json:"hdl,omitempty" yaml:"hdl,omitempty"`
	LDL                   *float64 `json:"ldl,omitempty" yaml:"ldl,omitempty"`
	Creatinine            *float64 `json:"creatinine,omitempty" yaml:"creatinine,omitempty"` // mg/dL
	ReportedEGFR          *float64 `json:"egfr,omitempty" yaml:"egfr,omitempty"`
	HbA1c                 *float64 `json:"hba1c,omitempty" yaml:"hba1c,omitempty"`
	EjectionFraction      *float64 `json:"ejection_fraction,omitempty" yaml:"ejection_fraction,omitempty"`
	NYHAClass             *int     `json:"nyha_class,omitempty" yaml:"nyha_class,omitempty"`
	DiabetesDurationYears *float64 `json:"diabetes_duration_years,omitempty" yaml:"diabetes_duration_years,omitempty"`
	BMI                   *float64 `json:"bmi,omitempty" yaml:"bmi,omitempty"`

	// Treatment status
	OnBPTreatment          bool `json:"on_bp_treatment,omitempty" yaml:"on_bp_treatment,omitempty"`
	OnBetaBlocker          bool `json:"on_beta_blocker,omitempty" yaml:"on_beta_blocker,omitempty"`
	OnACEInhibitorOrARB    bool `json:"on_acei_or_arb,omitempty" yaml:"on_acei_or_arb,omitempty"`
	AntiplateletOrNSAIDUse bool `json:"antiplatelet_or_nsaid,omitempty" yaml:"antiplatelet_or_nsaid,omitempty"`

	// History
	AtrialFibrillation    bool `json:"atrial_fibrillation,omitempty" yaml:"atrial_fibrillation,omitempty"`
	HeartFailure          bool `json:"heart_failure,omitempty" yaml:"heart_failure,omitempty"`
	Hypertension          bool `json:"hypertension,omitempty" yaml:"hypertension,omitempty"`
	Diabetes              bool `json:"diabetes,omitempty" yaml:"diabetes,omitempty"`
	Prediabetes           bool `json:"prediabetes,omitempty" yaml:"prediabetes,omitempty"`
	PriorStroke           bool `json:"prior_stroke,omitempty" yaml:"prior_stroke,omitempty"` // stroke, TIA or thromboembolism
	PriorMI               bool `json:"prior_mi,omitempty" yaml:"prior_mi,omitempty"`
	VascularDisease       bool `json:"vascular_disease,omitempty" yaml:"vascular_disease,omitempty"`
	ChronicKidneyDisease  bool `json:"ckd,omitempty" yaml:"ckd,omitempty"`
	Dialysis              bool `json:"dialysis,omitempty" yaml:"dialysis,omitempty"`
	ActiveCancer          bool `json:"active_cancer,omitempty" yaml:"active_cancer,omitempty"`
	Frailty               bool `json:"frailty,omitempty" yaml:"frailty,omitempty"`
	Dementia              bool `json:"dementia,omitempty" yaml:"dementia,omitempty"`
	CognitiveImpairment   bool `json:"cognitive_impairment,omitempty" yaml:"cognitive_impairment,omitempty"`
	COPD                  bool `json:"copd,omitempty" yaml:"copd,omitempty"`
	Smoker                bool `json:"smoker,omitempty" yaml:"smoker,omitempty"`
	AlcoholUse            bool `json:"alcohol_use,omitempty" yaml:"alcohol_use,omitempty"`
	BleedingHistory       bool `json:"bleeding_history,omitempty" yaml:"bleeding_history,omitempty"`
	Anemia                bool `json:"anemia,omitempty" yaml:"anemia,omitempty"`
	LabileINR             bool `json:"labile_inr,omitempty" yaml:"labile_inr,omitempty"`
	AbnormalLiverFunction bool `json:"abnormal_liver_function,omitempty" yaml:"abnormal_liver_function,omitempty"`
	AbnormalRenalFunction bool `json:"abnormal_renal_function,omitempty" yaml:"abnormal_renal_function,omitempty"`
	FallHistory           bool `json:"fall_history,omitempty" yaml:"fall_history,omitempty"`
	Osteoporosis          bool `json:"osteoporosis,omitempty" yaml:"osteoporosis,omitempty"`
	Hyperlipidemia        bool `json:"hyperlipidemia,omitempty" yaml:"hyperlipidemia,omitempty"`
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// AgeYears returns the age and whether it was supplied.
func (p PatientAttributes) AgeYears() (int, bool) {
	if p.Age == nil {
		return 0, false
	}
	return *p.Age, true
}

// AgeAtLeast reports whether a known age is >= years. Unknown age is never elderly.
func (p PatientAttributes) AgeAtLeast(years int) bool {
	age, ok := p.AgeYears()
	return ok && age >= years
}

// IsElderly reports whether the patient is 65 or older.
func (p PatientAttributes) IsElderly() bool {
	return p.AgeAtLeast(65)
}

// IsFemale reports whether sex is recorded as female.
func (p PatientAttributes) IsFemale() bool {
	return p.Sex == SexFemale
}

// EjectionFractionBelow reports whether a known ejection fraction is < threshold.
func (p PatientAttributes) EjectionFractionBelow(threshold float64) bool {
	return p.EjectionFraction != nil && *p.EjectionFraction < threshold
}

// PriorVascularEvent reports a history of myocardial infarction or stroke.
func (p PatientAttributes) PriorVascularEvent() bool {
	return p.PriorMI || p.PriorStroke
}

// Validate checks supplied values for physiologic plausibility.
// Missing values are never an error.
func (p PatientAttributes) Validate() error {
	if p.Age != nil && (*p.Age < 0 || *p.Age > 120) {
		return NewValidationError("age", "must be between 0 and 120", *p.Age)
	}
	if p.Sex != "" && !p.Sex.IsValid() {
		return NewValidationError("sex", ErrInvalidSex.Error(), p.Sex)
	}
	checks := []struct {
		field    string
		value    *float64
		min, max float64
	}{
		{"systolic_bp", p.SystolicBP, 50, 300},
		{"diastolic_bp", p.DiastolicBP, 20, 200},
		{"total_cholesterol", p.TotalCholesterol, 50, 1000},
		{"hdl", p.HDL, 5, 200},
		{"ldl", p.LDL, 5, 600},
		{"creatinine", p.Creatinine, 0.05, 25},
		{"egfr", p.ReportedEGFR, 0, 200},
		{"hba1c", p.HbA1c, 3, 20},
		{"ejection_fraction", p.EjectionFraction, 5, 90},
		{"diabetes_duration_years", p.DiabetesDurationYears, 0, 100},
		{"bmi", p.BMI, 10, 100},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if *c.value < c.min || *c.value > c.max {
			return NewValidationError(c.field, fmt.Sprintf("must be between %g and %g", c.min, c.max), *c.value)
		}
	}
	if p.NYHAClass != nil && (*p.NYHAClass < 1 || *p.NYHAClass > 4) {
		return NewValidationError("nyha_class", "must be between 1 and 4", *p.NYHAClass)
	}
	return nil
}
