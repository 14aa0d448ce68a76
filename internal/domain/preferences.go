package domain

// Preferences captures the patient's stated goals and tolerances.
type Preferences struct {
	// GoalsOfCare is an ordinal from 1 (comfort-focused) to 4 (proactive).
	GoalsOfCare         int     `json:"goals_of_care" yaml:"goals_of_care"`
	TimeHorizonYears    float64 `json:"time_horizon_years" yaml:"time_horizon_years"`
	CostSensitivity     Level   `json:"cost_sensitivity" yaml:"cost_sensitivity"`
	PillBurdenTolerance Level   `json:"pill_burden_tolerance" yaml:"pill_burden_tolerance"`
}

// Default preference values applied at every boundary.
const (
	DefaultGoalsOfCare      = 3
	DefaultTimeHorizonYears = 5.0
)

// DefaultPreferences returns the documented defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		GoalsOfCare:         DefaultGoalsOfCare,
		TimeHorizonYears:    DefaultTimeHorizonYears,
		CostSensitivity:     LevelModerate,
		PillBurdenTolerance: LevelModerate,
	}
}

// WithDefaults fills every zero-valued field with its default.
func (p Preferences) WithDefaults() Preferences {
	if p.GoalsOfCare == 0 {
		p.GoalsOfCare = DefaultGoalsOfCare
	}
	if p.TimeHorizonYears == 0 {
		p.TimeHorizonYears = DefaultTimeHorizonYears
	}
	if p.CostSensitivity == "" {
		p.CostSensitivity = LevelModerate
	}
	if p.PillBurdenTolerance == "" {
		p.PillBurdenTolerance = LevelModerate
	}
	return p
}

// Validate checks the preference values after defaults are applied.
func (p Preferences) Validate() error {
	if p.GoalsOfCare < 1 || p.GoalsOfCare > 4 {
		return NewValidationError("goals_of_care", "must be between 1 and 4", p.GoalsOfCare)
	}
	if p.TimeHorizonYears < 0 || p.TimeHorizonYears > 100 {
		return NewValidationError("time_horizon_years", "must be between 0 and 100", p.TimeHorizonYears)
	}
	if !p.CostSensitivity.IsValid() {
		return NewValidationError("cost_sensitivity", ErrInvalidLevel.Error(), p.CostSensitivity)
	}
	if !p.PillBurdenTolerance.IsValid() {
		return NewValidationError("pill_burden_tolerance", ErrInvalidLevel.Error(), p.PillBurdenTolerance)
	}
	return nil
}
