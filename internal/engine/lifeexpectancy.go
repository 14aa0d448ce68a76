package engine

import (
	"math"

	"github.com/medication-net-benefit/internal/domain"
)

// LifeExpectancy returns remaining life expectancy in years, adjusted for
// comorbidities and floored. ok is false when age is unknown.
func (e *Engine) LifeExpectancy(p domain.PatientAttributes, risks domain.RiskBundle) (float64, bool) {
	age, ok := p.AgeYears()
	if !ok {
		return 0, false
	}

	le := e.actuarial(float64(age), p.Sex)
	le *= comorbidityFactor(p, risks)
	return math.Max(le, e.tables.LifeExpectancyFloor), true
}

// actuarial interpolates the base table. Unknown sex uses the mean of both columns.
func (e *Engine) actuarial(age float64, sex domain.Sex) float64 {
	rows := e.tables.Actuarial
	if len(rows) == 0 {
		return e.tables.DefaultHorizon
	}
	pick := func(r ActuarialRow) float64 {
		switch sex {
		case domain.SexMale:
			return r.Male
		case domain.SexFemale:
			return r.Female
		default:
			return (r.Male + r.Female) / 2
		}
	}

	first, last := rows[0], rows[len(rows)-1]
	if age <= first.Age {
		return pick(first) + (first.Age - age)
	}
	if age >= last.Age {
		return pick(last)
	}
	for i := 1; i < len(rows); i++ {
		lo, hi := rows[i-1], rows[i]
		if age <= hi.Age {
			frac := (age - lo.Age) / (hi.Age - lo.Age)
			return pick(lo) + frac*(pick(hi)-pick(lo))
		}
	}
	return pick(last)
}

func comorbidityFactor(p domain.PatientAttributes, risks domain.RiskBundle) float64 {
	factor := 1.0

	switch {
	case p.EjectionFractionBelow(40):
		factor *= 0.5
	case p.HeartFailure:
		factor *= 0.7
	}

	egfr, hasEGFR := patientEGFR(p, risks)
	switch {
	case p.Dialysis || (hasEGFR && egfr < 15):
		factor *= 0.5
	case hasEGFR && egfr < 30:
		factor *= 0.7
	case (hasEGFR && egfr < 60) || p.ChronicKidneyDisease:
		factor *= 0.85
	}

	if p.ActiveCancer {
		factor *= 0.4
	}
	if p.Frailty {
		factor *= 0.6
	}
	if p.Dementia {
		factor *= 0.5
	}
	if p.COPD {
		factor *= 0.8
	}
	if p.PriorVascularEvent() {
		factor *= 0.85
	}
	if p.Diabetes {
		factor *= 0.9
	}
	return factor
}

// effectiveHorizon is the shorter of life expectancy and the preferred horizon.
func (e *Engine) effectiveHorizon(lifeExpectancy float64, known bool, prefs domain.Preferences) float64 {
	horizon := prefs.TimeHorizonYears
	if horizon <= 0 {
		horizon = e.tables.DefaultHorizon
	}
	if known {
		return math.Min(lifeExpectancy, horizon)
	}
	return horizon
}

// DiscountFactor scales a trial benefit by how much of the trial timeframe the
// patient is expected to live through.
func DiscountFactor(effectiveHorizon, timeframe float64) float64 {
	switch {
	case effectiveHorizon >= timeframe:
		return 1.0
	case effectiveHorizon <= 1:
		return 0.2
	default:
		return effectiveHorizon / timeframe
	}
}
