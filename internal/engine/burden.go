package engine

import (
	"github.com/medication-net-benefit/internal/domain"
)

// burden returns the effective tier and the annual penalty including any cost surcharge.
func (e *Engine) burden(med domain.MedicationRecord, prefs domain.Preferences) (domain.BurdenTier, float64) {
	tier := med.Burden
	if !tier.IsValid() {
		tier = domain.BurdenModerate
	}
	if prefs.PillBurdenTolerance == domain.LevelLow {
		tier = tier.Escalate()
	}

	penalty := e.tables.BurdenPenalties[tier]
	switch {
	case prefs.CostSensitivity == domain.LevelHigh && med.AnnualCost > e.tables.HighCostThreshold:
		penalty += e.tables.HighCostSurcharge
	case prefs.CostSensitivity == domain.LevelModerate && med.AnnualCost > e.tables.ModerateCostThreshold:
		penalty += e.tables.ModerateCostSurcharge
	}
	return tier, round3(penalty)
}
