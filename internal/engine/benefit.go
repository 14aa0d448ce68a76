package engine

import (
	"github.com/medication-net-benefit/internal/domain"
)

// AnnualizedNNT converts a trial NNT over timeframe years into a one-year NNT.
func AnnualizedNNT(nnt, timeframe float64) float64 {
	if timeframe <= 0 {
		return nnt
	}
	return nnt * timeframe
}

// ImpliedNNT derives a one-year NNT from baseline annual risk and relative risk
// reduction. A non-positive product yields 0, meaning no benefit.
func ImpliedNNT(baselineAnnual, rrr float64) float64 {
	denom := baselineAnnual * rrr
	if denom <= 0 {
		return 0
	}
	return 1 / denom
}

// EventsPer100 converts an annualized NNT or NNH into weighted events per 100
// patients per year. Non-positive inputs give 0.
func EventsPer100(annualized, weight float64) float64 {
	if annualized <= 0 {
		return 0
	}
	return 100 * weight / annualized
}

func (e *Engine) benefits(med domain.MedicationRecord, applicable []string, p domain.PatientAttributes, risks domain.RiskBundle, horizon float64) []domain.BenefitEntry {
	entries := make([]domain.BenefitEntry, 0)
	for _, indication := range applicable {
		outcomes := med.Benefits[indication]
		for _, key := range domain.SortedOutcomes(outcomes) {
			if entry, ok := e.benefitEntry(indication, key, outcomes[key], p, risks, horizon); ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

func (e *Engine) benefitEntry(indication, key string, eff domain.Efficacy, p domain.PatientAttributes, risks domain.RiskBundle, horizon float64) (domain.BenefitEntry, bool) {
	kind, known := domain.ParseOutcomeKind(key)
	weight, _ := e.tables.OutcomeWeight(kind)

	entry := domain.BenefitEntry{
		Indication:      indication,
		Outcome:         kind,
		Label:           kind.Label(),
		KnownOutcome:    known,
		SeverityWeight:  weight,
		TimeframeYears:  eff.TimeframeYears,
		EvidenceQuality: eff.EvidenceQuality,
		Source:          eff.Source,
	}

	switch {
	case eff.NNT != nil:
		entry.NNT = *eff.NNT
		entry.AnnualizedNNT = AnnualizedNNT(*eff.NNT, eff.TimeframeYears)
	case eff.RRR != nil:
		baseline := e.baselineRisk(kind, p, risks)
		entry.RRR = *eff.RRR
		entry.BaselineAnnualRisk = baseline.Annual
		entry.BaselineSource = baseline.Source
		entry.AnnualizedNNT = ImpliedNNT(baseline.Annual, *eff.RRR)
	}

	entry.DiscountFactor = DiscountFactor(horizon, eff.TimeframeYears)
	discounted := EventsPer100(entry.AnnualizedNNT, weight) * entry.DiscountFactor
	if discounted <= e.tables.MaterialityFloor {
		return domain.BenefitEntry{}, false
	}
	entry.AnnualizedNNT = round3(entry.AnnualizedNNT)
	entry.Magnitude = round3(discounted)
	return entry, true
}
