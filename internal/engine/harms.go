package engine

import (
	"fmt"
	"math"

	"github.com/medication-net-benefit/internal/domain"
)

// PatientAdjustedSource marks harm entries synthesized from patient attributes.
const PatientAdjustedSource = "Patient-adjusted estimate"

func (e *Engine) harms(med domain.MedicationRecord, p domain.PatientAttributes, risks domain.RiskBundle) []domain.HarmEntry {
	entries := make([]domain.HarmEntry, 0, len(med.Harms)+2)

	bleed, hasBleed := risks.Get(domain.RiskBleeding)
	calculatedBleeding := hasBleed && e.tables.IsBleedingClass(med.Class)
	if calculatedBleeding {
		entries = append(entries, e.calculatedBleeding(bleed)...)
	}

	sulfonylurea := e.tables.IsSulfonylurea(med.Class)
	if sulfonylurea {
		entries = append(entries, e.sulfonylureaHypoglycemia(p, risks))
	}

	for _, key := range med.HarmKeys() {
		kind, known := domain.ParseHarmKind(key)
		if calculatedBleeding && kind.IsBleeding() {
			continue
		}
		if sulfonylurea && kind.IsHypoglycemia() {
			continue
		}
		stat := med.Harms[key]
		if stat.NNH <= 0 {
			continue
		}
		entries = append(entries, e.staticHarm(kind, known, stat, p, risks))
	}
	return entries
}

func (e *Engine) calculatedBleeding(bleed domain.RiskResult) []domain.HarmEntry {
	annual := bleed.AnnualProbability()
	source := fmt.Sprintf("Calculated from HAS-BLED score %.0f (%.1f%%/yr)", bleed.Score, bleed.AnnualRiskPercent)

	shares := []struct {
		kind  domain.HarmKind
		share float64
	}{
		{domain.HarmMajorBleeding, e.tables.CalculatedMajorBleedShare},
		{domain.HarmIntracranialBleed, e.tables.CalculatedIntracranialShare},
	}

	entries := make([]domain.HarmEntry, 0, len(shares))
	for _, s := range shares {
		weight, known := e.tables.HarmWeight(s.kind)
		rate := annual * s.share
		entries = append(entries, domain.HarmEntry{
			Harm:              s.kind,
			Label:             s.kind.Label(),
			KnownHarm:         known,
			AnnualProbability: rate,
			TimeframeYears:    1,
			SeverityWeight:    weight,
			Magnitude:         round3(rate * weight * 100),
			Source:            source,
		})
	}
	return entries
}

// sulfonylureaHypoglycemia synthesizes a severe hypoglycaemia harm from a 2%
// annual baseline scaled by age and renal function.
func (e *Engine) sulfonylureaHypoglycemia(p domain.PatientAttributes, risks domain.RiskBundle) domain.HarmEntry {
	rate := e.tables.SulfonylureaHypoBaseline
	var modifiers []string

	switch {
	case p.AgeAtLeast(75):
		rate *= 2.0
		modifiers = append(modifiers, "age >= 75 (x2.0)")
	case p.AgeAtLeast(65):
		rate *= 1.5
		modifiers = append(modifiers, "age >= 65 (x1.5)")
	}

	if egfr, ok := patientEGFR(p, risks); ok {
		switch {
		case egfr < 30:
			rate *= 2.0
			modifiers = append(modifiers, "eGFR < 30 (x2.0)")
		case egfr < 60:
			rate *= 1.5
			modifiers = append(modifiers, "eGFR < 60 (x1.5)")
		}
	}

	nnh := round1(1 / rate)
	weight, known := e.tables.HarmWeight(domain.HarmSevereHypoglycemia)
	return domain.HarmEntry{
		Harm:              domain.HarmSevereHypoglycemia,
		Label:             domain.HarmSevereHypoglycemia.Label(),
		KnownHarm:         known,
		AnnualProbability: rate,
		NNH:               nnh,
		TimeframeYears:    1,
		SeverityWeight:    weight,
		Magnitude:         round3(EventsPer100(nnh, weight)),
		Source:            PatientAdjustedSource,
		Modifiers:         modifiers,
	}
}

func (e *Engine) staticHarm(kind domain.HarmKind, known bool, stat domain.HarmStat, p domain.PatientAttributes, risks domain.RiskBundle) domain.HarmEntry {
	nnh, modifiers := e.adjustNNH(kind, stat.NNH, p, risks)
	weight, _ := e.tables.HarmWeight(kind)
	annualized := AnnualizedNNT(nnh, stat.TimeframeYears)

	var probability float64
	if annualized > 0 {
		probability = 1 / annualized
	}
	return domain.HarmEntry{
		Harm:              kind,
		Label:             kind.Label(),
		KnownHarm:         known,
		AnnualProbability: probability,
		NNH:               round3(nnh),
		TimeframeYears:    stat.TimeframeYears,
		SeverityWeight:    weight,
		Magnitude:         round3(EventsPer100(annualized, weight)),
		Source:            stat.Source,
		Modifiers:         modifiers,
	}
}

// adjustNNH tightens a static NNH for patient-specific risk modifiers and
// applies the minimum NNH floor. A non-positive NNH is returned unchanged.
func (e *Engine) adjustNNH(kind domain.HarmKind, nnh float64, p domain.PatientAttributes, risks domain.RiskBundle) (float64, []string) {
	var modifiers []string
	egfr, hasEGFR := patientEGFR(p, risks)

	switch {
	case kind == domain.HarmHyperkalemia || kind == domain.HarmAcuteKidneyInjury:
		switch {
		case hasEGFR && egfr < 30:
			nnh *= 0.5
			modifiers = append(modifiers, "eGFR < 30 (x0.5)")
		case hasEGFR && egfr < 45:
			nnh *= 0.7
			modifiers = append(modifiers, "eGFR < 45 (x0.7)")
		case hasEGFR && egfr < 60:
			nnh *= 0.85
			modifiers = append(modifiers, "eGFR < 60 (x0.85)")
		}
	case kind.IsHypoglycemia():
		if p.AgeAtLeast(75) {
			nnh *= 0.6
			modifiers = append(modifiers, "age >= 75 (x0.6)")
		}
		if hasEGFR && egfr < 45 {
			nnh *= 0.7
			modifiers = append(modifiers, "eGFR < 45 (x0.7)")
		}
	case kind == domain.HarmNewOnsetDiabetes:
		if p.Prediabetes {
			nnh *= 0.5
			modifiers = append(modifiers, "prediabetes (x0.5)")
		}
	}

	if nnh <= 0 {
		return nnh, nil
	}
	if nnh < e.tables.MinimumNNH {
		nnh = e.tables.MinimumNNH
		modifiers = append(modifiers, fmt.Sprintf("floored at %.0f", e.tables.MinimumNNH))
	}
	return nnh, modifiers
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
