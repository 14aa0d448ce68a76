package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/risk"
)

func TestLifeExpectancy(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		patient  domain.PatientAttributes
		expected float64
	}{
		{"table row", domain.PatientAttributes{Age: domain.Int(70), Sex: domain.SexMale}, 14.6},
		{"interpolated", domain.PatientAttributes{Age: domain.Int(72), Sex: domain.SexMale}, 13.36},
		{"female column", domain.PatientAttributes{Age: domain.Int(80), Sex: domain.SexFemale}, 10.2},
		{"unknown sex averages", domain.PatientAttributes{Age: domain.Int(70)}, 15.75},
		{"below table extends linearly", domain.PatientAttributes{Age: domain.Int(30), Sex: domain.SexMale}, 48.5},
		{"beyond table uses last row", domain.PatientAttributes{Age: domain.Int(105), Sex: domain.SexFemale}, 2.5},
		{
			"heart failure and renal impairment",
			domain.PatientAttributes{Age: domain.Int(70), Sex: domain.SexMale, EjectionFraction: domain.Float(35), ReportedEGFR: domain.Float(25)},
			14.6 * 0.5 * 0.7,
		},
		{
			"floor",
			domain.PatientAttributes{Age: domain.Int(100), Sex: domain.SexMale, ActiveCancer: true, Dementia: true},
			0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le, ok := e.LifeExpectancy(tt.patient, risk.Calculate(tt.patient))
			require.True(t, ok)
			assert.InDelta(t, tt.expected, le, 1e-9)
		})
	}

	t.Run("unknown age", func(t *testing.T) {
		_, ok := e.LifeExpectancy(domain.PatientAttributes{Sex: domain.SexMale}, nil)
		assert.False(t, ok)
	})
}

func TestEffectiveHorizon(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, 3.0, e.effectiveHorizon(3, true, domain.Preferences{TimeHorizonYears: 5}))
	assert.Equal(t, 5.0, e.effectiveHorizon(12, true, domain.Preferences{TimeHorizonYears: 5}))
	assert.Equal(t, 5.0, e.effectiveHorizon(0, false, domain.Preferences{TimeHorizonYears: 5}))
	assert.Equal(t, 10.0, e.effectiveHorizon(0, false, domain.Preferences{}))
}

func TestBurden(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		burden  domain.BurdenTier
		cost    float64
		prefs   domain.Preferences
		tier    domain.BurdenTier
		penalty float64
	}{
		{"low", domain.BurdenLow, 0, domain.DefaultPreferences(), domain.BurdenLow, 1.0},
		{"invalid treated as moderate", "", 0, domain.DefaultPreferences(), domain.BurdenModerate, 3.0},
		{"low tolerance escalates", domain.BurdenModerate, 0, domain.Preferences{PillBurdenTolerance: domain.LevelLow}.WithDefaults(), domain.BurdenHigh, 6.0},
		{"high stays high", domain.BurdenHigh, 0, domain.Preferences{PillBurdenTolerance: domain.LevelLow}.WithDefaults(), domain.BurdenHigh, 6.0},
		{"high cost sensitivity surcharge", domain.BurdenLow, 3000, domain.Preferences{CostSensitivity: domain.LevelHigh}.WithDefaults(), domain.BurdenLow, 1.5},
		{"moderate sensitivity below its threshold", domain.BurdenLow, 3000, domain.DefaultPreferences(), domain.BurdenLow, 1.0},
		{"moderate cost sensitivity surcharge", domain.BurdenLow, 6000, domain.DefaultPreferences(), domain.BurdenLow, 1.3},
		{"low sensitivity never surcharged", domain.BurdenLow, 60000, domain.Preferences{CostSensitivity: domain.LevelLow}.WithDefaults(), domain.BurdenLow, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := domain.MedicationRecord{Burden: tt.burden, AnnualCost: tt.cost}
			tier, penalty := e.burden(med, tt.prefs)
			assert.Equal(t, tt.tier, tier)
			assert.Equal(t, tt.penalty, penalty)
		})
	}
}

func TestAdjustNNH(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name      string
		kind      domain.HarmKind
		nnh       float64
		patient   domain.PatientAttributes
		expected  float64
		modifiers int
	}{
		{"hyperkalemia with eGFR below 30", domain.HarmHyperkalemia, 40, domain.PatientAttributes{ReportedEGFR: domain.Float(25)}, 20, 1},
		{"hyperkalemia with eGFR below 45", domain.HarmHyperkalemia, 40, domain.PatientAttributes{ReportedEGFR: domain.Float(40)}, 28, 1},
		{"kidney injury with eGFR below 60", domain.HarmAcuteKidneyInjury, 40, domain.PatientAttributes{ReportedEGFR: domain.Float(55)}, 34, 1},
		{"hyperkalemia with normal eGFR", domain.HarmHyperkalemia, 40, domain.PatientAttributes{ReportedEGFR: domain.Float(90)}, 40, 0},
		{"hypoglycemia in the old with low eGFR", domain.HarmHypoglycemia, 20, domain.PatientAttributes{Age: domain.Int(80), ReportedEGFR: domain.Float(40)}, 8.4, 2},
		{"new onset diabetes with prediabetes", domain.HarmNewOnsetDiabetes, 100, domain.PatientAttributes{Prediabetes: true}, 50, 1},
		{"floor", domain.HarmHyperkalemia, 6, domain.PatientAttributes{ReportedEGFR: domain.Float(25)}, 5, 2},
		{"unaffected harm", domain.HarmBradycardia, 40, domain.PatientAttributes{Age: domain.Int(90), ReportedEGFR: domain.Float(20)}, 40, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nnh, modifiers := e.adjustNNH(tt.kind, tt.nnh, tt.patient, nil)
			assert.InDelta(t, tt.expected, nnh, 1e-9)
			assert.Len(t, modifiers, tt.modifiers)
		})
	}
}

func TestSafetyScreen(t *testing.T) {
	e := newTestEngine(t)
	med := func(s domain.AgeSafety) domain.MedicationRecord {
		return domain.MedicationRecord{ID: "probe", Name: "Probe", AgeSafety: &s}
	}

	t.Run("no metadata", func(t *testing.T) {
		warnings := e.screen(domain.MedicationRecord{}, domain.PatientAttributes{Age: domain.Int(90)}, nil)
		assert.NotNil(t, warnings)
		assert.Empty(t, warnings)
	})

	t.Run("fall risk severity", func(t *testing.T) {
		m := med(domain.AgeSafety{FallRisk: true})
		assert.Empty(t, e.screen(m, domain.PatientAttributes{Age: domain.Int(60)}, nil))

		moderate := e.screen(m, domain.PatientAttributes{Age: domain.Int(70)}, nil)
		require.Len(t, moderate, 1)
		assert.Equal(t, domain.SeverityModerate, moderate[0].Severity)

		high := e.screen(m, domain.PatientAttributes{Age: domain.Int(70), FallHistory: true}, nil)
		require.Len(t, high, 1)
		assert.Equal(t, domain.SeverityHigh, high[0].Severity)
	})

	t.Run("listed hazard comes first", func(t *testing.T) {
		m := med(domain.AgeSafety{ListedHazard: true, HazardSeverity: domain.SeverityHigh, HazardStrength: "strong", Sedation: true})
		warnings := e.screen(m, domain.PatientAttributes{Age: domain.Int(78), Dementia: true}, nil)
		require.Len(t, warnings, 2)
		assert.Equal(t, domain.SafetyListedHazard, warnings[0].Category)
		assert.Equal(t, domain.SeverityHigh, warnings[0].Severity)
		assert.Contains(t, warnings[0].Message, "strength of recommendation: strong")
		assert.Equal(t, domain.SafetySedation, warnings[1].Category)
		assert.Equal(t, domain.SeverityHigh, warnings[1].Severity)

		assert.Empty(t, e.screen(m, domain.PatientAttributes{Age: domain.Int(50)}, nil))
	})

	t.Run("listed hazard without severity", func(t *testing.T) {
		warnings := e.screen(med(domain.AgeSafety{ListedHazard: true}), domain.PatientAttributes{Age: domain.Int(66)}, nil)
		require.Len(t, warnings, 1)
		assert.Equal(t, domain.SeverityModerate, warnings[0].Severity)
	})

	t.Run("heart failure exacerbation regardless of age", func(t *testing.T) {
		m := med(domain.AgeSafety{HeartFailureExacerbation: true})
		high := e.screen(m, domain.PatientAttributes{Age: domain.Int(50), EjectionFraction: domain.Float(35)}, nil)
		require.Len(t, high, 1)
		assert.Equal(t, domain.SeverityHigh, high[0].Severity)

		moderate := e.screen(m, domain.PatientAttributes{HeartFailure: true, EjectionFraction: domain.Float(45)}, nil)
		require.Len(t, moderate, 1)
		assert.Equal(t, domain.SeverityModerate, moderate[0].Severity)
	})

	t.Run("hypoglycemia uses eGFR", func(t *testing.T) {
		m := med(domain.AgeSafety{Hypoglycemia: true})
		warnings := e.screen(m, domain.PatientAttributes{Age: domain.Int(68), ReportedEGFR: domain.Float(40)}, nil)
		require.Len(t, warnings, 1)
		assert.Equal(t, domain.SeverityHigh, warnings[0].Severity)
	})
}

func TestHazardRecommendations(t *testing.T) {
	e := newTestEngine(t)
	med := domain.MedicationRecord{
		ID:      "zolpidem",
		Name:    "Zolpidem",
		Class:   "hypnotic",
		Purpose: domain.PurposeSymptomatic,
		Benefits: map[string]map[string]domain.Efficacy{
			"general": {"symptom_relief": {NNT: domain.Float(100), TimeframeYears: 1}},
		},
		Burden:    domain.BurdenLow,
		AgeSafety: &domain.AgeSafety{ListedHazard: true, HazardSeverity: domain.SeverityHigh},
	}

	elderly := domain.PatientAttributes{Age: domain.Int(80)}
	result := e.Evaluate(med, elderly, nil, domain.DefaultPreferences())
	assert.Equal(t, 0.1, result.NetScore)
	assert.Equal(t, domain.NOT_RECOMMENDED, result.Recommendation)
	assert.Equal(t, "listed_hazard_high_severity", result.RecommendationRule)

	med.AgeSafety = &domain.AgeSafety{FrailtyContraindication: true}
	frail := domain.PatientAttributes{Age: domain.Int(80), Frailty: true}
	result = e.Evaluate(med, frail, nil, domain.DefaultPreferences())
	assert.Equal(t, domain.CAUTION_ELDERLY, result.Recommendation)
	assert.Equal(t, "frailty_contraindication", result.RecommendationRule)
	assert.True(t, result.HasWarning(domain.SafetyFrailtyContraindication))
}

func TestIndicationRegistry(t *testing.T) {
	tables := DefaultTables()
	assert.Contains(t, tables.KnownIndications(), "hfref")
	assert.Contains(t, tables.KnownIndications(), "general")
	assert.IsIncreasing(t, tables.KnownIndications())

	assert.False(t, tables.IndicationApplies("moon_phase", domain.PatientAttributes{}, nil))
	assert.True(t, tables.IndicationApplies(" HFrEF ", domain.PatientAttributes{EjectionFraction: domain.Float(35)}, nil))
	assert.False(t, tables.IndicationApplies("hfref", domain.PatientAttributes{}, nil))

	secondary := domain.PatientAttributes{PriorMI: true, Diabetes: true}
	assert.True(t, tables.IndicationApplies("secondary_prevention", secondary, nil))
	assert.False(t, tables.IndicationApplies("primary_prevention", secondary, nil))

	assert.True(t, tables.IndicationApplies("ckd", domain.PatientAttributes{ReportedEGFR: domain.Float(50)}, nil))
	assert.True(t, tables.IndicationApplies("hypertension", domain.PatientAttributes{SystolicBP: domain.Float(150)}, nil))
	assert.True(t, tables.IndicationApplies("hyperlipidemia", domain.PatientAttributes{LDL: domain.Float(190)}, nil))
}

func TestIndicationsAreInjectedThroughTables(t *testing.T) {
	tables := DefaultTables()
	tables.Indications["hfref"] = Indication{
		Key:     "hfref",
		Applies: func(domain.PatientAttributes, domain.RiskBundle) bool { return false },
	}
	e := New(tables, nil)

	patient := domain.PatientAttributes{Age: domain.Int(70), EjectionFraction: domain.Float(30)}
	result := e.Evaluate(betaBlocker(), patient, nil, domain.DefaultPreferences())
	assert.Empty(t, result.ApplicableIndications)
	assert.Empty(t, result.Benefits)

	fresh := New(DefaultTables(), nil).Evaluate(betaBlocker(), patient, nil, domain.DefaultPreferences())
	assert.Equal(t, []string{"hfref"}, fresh.ApplicableIndications)
}

func TestBaselineRisk(t *testing.T) {
	e := newTestEngine(t)

	af := domain.PatientAttributes{AtrialFibrillation: true, Age: domain.Int(76), Sex: domain.SexFemale, Hypertension: true}
	stroke := e.baselineRisk(domain.OutcomeStroke, af, risk.Calculate(af))
	assert.InDelta(t, 0.048, stroke.Annual, 1e-9)
	assert.Equal(t, "CHA2DS2-VASc", stroke.Source)

	renal := domain.PatientAttributes{ReportedEGFR: domain.Float(40)}
	progression := e.baselineRisk(domain.OutcomeCKDProgression, renal, risk.Calculate(renal))
	assert.Equal(t, 0.04, progression.Annual)

	fallback := e.baselineRisk(domain.OutcomeHipFracture, domain.PatientAttributes{}, nil)
	assert.Equal(t, Baseline{0.02, "population default"}, fallback)

	unknown := e.baselineRisk(domain.OutcomeKind("quality_of_life"), domain.PatientAttributes{}, nil)
	assert.Equal(t, 0.01, unknown.Annual)
}

func TestTablesCoverEveryKnownKind(t *testing.T) {
	tables := DefaultTables()
	for _, kind := range domain.AllOutcomeKinds() {
		_, known := tables.OutcomeWeight(kind)
		assert.True(t, known, kind)
		_, categorized := tables.OutcomeCategories[kind]
		assert.True(t, categorized, kind)
	}
	for _, kind := range domain.AllHarmKinds() {
		_, known := tables.HarmWeight(kind)
		assert.True(t, known, kind)
	}
	assert.True(t, tables.IsBleedingClass(" DOAC "))
	assert.True(t, tables.IsSulfonylurea("Sulfonylurea"))
	assert.False(t, tables.IsBleedingClass("statin"))
}
