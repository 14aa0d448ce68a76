package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medication-net-benefit/internal/domain"
)

func decision(net, threshold float64) DecisionInput {
	return DecisionInput{
		NetScore:        net,
		Threshold:       threshold,
		GoalsOfCare:     3,
		StrongThreshold: 3.0,
		HazardNetFloor:  1.0,
	}
}

func TestDecisionRuleOrder(t *testing.T) {
	assert.Equal(t, []string{
		"negative_net",
		"frailty_contraindication",
		"listed_hazard_high_severity",
		"listed_hazard",
		"meets_threshold",
		"below_threshold",
		"no_benefit",
	}, DecisionRuleNames())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    func() DecisionInput
		expected domain.Recommendation
		rule     string
	}{
		{
			name:     "negative net wins over everything",
			input:    func() DecisionInput { in := decision(-0.1, 0); in.FrailtyContraindicated = true; return in },
			expected: domain.NOT_RECOMMENDED,
			rule:     "negative_net",
		},
		{
			name:     "frailty contraindication",
			input:    func() DecisionInput { in := decision(5, 0.3); in.FrailtyContraindicated = true; return in },
			expected: domain.CAUTION_ELDERLY,
			rule:     "frailty_contraindication",
		},
		{
			name: "high severity listed hazard with small net",
			input: func() DecisionInput {
				in := decision(0.9, 0.3)
				in.ListedHazard, in.HighSeverityWarning, in.Elderly = true, true, true
				return in
			},
			expected: domain.NOT_RECOMMENDED,
			rule:     "listed_hazard_high_severity",
		},
		{
			name: "high severity listed hazard at the net floor",
			input: func() DecisionInput {
				in := decision(1.0, 0.3)
				in.ListedHazard, in.HighSeverityWarning, in.Elderly = true, true, true
				return in
			},
			expected: domain.CAUTION_ELDERLY,
			rule:     "listed_hazard_high_severity",
		},
		{
			name: "listed hazard meeting threshold",
			input: func() DecisionInput {
				in := decision(0.5, 0.3)
				in.ListedHazard, in.Elderly = true, true
				return in
			},
			expected: domain.CAUTION_ELDERLY,
			rule:     "listed_hazard",
		},
		{
			name: "listed hazard below threshold",
			input: func() DecisionInput {
				in := decision(0.2, 0.3)
				in.ListedHazard, in.Elderly = true, true
				return in
			},
			expected: domain.MARGINAL,
			rule:     "listed_hazard",
		},
		{
			name: "listed hazard ignored for younger patients",
			input: func() DecisionInput {
				in := decision(0.5, 0.3)
				in.ListedHazard = true
				return in
			},
			expected: domain.RECOMMENDED,
			rule:     "meets_threshold",
		},
		{
			name:     "strong benefit",
			input:    func() DecisionInput { return decision(3.0, 0.3) },
			expected: domain.STRONGLY_RECOMMENDED,
			rule:     "meets_threshold",
		},
		{
			name: "strong benefit despite high burden",
			input: func() DecisionInput {
				in := decision(4.0, 1.0)
				in.HighBurden, in.GoalsOfCare = true, 2
				return in
			},
			expected: domain.STRONGLY_RECOMMENDED,
			rule:     "meets_threshold",
		},
		{
			name: "elderly with high severity warning",
			input: func() DecisionInput {
				in := decision(1.5, 0.3)
				in.Elderly, in.HighSeverityWarning = true, true
				return in
			},
			expected: domain.CONSIDER,
			rule:     "meets_threshold",
		},
		{
			name: "high burden with aggressive goals",
			input: func() DecisionInput {
				in := decision(1.5, 1.0)
				in.HighBurden, in.GoalsOfCare = true, 2
				return in
			},
			expected: domain.CONSIDER,
			rule:     "meets_threshold",
		},
		{
			name: "high burden with comfort goals",
			input: func() DecisionInput {
				in := decision(1.5, 0.3)
				in.HighBurden = true
				return in
			},
			expected: domain.RECOMMENDED,
			rule:     "meets_threshold",
		},
		{
			name: "high cost with high sensitivity",
			input: func() DecisionInput {
				in := decision(1.5, 0.3)
				in.HighCost = true
				return in
			},
			expected: domain.CONSIDER,
			rule:     "meets_threshold",
		},
		{
			name:     "positive but below threshold",
			input:    func() DecisionInput { return decision(0.29, 0.3) },
			expected: domain.MARGINAL,
			rule:     "below_threshold",
		},
		{
			name:     "zero net",
			input:    func() DecisionInput { return decision(0, 0.3) },
			expected: domain.NOT_RECOMMENDED,
			rule:     "no_benefit",
		},
		{
			name:     "zero net meets the goals 4 threshold",
			input:    func() DecisionInput { return decision(0, 0) },
			expected: domain.RECOMMENDED,
			rule:     "meets_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommendation, rule := Classify(tt.input())
			assert.Equal(t, tt.expected, recommendation)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestThresholdEdgesPerGoal(t *testing.T) {
	tables := DefaultTables()
	for goals, threshold := range map[int]float64{1: 3.0, 2: 1.0, 3: 0.3, 4: 0.0} {
		assert.Equal(t, threshold, tables.Threshold(goals))

		at := decision(threshold, threshold)
		at.GoalsOfCare = goals
		_, rule := Classify(at)
		assert.Equal(t, "meets_threshold", rule, "goals %d at threshold", goals)

		if threshold > 0 {
			below := decision(threshold-0.001, threshold)
			below.GoalsOfCare = goals
			recommendation, _ := Classify(below)
			assert.Equal(t, domain.MARGINAL, recommendation, "goals %d below threshold", goals)
		}
	}
	assert.Equal(t, 0.3, tables.Threshold(9))
}
