package engine

import (
	"github.com/medication-net-benefit/internal/domain"
)

// DecisionInput is everything the recommendation table looks at.
type DecisionInput struct {
	NetScore               float64
	Threshold              float64
	Elderly                bool
	ListedHazard           bool
	HighSeverityWarning    bool
	FrailtyContraindicated bool
	HighBurden             bool
	GoalsOfCare            int
	HighCost               bool
	StrongThreshold        float64
	HazardNetFloor         float64
}

// DecisionRule is one row of the recommendation table. Rows are evaluated top
// down and the first matching row decides.
type DecisionRule struct {
	Name    string
	When    func(in DecisionInput) bool
	Outcome func(in DecisionInput) domain.Recommendation
}

// decisionTable is the ordered recommendation cascade.
//
//	#  rule                         when                                         outcome
//	1  negative_net                 net < 0                                      NOT_RECOMMENDED
//	2  frailty_contraindication     frailty contraindication raised              CAUTION_ELDERLY
//	3  listed_hazard_high_severity  listed hazard, high warning, elderly         NOT_RECOMMENDED if net < 1.0, else CAUTION_ELDERLY
//	4  listed_hazard                listed hazard, elderly                       CAUTION_ELDERLY if net >= threshold, else MARGINAL
//	5  meets_threshold              net >= threshold                             STRONGLY_RECOMMENDED if net >= 3.0,
//	                                                                             CONSIDER if elderly with high warning, high burden
//	                                                                             with goals 1-2, or high cost with high sensitivity,
//	                                                                             else RECOMMENDED
//	6  below_threshold              net > 0                                      MARGINAL
//	7  no_benefit                   always                                       NOT_RECOMMENDED
var decisionTable = []DecisionRule{
	{
		Name:    "negative_net",
		When:    func(in DecisionInput) bool { return in.NetScore < 0 },
		Outcome: constant(domain.NOT_RECOMMENDED),
	},
	{
		Name:    "frailty_contraindication",
		When:    func(in DecisionInput) bool { return in.FrailtyContraindicated },
		Outcome: constant(domain.CAUTION_ELDERLY),
	},
	{
		Name: "listed_hazard_high_severity",
		When: func(in DecisionInput) bool {
			return in.ListedHazard && in.HighSeverityWarning && in.Elderly
		},
		Outcome: func(in DecisionInput) domain.Recommendation {
			if in.NetScore < in.HazardNetFloor {
				return domain.NOT_RECOMMENDED
			}
			return domain.CAUTION_ELDERLY
		},
	},
	{
		Name:    "listed_hazard",
		When:    func(in DecisionInput) bool { return in.ListedHazard && in.Elderly },
		Outcome: func(in DecisionInput) domain.Recommendation {
			if in.NetScore >= in.Threshold {
				return domain.CAUTION_ELDERLY
			}
			return domain.MARGINAL
		},
	},
	{
		Name: "meets_threshold",
		When: func(in DecisionInput) bool { return in.NetScore >= in.Threshold },
		Outcome: func(in DecisionInput) domain.Recommendation {
			switch {
			case in.NetScore >= in.StrongThreshold:
				return domain.STRONGLY_RECOMMENDED
			case in.Elderly && in.HighSeverityWarning,
				in.HighBurden && (in.GoalsOfCare == 1 || in.GoalsOfCare == 2),
				in.HighCost:
				return domain.CONSIDER
			default:
				return domain.RECOMMENDED
			}
		},
	},
	{
		Name:    "below_threshold",
		When:    func(in DecisionInput) bool { return in.NetScore > 0 },
		Outcome: constant(domain.MARGINAL),
	},
	{
		Name:    "no_benefit",
		When:    func(DecisionInput) bool { return true },
		Outcome: constant(domain.NOT_RECOMMENDED),
	},
}

// Classify walks the decision table and returns the tier and the rule that fired.
func Classify(in DecisionInput) (domain.Recommendation, string) {
	for _, rule := range decisionTable {
		if rule.When(in) {
			return rule.Outcome(in), rule.Name
		}
	}
	return domain.NOT_RECOMMENDED, "no_benefit"
}

// DecisionRuleNames lists the table rows in evaluation order.
func DecisionRuleNames() []string {
	names := make([]string, len(decisionTable))
	for i, rule := range decisionTable {
		names[i] = rule.Name
	}
	return names
}

func constant(r domain.Recommendation) func(DecisionInput) domain.Recommendation {
	return func(DecisionInput) domain.Recommendation { return r }
}
