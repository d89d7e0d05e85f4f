package domain

import "strings"

// RiskCategory is the coarse triage bucket of an individual.
type RiskCategory string

const (
	Critical RiskCategory = "CRITICAL"
	High     RiskCategory = "HIGH"
	Medium   RiskCategory = "MEDIUM"
	Low      RiskCategory = "LOW"
)

// HighRiskThreshold is the urgency score above which an individual counts as
// high risk in briefings.
const HighRiskThreshold = 70.0

// NormalizeCategory upper-cases and trims a category string from any producer.
func NormalizeCategory(s string) RiskCategory {
	return RiskCategory(strings.ToUpper(strings.TrimSpace(s)))
}

// Rank orders categories for sorting: CRITICAL=3, HIGH=2, MEDIUM/LOW=1,
// anything else 0.
func (c RiskCategory) Rank() int {
	switch NormalizeCategory(string(c)) {
	case Critical:
		return 3
	case High:
		return 2
	case Medium, Low:
		return 1
	default:
		return 0
	}
}

// CategoryForDangerLevel maps a local 0–100 danger level to a category:
// above 75 is CRITICAL, above 50 is HIGH, everything else LOW.
func CategoryForDangerLevel(level float64) RiskCategory {
	switch {
	case level > 75:
		return Critical
	case level > 50:
		return High
	default:
		return Low
	}
}
