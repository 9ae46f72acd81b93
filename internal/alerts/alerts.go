package alerts

import (
	"stockwatch/internal/enrich"
)

// Tier is the alert classification an item receives.
type Tier int

const (
	TierNone Tier = iota
	TierKeywordMatch
	TierHighImpact
)

func (t Tier) String() string {
	switch t {
	case TierKeywordMatch:
		return "KEYWORD_MATCH"
	case TierHighImpact:
		return "HIGH_IMPACT"
	case TierNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// HighImpactThreshold is the impact score at or above which an item alerts
// even without a keyword match ("medium" impact or higher).
const HighImpactThreshold = 0.5

// Decision is the transient outcome of the tier selector. It is never
// persisted; it carries exactly what the notification formatter needs.
type Decision struct {
	Tier            Tier     // Chosen alert tier
	MatchedKeywords []string // Populated for TierKeywordMatch
	Category        string   // AI category label
	Sentiment       string   // Raw sentiment label
	ImpactLevel     string   // Raw impact label
	ImpactScore     float64  // Mapped impact score
	AnalysisSummary string   // Analyst take from the enrichment
}

// Decide picks the alert tier in strict priority order: a keyword match wins
// outright; impact is only consulted when no keyword matched.
func Decide(matched []string, result enrich.Result) Decision {
	decision := Decision{
		Category:        result.Category,
		Sentiment:       result.Sentiment,
		ImpactLevel:     result.ImpactLevel,
		ImpactScore:     result.ImpactScore,
		AnalysisSummary: result.AnalysisText,
	}
	if decision.AnalysisSummary == "" {
		decision.AnalysisSummary = result.Summary
	}

	if len(matched) > 0 {
		decision.Tier = TierKeywordMatch
		decision.MatchedKeywords = matched
		return decision
	}

	if result.ImpactScore >= HighImpactThreshold {
		decision.Tier = TierHighImpact
		return decision
	}

	decision.Tier = TierNone
	return decision
}
