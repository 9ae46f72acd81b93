// Package enrich adapts the external AI analysis service into the pipeline's
// enrichment step. The two underlying calls (summarize, analyze) fail
// independently; the Result records which of them failed so the dispatch
// cascade can branch on data instead of panics.
package enrich

import (
	"context"
	"encoding/json"
	"strings"
)

// Analysis is the structured output of the AI analysis call.
type Analysis struct {
	Category        string   `json:"category"`         // Free-text category label
	Sentiment       string   `json:"sentiment"`        // "positive", "neutral", or "negative"
	ImpactLevel     string   `json:"impact_level"`     // "high", "medium", or "low"
	KeyEntities     []string `json:"key_entities"`     // Extracted entities/keywords
	AnalysisSummary string   `json:"analysis_summary"` // One-paragraph analyst take
}

// Analyzer is the contract of the external AI service. Both calls may fail
// independently and must honor their context deadline.
type Analyzer interface {
	Summarize(ctx context.Context, title, body string) (string, error)
	Analyze(ctx context.Context, title, body string) (*Analysis, error)
}

// Result carries the best available enrichment data plus the failure state of
// each sub-call.
type Result struct {
	Summary        string   // AI summary; empty if the summarize call failed
	Category       string   // Category label; empty if analyze failed
	Sentiment      string   // Raw sentiment label from the analysis
	ImpactLevel    string   // Raw impact label from the analysis
	SentimentScore float64  // Mapped score, -1.0 to 1.0
	ImpactScore    float64  // Mapped score, 0.0 to 1.0
	Keywords       []string // Extracted key entities
	AnalysisText   string   // One-paragraph analyst take from the analysis
	RawAnalysis    string   // Full analysis payload as JSON, for audit

	SummarizeErr error // Failure of the summarize call, if any
	AnalyzeErr   error // Failure of the analyze call, if any
}

// TotalFailure reports whether both AI calls failed and no analytical fields
// were populated at all.
func (r Result) TotalFailure() bool {
	return r.SummarizeErr != nil && r.AnalyzeErr != nil
}

// Sentiment and impact labels map onto fixed numeric scores. An unknown or
// missing label falls back to the zero-ish default of its table.
var (
	sentimentScores = map[string]float64{
		"positive": 1.0,
		"neutral":  0.0,
		"negative": -1.0,
	}
	impactScores = map[string]float64{
		"high":   1.0,
		"medium": 0.5,
		"low":    0.1,
	}
)

// SentimentScore maps a sentiment label to its numeric score. Unknown or
// missing labels score 0.0.
func SentimentScore(label string) float64 {
	return sentimentScores[normalizeLabel(label)]
}

// ImpactScore maps an impact label to its numeric score. Unknown or missing
// labels score 0.1 — the "analysis ran but said nothing" floor, distinct from
// the 0.0 used when no analysis happened at all.
func ImpactScore(label string) float64 {
	if score, ok := impactScores[normalizeLabel(label)]; ok {
		return score
	}
	return 0.1
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Enrich runs both AI calls and folds their outputs into a Result. A failure
// in one call never aborts the other. When analyze fails entirely the impact
// score stays 0.0 so downstream decisioning can tell "no analysis" apart from
// "analysis returned low impact".
func Enrich(ctx context.Context, a Analyzer, title, summary string) Result {
	var result Result

	aiSummary, err := a.Summarize(ctx, title, summary)
	if err != nil {
		result.SummarizeErr = err
	} else {
		result.Summary = aiSummary
	}

	analysis, err := a.Analyze(ctx, title, summary)
	if err != nil {
		result.AnalyzeErr = err
		return result
	}

	result.Category = analysis.Category
	result.Sentiment = analysis.Sentiment
	result.ImpactLevel = analysis.ImpactLevel
	result.SentimentScore = SentimentScore(analysis.Sentiment)
	result.ImpactScore = ImpactScore(analysis.ImpactLevel)
	result.Keywords = analysis.KeyEntities
	result.AnalysisText = analysis.AnalysisSummary

	if raw, err := json.Marshal(analysis); err == nil {
		result.RawAnalysis = string(raw)
	}

	return result
}
