// Package pipeline orchestrates ingestion of a raw scraped item: fingerprint,
// dedup, persist, enrich, match, alert. Persisting the item is the only
// durable side effect; everything after admission is best-effort and degrades
// to keyword-only alerting when the AI service is down.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"stockwatch/internal/alerts"
	"stockwatch/internal/core"
	"stockwatch/internal/enrich"
	"stockwatch/internal/fingerprint"
	"stockwatch/internal/notify"
	"stockwatch/internal/watchlist"
)

// Store is the slice of the persistence layer the pipeline needs.
type Store interface {
	Admit(raw core.RawItem, fp string) (*core.Item, bool, error)
	CreateEnrichment(e core.Enrichment) (*core.Enrichment, error)
	ListWatchlist(userID string) ([]core.WatchlistItem, error)
}

// Notifier delivers one formatted alert message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Pipeline wires the ingestion stages together. All collaborators are
// injected so tests can run against fakes.
type Pipeline struct {
	store    Store
	analyzer enrich.Analyzer
	notifier Notifier
	userID   string
	log      *slog.Logger
}

// New creates a pipeline for one watchlist user.
func New(store Store, analyzer enrich.Analyzer, notifier Notifier, userID string, log *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		analyzer: analyzer,
		notifier: notifier,
		userID:   userID,
		log:      log,
	}
}

// Outcome reports what happened to one ingested item, mostly for logging and
// tests. It is never persisted.
type Outcome struct {
	Item      *core.Item  // The persisted (or pre-existing) item
	Duplicate bool        // True when the dedup gate matched an existing row
	Tier      alerts.Tier // Alert tier chosen; TierNone when nothing fired
	Fallback  bool        // True when alerting went through the keyword-only path
	Notified  bool        // True when a notification was actually delivered
}

// Ingest runs one raw item through the full pipeline. An error is returned
// only when the item could not be admitted to the store; enrichment and
// alerting failures are contained here and logged, never propagated.
func (p *Pipeline) Ingest(ctx context.Context, raw core.RawItem) (Outcome, error) {
	if raw.URL == "" || raw.Title == "" {
		return Outcome{}, fmt.Errorf("item is missing a URL or title")
	}

	fp := fingerprint.Compute(raw.Title, raw.Summary)

	item, existed, err := p.store.Admit(raw, fp)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to admit item: %w", err)
	}
	if existed {
		p.log.Debug("duplicate item skipped", "url", raw.URL, "existing_id", item.ID)
		return Outcome{Item: item, Duplicate: true, Tier: alerts.TierNone}, nil
	}

	p.log.Info("new item persisted", "id", item.ID, "title", item.Title)

	outcome := Outcome{Item: item, Tier: alerts.TierNone}
	p.dispatch(ctx, item, &outcome)

	return outcome, nil
}

// dispatch is the fallback cascade: enrich, persist the enrichment, decide,
// notify — and degrade to the keyword-only path when enrichment is a total
// loss or its persistence fails. Nothing escapes this method.
func (p *Pipeline) dispatch(ctx context.Context, item *core.Item, outcome *Outcome) {
	result := enrich.Enrich(ctx, p.analyzer, item.Title, item.Summary)

	if result.SummarizeErr != nil {
		p.log.Warn("summarize call failed", "item_id", item.ID, "error", result.SummarizeErr.Error())
	}
	if result.AnalyzeErr != nil {
		p.log.Warn("analyze call failed", "item_id", item.ID, "error", result.AnalyzeErr.Error())
	}

	if result.TotalFailure() {
		p.dispatchFallback(ctx, item, outcome)
		return
	}

	enrichment := core.Enrichment{
		ItemID:         item.ID,
		Summary:        result.Summary,
		Category:       result.Category,
		SentimentScore: result.SentimentScore,
		ImpactScore:    result.ImpactScore,
		Keywords:       result.Keywords,
		RawAnalysis:    result.RawAnalysis,
	}
	if _, err := p.store.CreateEnrichment(enrichment); err != nil {
		p.log.Error("failed to persist enrichment", "item_id", item.ID, "error", err.Error())
		p.dispatchFallback(ctx, item, outcome)
		return
	}

	matched := p.matchWatchlist(item)
	decision := alerts.Decide(matched, result)
	outcome.Tier = decision.Tier

	var message string
	switch decision.Tier {
	case alerts.TierKeywordMatch:
		p.log.Info("watchlist keywords matched", "item_id", item.ID, "keywords", decision.MatchedKeywords)
		message = notify.FormatKeywordAlert(item, decision)
	case alerts.TierHighImpact:
		p.log.Info("high impact item", "item_id", item.ID, "impact_score", decision.ImpactScore)
		message = notify.FormatImpactAlert(item, decision)
	default:
		return
	}

	if err := p.notifier.Send(ctx, message); err != nil {
		p.log.Error("failed to send notification", "item_id", item.ID, "tier", decision.Tier.String(), "error", err.Error())
		return
	}
	outcome.Notified = true
}

// dispatchFallback is the keyword-only path: no impact consideration, a
// minimal message shape, and silence when nothing matched.
func (p *Pipeline) dispatchFallback(ctx context.Context, item *core.Item, outcome *Outcome) {
	outcome.Fallback = true

	matched := p.matchWatchlist(item)
	if len(matched) == 0 {
		return
	}

	outcome.Tier = alerts.TierKeywordMatch
	p.log.Info("watchlist keywords matched (fallback)", "item_id", item.ID, "keywords", matched)

	message := notify.FormatFallbackAlert(item, matched)
	if err := p.notifier.Send(ctx, message); err != nil {
		p.log.Error("failed to send fallback notification", "item_id", item.ID, "error", err.Error())
		return
	}
	outcome.Notified = true
}

func (p *Pipeline) matchWatchlist(item *core.Item) []string {
	items, err := p.store.ListWatchlist(p.userID)
	if err != nil {
		p.log.Error("failed to load watchlist", "user_id", p.userID, "error", err.Error())
		return nil
	}
	return watchlist.Match(item.Title, item.Summary, items)
}
