package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"stockwatch/internal/alerts"
	"stockwatch/internal/core"
	"stockwatch/internal/enrich"
	"stockwatch/internal/store"
)

type fakeAnalyzer struct {
	summary      string
	summarizeErr error
	analysis     *enrich.Analysis
	analyzeErr   error
}

func (f *fakeAnalyzer) Summarize(ctx context.Context, title, body string) (string, error) {
	return f.summary, f.summarizeErr
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, title, body string) (*enrich.Analysis, error) {
	return f.analysis, f.analyzeErr
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func newTestPipeline(t *testing.T, analyzer enrich.Analyzer, notifier Notifier) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, analyzer, notifier, "ong_x", log), st
}

func healthyAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		summary: "AI summary of the article.",
		analysis: &enrich.Analysis{
			Category:        "Chính sách tiền tệ",
			Sentiment:       "positive",
			ImpactLevel:     "low",
			KeyEntities:     []string{"NHNN"},
			AnalysisSummary: "Mild easing signal.",
		},
	}
}

func TestIngest_KeywordMatchAlert(t *testing.T) {
	// Scenario: new item whose title contains a watched keyword.
	notifier := &fakeNotifier{}
	p, st := newTestPipeline(t, healthyAnalyzer(), notifier)

	if err := st.AddWatchlistItem("ong_x", core.WatchlistKeyword, "lãi suất"); err != nil {
		t.Fatalf("AddWatchlistItem failed: %v", err)
	}

	raw := core.RawItem{
		Title: "NHNN điều chỉnh lãi suất điều hành",
		URL:   "https://x/1",
	}

	outcome, err := p.Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if outcome.Duplicate {
		t.Error("first ingest should not be a duplicate")
	}
	if outcome.Tier != alerts.TierKeywordMatch {
		t.Errorf("Tier = %s, want KEYWORD_MATCH", outcome.Tier)
	}
	if !outcome.Notified {
		t.Error("a keyword match should notify")
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "lãi suất") {
		t.Errorf("unexpected messages: %v", notifier.messages)
	}

	// The enrichment was persisted alongside.
	e, err := st.GetEnrichment(outcome.Item.ID)
	if err != nil || e == nil {
		t.Fatalf("expected a persisted enrichment, got %v / %v", e, err)
	}
	if e.ImpactScore != 0.1 {
		t.Errorf("ImpactScore = %v, want 0.1 for a low-impact analysis", e.ImpactScore)
	}
}

func TestIngest_DuplicateURL(t *testing.T) {
	// Scenario: the same URL posted twice. The second call returns the first
	// item, with no second enrichment and no second notification.
	notifier := &fakeNotifier{}
	p, st := newTestPipeline(t, healthyAnalyzer(), notifier)

	if err := st.AddWatchlistItem("ong_x", core.WatchlistKeyword, "lãi suất"); err != nil {
		t.Fatalf("AddWatchlistItem failed: %v", err)
	}

	raw := core.RawItem{Title: "Tin lãi suất", URL: "https://x/1"}
	ctx := context.Background()

	first, err := p.Ingest(ctx, raw)
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	second, err := p.Ingest(ctx, raw)
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}

	if !second.Duplicate {
		t.Error("second ingest should be flagged duplicate")
	}
	if second.Item.ID != first.Item.ID {
		t.Errorf("expected first item ID %s, got %s", first.Item.ID, second.Item.ID)
	}
	if second.Notified || second.Tier != alerts.TierNone {
		t.Errorf("duplicate must not alert: %+v", second)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected exactly 1 notification, got %d", len(notifier.messages))
	}
}

func TestIngest_HighImpactAlert(t *testing.T) {
	analyzer := healthyAnalyzer()
	analyzer.analysis.ImpactLevel = "high"
	analyzer.analysis.Sentiment = "negative"
	notifier := &fakeNotifier{}
	p, _ := newTestPipeline(t, analyzer, notifier)

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "Thị trường biến động", URL: "https://x/2"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if outcome.Tier != alerts.TierHighImpact {
		t.Errorf("Tier = %s, want HIGH_IMPACT", outcome.Tier)
	}
	if len(notifier.messages) != 1 || !strings.HasPrefix(notifier.messages[0], "🔥") {
		t.Errorf("expected a high-impact alert, got %v", notifier.messages)
	}
}

func TestIngest_KeywordBeatsHighImpact(t *testing.T) {
	analyzer := healthyAnalyzer()
	analyzer.analysis.ImpactLevel = "high"
	notifier := &fakeNotifier{}
	p, st := newTestPipeline(t, analyzer, notifier)

	if err := st.AddWatchlistItem("ong_x", core.WatchlistKeyword, "VCB"); err != nil {
		t.Fatalf("AddWatchlistItem failed: %v", err)
	}

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "VCB báo lãi kỷ lục", URL: "https://x/3"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if outcome.Tier != alerts.TierKeywordMatch {
		t.Errorf("Tier = %s; keyword match must win over high impact", outcome.Tier)
	}
}

func TestIngest_PartialEnrichmentKeepsSummary(t *testing.T) {
	// Scenario: analyze() fails, summarize() succeeds. The enrichment keeps
	// the summary with empty analytical fields, and decisioning sees impact
	// 0.0 — keywords only.
	analyzer := &fakeAnalyzer{
		summary:    "Still got a summary.",
		analyzeErr: errors.New("model overloaded"),
	}
	notifier := &fakeNotifier{}
	p, st := newTestPipeline(t, analyzer, notifier)

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "Tin thường", URL: "https://x/4"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	e, err := st.GetEnrichment(outcome.Item.ID)
	if err != nil || e == nil {
		t.Fatalf("expected a persisted enrichment, got %v / %v", e, err)
	}
	if e.Summary != "Still got a summary." {
		t.Errorf("Summary = %q", e.Summary)
	}
	if e.Category != "" || e.ImpactScore != 0.0 {
		t.Errorf("analytical fields should be unset: %+v", e)
	}
	if outcome.Tier != alerts.TierNone || outcome.Notified {
		t.Errorf("no keywords and no analysis should stay silent: %+v", outcome)
	}
}

func TestIngest_TotalFailureFallsBack(t *testing.T) {
	// Both AI calls fail: the keyword-only fallback still alerts on a match.
	analyzer := &fakeAnalyzer{
		summarizeErr: errors.New("down"),
		analyzeErr:   errors.New("down"),
	}
	notifier := &fakeNotifier{}
	p, st := newTestPipeline(t, analyzer, notifier)

	if err := st.AddWatchlistItem("ong_x", core.WatchlistKeyword, "trái phiếu"); err != nil {
		t.Fatalf("AddWatchlistItem failed: %v", err)
	}

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "Thị trường trái phiếu ấm lại", URL: "https://x/5"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if !outcome.Fallback {
		t.Error("expected the fallback path")
	}
	if outcome.Tier != alerts.TierKeywordMatch || !outcome.Notified {
		t.Errorf("fallback should alert on the matched keyword: %+v", outcome)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "TIN MỚI TỪ WATCHLIST") {
		t.Errorf("expected the minimal fallback shape, got %v", notifier.messages)
	}

	// No enrichment row was created.
	if e, _ := st.GetEnrichment(outcome.Item.ID); e != nil {
		t.Errorf("total AI failure must not create an enrichment: %+v", e)
	}
}

func TestIngest_TotalFailureNoMatchStaysSilent(t *testing.T) {
	analyzer := &fakeAnalyzer{
		summarizeErr: errors.New("down"),
		analyzeErr:   errors.New("down"),
	}
	notifier := &fakeNotifier{}
	p, _ := newTestPipeline(t, analyzer, notifier)

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "Tin không liên quan", URL: "https://x/6"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if outcome.Notified || len(notifier.messages) != 0 {
		t.Errorf("fallback with no match must stay silent: %+v", outcome)
	}
	// The item itself is still durably persisted.
	if outcome.Item == nil || outcome.Item.ID == "" {
		t.Error("item should be persisted regardless of alerting")
	}
}

func TestIngest_NotificationFailureIsContained(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	p, st := newTestPipeline(t, healthyAnalyzer(), notifier)

	if err := st.AddWatchlistItem("ong_x", core.WatchlistKeyword, "lãi suất"); err != nil {
		t.Fatalf("AddWatchlistItem failed: %v", err)
	}

	outcome, err := p.Ingest(context.Background(), core.RawItem{Title: "Tin lãi suất", URL: "https://x/7"})
	if err != nil {
		t.Fatalf("Ingest must not fail on a notification error: %v", err)
	}
	if outcome.Notified {
		t.Error("Notified should be false when the send failed")
	}
}

func TestIngest_RejectsIncompleteItems(t *testing.T) {
	p, _ := newTestPipeline(t, healthyAnalyzer(), &fakeNotifier{})

	if _, err := p.Ingest(context.Background(), core.RawItem{URL: "https://x/8"}); err == nil {
		t.Error("an item without a title should be rejected")
	}
	if _, err := p.Ingest(context.Background(), core.RawItem{Title: "no url"}); err == nil {
		t.Error("an item without a URL should be rejected")
	}
}
