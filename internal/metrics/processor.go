package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"stockwatch/internal/core"
)

// Update is one freshly fetched set of metrics for a symbol, not yet compared
// or persisted.
type Update struct {
	Symbol  string            `json:"symbol"`  // Ticker symbol
	Metrics map[string]string `json:"metrics"` // Named numeric-as-text metrics
}

// SnapshotStore is the slice of the store the processor needs.
type SnapshotStore interface {
	LatestSnapshot(symbol string) (*core.MetricSnapshot, error)
	UpsertSnapshot(symbol string, metrics map[string]string) (*core.MetricSnapshot, error)
}

// AlertSender delivers a metric-change alert for one symbol.
type AlertSender interface {
	SendMetricAlert(ctx context.Context, symbol string, changes []Change) error
}

// Processor runs the snapshot cycle per symbol: compare against the stored
// snapshot, persist the new one, and alert when anything crossed a threshold.
type Processor struct {
	store  SnapshotStore
	sender AlertSender
	log    *slog.Logger
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(store SnapshotStore, sender AlertSender, log *slog.Logger) *Processor {
	return &Processor{store: store, sender: sender, log: log}
}

// Process handles a batch of updates. The new snapshot is always persisted,
// whether or not anything changed; notification failures are logged and do
// not fail the cycle.
func (p *Processor) Process(ctx context.Context, updates []Update) error {
	for _, update := range updates {
		if update.Symbol == "" {
			continue
		}
		if err := p.processOne(ctx, update); err != nil {
			return fmt.Errorf("failed to process metrics for %s: %w", update.Symbol, err)
		}
	}
	return nil
}

func (p *Processor) processOne(ctx context.Context, update Update) error {
	old, err := p.store.LatestSnapshot(update.Symbol)
	if err != nil {
		return err
	}

	var oldMetrics map[string]string
	if old != nil {
		oldMetrics = old.Metrics
	}

	changes := Detect(oldMetrics, update.Metrics)

	if _, err := p.store.UpsertSnapshot(update.Symbol, update.Metrics); err != nil {
		return err
	}

	if len(changes) == 0 {
		return nil
	}

	p.log.Info("significant metric changes detected", "symbol", update.Symbol, "changes", len(changes))
	if err := p.sender.SendMetricAlert(ctx, update.Symbol, changes); err != nil {
		p.log.Error("failed to send metric alert", "symbol", update.Symbol, "error", err.Error())
	}

	return nil
}
