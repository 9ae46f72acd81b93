package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"stockwatch/internal/core"
)

// fakeSnapshotStore keeps snapshots in memory, one per symbol.
type fakeSnapshotStore struct {
	snapshots map[string]*core.MetricSnapshot
	upserts   int
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snapshots: make(map[string]*core.MetricSnapshot)}
}

func (f *fakeSnapshotStore) LatestSnapshot(symbol string) (*core.MetricSnapshot, error) {
	return f.snapshots[symbol], nil
}

func (f *fakeSnapshotStore) UpsertSnapshot(symbol string, m map[string]string) (*core.MetricSnapshot, error) {
	f.upserts++
	snap := &core.MetricSnapshot{Symbol: symbol, Metrics: m}
	f.snapshots[symbol] = snap
	return snap, nil
}

type fakeSender struct {
	alerts map[string][]Change
}

func (f *fakeSender) SendMetricAlert(ctx context.Context, symbol string, changes []Change) error {
	if f.alerts == nil {
		f.alerts = make(map[string][]Change)
	}
	f.alerts[symbol] = changes
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcess_FirstSnapshotPersistsWithoutAlert(t *testing.T) {
	store := newFakeSnapshotStore()
	sender := &fakeSender{}
	p := NewProcessor(store, sender, discardLogger())

	err := p.Process(context.Background(), []Update{
		{Symbol: "VCB", Metrics: map[string]string{"price": "100"}},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.upserts != 1 {
		t.Errorf("snapshot should persist even without changes, upserts = %d", store.upserts)
	}
	if len(sender.alerts) != 0 {
		t.Errorf("no previous snapshot, no alert expected: %v", sender.alerts)
	}
}

func TestProcess_AlertsOnThresholdCross(t *testing.T) {
	store := newFakeSnapshotStore()
	sender := &fakeSender{}
	p := NewProcessor(store, sender, discardLogger())

	ctx := context.Background()
	updates := []Update{{Symbol: "VCB", Metrics: map[string]string{"price": "100"}}}
	if err := p.Process(ctx, updates); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}

	updates = []Update{{Symbol: "VCB", Metrics: map[string]string{"price": "106"}}}
	if err := p.Process(ctx, updates); err != nil {
		t.Fatalf("second Process failed: %v", err)
	}

	changes, ok := sender.alerts["VCB"]
	if !ok {
		t.Fatal("expected a metric alert for VCB")
	}
	if len(changes) != 1 || changes[0].Metric != "price" || !changes[0].Increased {
		t.Errorf("unexpected changes: %+v", changes)
	}
	if store.snapshots["VCB"].Metrics["price"] != "106" {
		t.Errorf("new snapshot should be stored, got %v", store.snapshots["VCB"].Metrics)
	}
}

func TestProcess_SkipsEmptySymbol(t *testing.T) {
	store := newFakeSnapshotStore()
	p := NewProcessor(store, &fakeSender{}, discardLogger())

	err := p.Process(context.Background(), []Update{{Symbol: "", Metrics: map[string]string{"price": "1"}}})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if store.upserts != 0 {
		t.Error("updates without a symbol should be skipped")
	}
}
