package api

import (
	"log/slog"
	"testing"
	"time"

	"lobengine/internal/analytics"
	"lobengine/internal/book"
	"lobengine/internal/perfmon"
	"lobengine/pkg/types"
)

type fakeProvider struct {
	symbol    string
	book      *book.Book
	analytics *analytics.Tracker
	monitors  []*perfmon.Monitor
}

func (f *fakeProvider) Symbol() string               { return f.symbol }
func (f *fakeProvider) Book() *book.Book             { return f.book }
func (f *fakeProvider) Analytics() *analytics.Tracker { return f.analytics }
func (f *fakeProvider) Monitors() []*perfmon.Monitor { return f.monitors }

func TestBuildSnapshotReflectsBookAndAnalyticsState(t *testing.T) {
	b := book.New("BTCUSD")
	b.AddOrder(&types.Order{
		OrderID: 1, AccountID: 1, Side: types.Buy, Type: types.Limit,
		LimitPrice: 100, OriginalQty: 10, RemainingQty: 10, DisplayQty: 10,
		ArrivalTime: time.Now(), State: types.Active,
	})
	b.AddOrder(&types.Order{
		OrderID: 2, AccountID: 2, Side: types.Sell, Type: types.Limit,
		LimitPrice: 100, OriginalQty: 5, RemainingQty: 5, DisplayQty: 5,
		ArrivalTime: time.Now(), State: types.Active,
	})

	logger := slog.Default()
	tracker := analytics.New(analytics.DefaultConfig(), logger, time.Now)
	for _, f := range b.Fills() {
		tracker.OnFill(f)
	}

	mon := perfmon.New("matching-core")
	mon.RecordEventLatency(500)

	p := &fakeProvider{symbol: "BTCUSD", book: b, analytics: tracker, monitors: []*perfmon.Monitor{mon}}
	snap := BuildSnapshot(p)

	if snap.Symbol != "BTCUSD" {
		t.Errorf("Symbol = %q, want BTCUSD", snap.Symbol)
	}
	if snap.FillCount != len(b.Fills()) {
		t.Errorf("FillCount = %d, want %d", snap.FillCount, len(b.Fills()))
	}
	if snap.Book.ActiveOrders != b.ActiveOrderCount() {
		t.Errorf("ActiveOrders = %d, want %d", snap.Book.ActiveOrders, b.ActiveOrderCount())
	}
	if len(snap.Latencies) != 1 || snap.Latencies[0].Name != "matching-core" {
		t.Fatalf("Latencies = %+v, want one entry named matching-core", snap.Latencies)
	}
	if snap.Latencies[0].EventsProcessed != 1 {
		t.Errorf("EventsProcessed = %d, want 1", snap.Latencies[0].EventsProcessed)
	}
}

func TestBuildSnapshotCapsRecentFillsWindow(t *testing.T) {
	b := book.New("BTCUSD")
	for i := 0; i < recentFillWindow+5; i++ {
		buyID := int64(i*2 + 1)
		sellID := int64(i*2 + 2)
		b.AddOrder(&types.Order{
			OrderID: sellID, AccountID: 2, Side: types.Sell, Type: types.Limit,
			LimitPrice: 100, OriginalQty: 1, RemainingQty: 1, DisplayQty: 1,
			ArrivalTime: time.Now(), State: types.Active,
		})
		b.AddOrder(&types.Order{
			OrderID: buyID, AccountID: 1, Side: types.Buy, Type: types.Market,
			LimitPrice: types.SentinelPrice(types.Buy),
			OriginalQty: 1, RemainingQty: 1, DisplayQty: 1,
			ArrivalTime: time.Now(), State: types.Active,
		})
	}

	p := &fakeProvider{symbol: "BTCUSD", book: b, analytics: nil}
	snap := BuildSnapshot(p)

	if len(snap.RecentFills) != recentFillWindow {
		t.Fatalf("RecentFills = %d, want %d", len(snap.RecentFills), recentFillWindow)
	}
}
