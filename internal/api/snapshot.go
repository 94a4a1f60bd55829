package api

import (
	"time"

	"lobengine/internal/analytics"
	"lobengine/internal/book"
	"lobengine/internal/perfmon"
)

// recentFillWindow bounds how many of the most recent fills a snapshot
// carries — the full fill history can be queried from the router directly.
const recentFillWindow = 20

// Provider exposes the read-only query surface a monitoring snapshot is
// built from. A caller's top-level wiring implements this by handing out its *book.Book, *analytics.Tracker, and
// the *perfmon.Monitor instances it runs.
type Provider interface {
	Symbol() string
	Book() *book.Book
	Analytics() *analytics.Tracker
	Monitors() []*perfmon.Monitor
}

// BuildSnapshot assembles a Snapshot from a Provider's current state. It
// changes no order state, but the book's best-bid/best-ask queries discard
// stale heap entries as they go, so it calls into the Book the same way a
// writer does and is subject to the Book's single-writer rule.
func BuildSnapshot(p Provider) Snapshot {
	b := p.Book()

	var view PriceLevelView
	if bid, ok := b.GetBestBid(); ok {
		view.BestBid = bid
	}
	if ask, ok := b.GetBestAsk(); ok {
		view.BestAsk = ask
	}
	if spread, ok := b.GetSpread(); ok {
		view.Spread = spread
	}
	if last, ok := b.LastTradePrice(); ok {
		view.LastTradePrice = last
	}
	view.ActiveOrders = b.ActiveOrderCount()
	view.PendingStops = b.PendingStopCount()

	fills := b.Fills()
	recent := fills
	if len(recent) > recentFillWindow {
		recent = recent[len(recent)-recentFillWindow:]
	}
	recentViews := make([]FillView, 0, len(recent))
	for _, f := range recent {
		recentViews = append(recentViews, FillView{
			FillID:    f.FillID,
			Symbol:    f.Symbol,
			Price:     f.Price,
			Quantity:  f.Quantity,
			MatchTime: f.MatchTime,
		})
	}

	var av AnalyticsView
	if t := p.Analytics(); t != nil {
		count, volume, notional, _, _ := t.CurrentPeriod()
		av = AnalyticsView{
			CurrentImbalance:    t.CurrentImbalance(),
			TradeCountImbalance: t.TradeCountImbalance(),
			NotionalImbalance:   t.NotionalImbalance(),
			RollingVWAP:         t.RollingVWAP(p.Symbol()),
			BuyRatio:            t.BuyRatio(),
			PeriodTradeCount:    count,
			PeriodVolume:        volume,
			PeriodNotional:      notional,
		}
	}

	var latencies []LatencyView
	for _, m := range p.Monitors() {
		latencies = append(latencies, LatencyView{
			Name:            m.Name(),
			EventsProcessed: m.EventsProcessed(),
			MeanLatencyNs:   m.MeanLatencyNs(),
			P50Ns:           m.PercentileNs(0.50),
			P99Ns:           m.PercentileNs(0.99),
			MaxLatencyNs:    m.MaxLatencyNs(),
			ThroughputPerS:  m.Throughput(),
		})
	}

	return Snapshot{
		Symbol:      p.Symbol(),
		GeneratedAt: time.Now(),
		Book:        view,
		Analytics:   av,
		FillCount:   len(fills),
		RecentFills: recentViews,
		Latencies:   latencies,
	}
}
