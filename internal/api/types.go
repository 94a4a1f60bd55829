package api

import "time"

// PriceLevelView is a read-only, flattened view of a book's top-of-book
// state and order-count bookkeeping, safe for JSON transport.
type PriceLevelView struct {
	BestBid        float64 `json:"best_bid,omitempty"`
	BestAsk        float64 `json:"best_ask,omitempty"`
	Spread         float64 `json:"spread,omitempty"`
	LastTradePrice float64 `json:"last_trade_price,omitempty"`
	ActiveOrders   int     `json:"active_orders"`
	PendingStops   int     `json:"pending_stops"`
}

// AnalyticsView summarizes the current state of internal/analytics' Tracker.
type AnalyticsView struct {
	CurrentImbalance    float64 `json:"current_imbalance"`
	TradeCountImbalance float64 `json:"trade_count_imbalance"`
	NotionalImbalance   float64 `json:"notional_imbalance"`
	RollingVWAP         float64 `json:"rolling_vwap"`
	BuyRatio            float64 `json:"buy_ratio"`
	PeriodTradeCount    int64   `json:"period_trade_count"`
	PeriodVolume        float64 `json:"period_volume"`
	PeriodNotional      float64 `json:"period_notional"`
}

// LatencyView summarizes one perfmon.Monitor's measured latencies.
type LatencyView struct {
	Name            string  `json:"name"`
	EventsProcessed uint64  `json:"events_processed"`
	MeanLatencyNs   float64 `json:"mean_latency_ns"`
	P50Ns           uint64  `json:"p50_ns"`
	P99Ns           uint64  `json:"p99_ns"`
	MaxLatencyNs    uint64  `json:"max_latency_ns"`
	ThroughputPerS  float64 `json:"throughput_per_s"`
}

// FillView is a trimmed, JSON-friendly projection of types.EnhancedFill.
type FillView struct {
	FillID    int64     `json:"fill_id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	MatchTime time.Time `json:"match_time"`
}

// Snapshot is the top-level payload served from /api/snapshot. It is not
// sent over the WebSocket feed.
type Snapshot struct {
	Symbol      string         `json:"symbol"`
	GeneratedAt time.Time      `json:"generated_at"`
	Book        PriceLevelView `json:"book"`
	Analytics   AnalyticsView  `json:"analytics"`
	FillCount   int            `json:"fill_count"`
	RecentFills []FillView     `json:"recent_fills"`
	Latencies   []LatencyView  `json:"latencies"`
}
