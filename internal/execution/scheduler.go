// Package execution implements the execution-scheduling framework and its
// three concrete schedules: time-sliced, volume-weighted, and risk-aware
// optimal. Every schedule shares the same Base bookkeeping
// (arrival price, executed quantity, fill history, monotonic child-order
// ids) and differs only in how it slices the remaining quantity over time.
package execution

import (
	"time"

	"lobengine/pkg/types"
)

// Snapshot is the market-data tick a scheduler reacts to.
type Snapshot struct {
	Time           time.Time
	Symbol         string
	Price          float64
	Bid            float64
	Ask            float64
	IntervalVolume float64 // volume traded since the last snapshot, for real-time-volume blending
}

// ChildOrder is one order a scheduler emits toward its parent quantity.
type ChildOrder struct {
	OrderID  int64
	Side     types.Side
	Type     types.OrderType
	Price    float64
	Quantity float64
	Time     time.Time
}

// Report summarizes a completed or in-flight execution
// generate_report.
type Report struct {
	VWAP                       float64
	ImplementationShortfallBps float64
	FillRate                   float64
	OrdersGenerated            int64
	FillCount                  int
	ExecutionTime              time.Duration
}

// Scheduler is the polymorphic execution algorithm interface 
type Scheduler interface {
	OnMarketData(snapshot Snapshot) []ChildOrder
	OnFill(fill types.EnhancedFill)
	IsComplete() bool
	GenerateReport() Report
	Reset()
	Name() string
}

// Base holds the state every scheduler variant shares: target quantity,
// side, execution progress, fill history, and the monotonic child-order id
// counter. Concrete schedules embed Base and implement their own
// OnMarketData, delegating bookkeeping to Base's helpers.
type Base struct {
	TargetQuantity   float64
	IsBuy            bool
	ExecutedQuantity float64
	ArrivalPrice     float64
	Started          bool
	StartTime        time.Time

	fills           []types.EnhancedFill
	ordersGenerated int64
}

// BeginIfNeeded records arrival price and start time on the first snapshot
// a scheduler sees; a no-op on subsequent calls.
func (b *Base) BeginIfNeeded(snapshot Snapshot) {
	if b.Started {
		return
	}
	b.Started = true
	b.ArrivalPrice = snapshot.Price
	b.StartTime = snapshot.Time
}

// IsComplete reports whether the target quantity has been executed.
func (b *Base) IsComplete() bool {
	return b.ExecutedQuantity >= b.TargetQuantity
}

// RemainingQuantity returns TargetQuantity - ExecutedQuantity, floored at 0.
func (b *Base) RemainingQuantity() float64 {
	r := b.TargetQuantity - b.ExecutedQuantity
	if r < 0 {
		return 0
	}
	return r
}

// OnFill records a fill against the parent order's progress.
func (b *Base) OnFill(fill types.EnhancedFill) {
	b.ExecutedQuantity += fill.Quantity
	b.fills = append(b.fills, fill)
}

// Reset clears all progress, ready for a fresh execution of the same target.
func (b *Base) Reset() {
	b.ExecutedQuantity = 0
	b.ArrivalPrice = 0
	b.Started = false
	b.StartTime = time.Time{}
	b.fills = nil
	b.ordersGenerated = 0
}

// NextChildOrder stamps a new child order with the next monotonic id.
func (b *Base) NextChildOrder(side types.Side, typ types.OrderType, price, qty float64, t time.Time) ChildOrder {
	b.ordersGenerated++
	return ChildOrder{OrderID: b.ordersGenerated, Side: side, Type: typ, Price: price, Quantity: qty, Time: t}
}

// Side returns types.Buy or types.Sell from IsBuy.
func (b *Base) Side() types.Side {
	if b.IsBuy {
		return types.Buy
	}
	return types.Sell
}

// LimitPrice computes the offset-adjusted limit price from the snapshot's
// touch: ask + price*offset/10000 for buys, bid -
// price*offset/10000 for sells.
func (b *Base) LimitPrice(snapshot Snapshot, offsetBps float64) float64 {
	adj := snapshot.Price * offsetBps / 10000
	if b.IsBuy {
		return snapshot.Ask + adj
	}
	return snapshot.Bid - adj
}

// GenerateReport computes VWAP, implementation shortfall, fill rate, and
// timing from the accumulated fills
func (b *Base) GenerateReport() Report {
	var notional, qty float64
	var first, last time.Time
	for i, f := range b.fills {
		notional += f.Price * f.Quantity
		qty += f.Quantity
		if i == 0 || f.MatchTime.Before(first) {
			first = f.MatchTime
		}
		if f.MatchTime.After(last) {
			last = f.MatchTime
		}
	}

	var vwap float64
	if qty > 0 {
		vwap = notional / qty
	}

	var shortfallBps float64
	if b.ArrivalPrice != 0 && vwap != 0 {
		shortfallBps = (vwap - b.ArrivalPrice) / b.ArrivalPrice * 10000
		if !b.IsBuy {
			shortfallBps = -shortfallBps
		}
	}

	var fillRate float64
	if b.TargetQuantity > 0 {
		fillRate = b.ExecutedQuantity / b.TargetQuantity
	}

	var execTime time.Duration
	if len(b.fills) > 0 {
		execTime = last.Sub(first)
	}

	return Report{
		VWAP:                       vwap,
		ImplementationShortfallBps: shortfallBps,
		FillRate:                   fillRate,
		OrdersGenerated:            b.ordersGenerated,
		FillCount:                  len(b.fills),
		ExecutionTime:              execTime,
	}
}
