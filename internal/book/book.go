// Package book implements the single-symbol limit order book: the
// authoritative order map, bid/ask priority structures, stop
// order handling, matching, and TIF finalization. It is the heart of
// lobengine — every other package either feeds it or consumes what it
// produces.
//
// The priority structures are container/heap max/min-heaps over lightweight
// bookEntry values, following the lazy-deletion pattern used across the
// pack's own order-book implementations: a heap entry is never mutated or
// erased in place, it is popped and checked against the authoritative
// Book.activeOrders map, and discarded if stale (cancelled, filled, an
// in-progress iceberg refresh, or superseded by an amendment).
package book

import (
	"container/heap"
	"math"
	"time"

	"lobengine/internal/router"
	"lobengine/pkg/types"
)

// Book is a single-symbol limit order book. Not safe for concurrent use —
// all mutation happens on one matching thread.
type Book struct {
	Symbol string

	activeOrders map[int64]*types.Order
	bids         bidHeap
	asks         askHeap

	stopBuys  map[int64]*types.Order
	stopSells map[int64]*types.Order

	router *router.Router

	lastTradePrice float64
	hasTraded      bool

	loggingEnabled bool
	events         []Event

	totalOrders int64

	// restoredFills holds the raw trade history from the last restored
	// snapshot. The snapshot's FILL rows carry only (buy_id, sell_id,
	// price, qty, ts) — not account or fee data — so they are kept
	// separately rather than forced back through the router, which would
	// have to fabricate account and liquidity fields it was never given.
	restoredFills []types.Fill
}

// New creates an empty book for symbol, wired to a fresh fill router with
// self-trade prevention on and a zero fee schedule by default.
func New(symbol string) *Book {
	return &Book{
		Symbol:       symbol,
		activeOrders: make(map[int64]*types.Order),
		stopBuys:     make(map[int64]*types.Order),
		stopSells:    make(map[int64]*types.Order),
		router:       router.New(),
	}
}

// Router returns the book's fill router, for configuring fee schedules,
// self-trade prevention, and registering callbacks.
func (b *Book) Router() *router.Router { return b.router }

// EnableLogging turns on event journaling for subsequent operations.
func (b *Book) EnableLogging()  { b.loggingEnabled = true }
func (b *Book) DisableLogging() { b.loggingEnabled = false }
func (b *Book) IsLogging() bool { return b.loggingEnabled }

// Events returns the recorded event log.
func (b *Book) Events() []Event { return b.events }

// ClearEvents discards the recorded event log.
func (b *Book) ClearEvents() { b.events = nil }

// GetOrder returns a copy of the order's current authoritative state.
func (b *Book) GetOrder(orderID int64) (types.Order, bool) {
	o, ok := b.activeOrders[orderID]
	if !ok {
		return types.Order{}, false
	}
	return o.Clone(), true
}

// AddOrder inserts a new order into the book. Stop orders that have not
// yet triggered are evaluated against the current reference price and
// either triggered immediately or parked in the stop book.
func (b *Book) AddOrder(o *types.Order) {
	if o.ArrivalTime.IsZero() {
		o.ArrivalTime = time.Now()
	}
	b.totalOrders++

	if o.IsStop && !o.StopTriggered {
		b.logEvent(newEvent(EventNew, o))
		if ref, ok := b.referencePrice(o.Side); ok && b.stopShouldTrigger(o, ref) {
			b.triggerStop(o)
			return
		}
		b.parkStop(o)
		return
	}

	o.State = types.Active
	b.activeOrders[o.OrderID] = o
	b.logEvent(newEvent(EventNew, o))
	b.insertAndMatch(o)
}

// insertAndMatch runs the FOK pre-check (if applicable), matches the order
// against the opposite book, and applies TIF finalization.
func (b *Book) insertAndMatch(o *types.Order) {
	if o.TIF == types.FOK {
		if b.fokReachableQty(o.Side, o.LimitPrice) < o.RemainingQty {
			o.State = types.Cancelled
			o.RemainingQty = 0
			return
		}
	}

	filledAny, rejected := b.match(o)
	if rejected {
		return
	}
	b.finalizeAfterMatching(o, filledAny)
}

// match executes the aggressor against the opposite side's priority
// structure. Returns whether any quantity filled
// and whether the aggressor was cancelled by self-trade prevention.
func (b *Book) match(aggressor *types.Order) (filledAny, rejected bool) {
	isBuy := aggressor.Side == types.Buy

	for aggressor.RemainingQty > 0 {
		var entry bookEntry
		var ok bool
		if isBuy {
			if b.asks.Len() == 0 {
				break
			}
			entry = heap.Pop(&b.asks).(bookEntry)
		} else {
			if b.bids.Len() == 0 {
				break
			}
			entry = heap.Pop(&b.bids).(bookEntry)
		}

		passive, exists := b.activeOrders[entry.OrderID]
		if !exists || b.isStaleEntry(entry, passive) {
			continue
		}

		if isBuy {
			ok = aggressor.LimitPrice >= passive.LimitPrice
		} else {
			ok = aggressor.LimitPrice <= passive.LimitPrice
		}
		if !ok {
			b.rePush(entry, passive.Side)
			break
		}

		qty := math.Min(aggressor.RemainingQty, passive.DisplayQty)
		tradePrice := passive.LimitPrice

		var buyOrderID, sellOrderID, buyAcct, sellAcct int64
		if isBuy {
			buyOrderID, sellOrderID = aggressor.OrderID, passive.OrderID
			buyAcct, sellAcct = aggressor.AccountID, passive.AccountID
		} else {
			buyOrderID, sellOrderID = passive.OrderID, aggressor.OrderID
			buyAcct, sellAcct = passive.AccountID, aggressor.AccountID
		}

		now := time.Now()
		_, accepted := b.router.Route(b.Symbol, buyOrderID, sellOrderID, buyAcct, sellAcct, tradePrice, qty, aggressor.Side, now, now)
		if !accepted {
			aggressor.State = types.Cancelled
			aggressor.RemainingQty = 0
			b.rePush(entry, passive.Side)
			return filledAny, true
		}

		aggressor.RemainingQty -= qty
		passive.RemainingQty -= qty
		passive.DisplayQty -= qty
		filledAny = true

		if passive.RemainingQty <= 0 {
			passive.State = types.Filled
		} else {
			passive.State = types.PartiallyFilled
		}

		b.lastTradePrice = tradePrice
		b.hasTraded = true
		b.logEvent(newFillEvent(aggressor.OrderID, passive.OrderID, tradePrice, qty))
		b.checkStopTriggers(tradePrice)

		switch {
		case passive.IsIceberg() && passive.DisplayQty == 0 && passive.HiddenQty > 0:
			b.refreshIceberg(passive)
			b.rePush(bookEntry{passive.OrderID, passive.LimitPrice, passive.ArrivalTime}, passive.Side)
		case passive.RemainingQty > 0 && passive.DisplayQty > 0:
			b.rePush(bookEntry{passive.OrderID, passive.LimitPrice, passive.ArrivalTime}, passive.Side)
		}
	}

	return filledAny, false
}

func (b *Book) isStaleEntry(entry bookEntry, o *types.Order) bool {
	if o.State.IsTerminal() {
		return true
	}
	if o.DisplayQty == 0 && o.RemainingQty > 0 {
		return true
	}
	if entry.Price != o.LimitPrice || !entry.ArrivalTime.Equal(o.ArrivalTime) {
		return true
	}
	return false
}

func (b *Book) rePush(entry bookEntry, side types.Side) {
	if side == types.Buy {
		heap.Push(&b.bids, entry)
	} else {
		heap.Push(&b.asks, entry)
	}
}

// refreshIceberg reveals the next peak of an exhausted iceberg order in one
// atomic step — display_qty, hidden_qty, and arrival_time all move
// together, and the caller re-pushes immediately after. Never split across
// two public operations, per the Open Question resolution in DESIGN.md.
func (b *Book) refreshIceberg(o *types.Order) {
	reveal := math.Min(o.PeakSize, o.HiddenQty)
	o.DisplayQty = reveal
	o.HiddenQty -= reveal
	o.ArrivalTime = time.Now()
}

// finalizeAfterMatching applies TIF rules once matching has run its course.
func (b *Book) finalizeAfterMatching(o *types.Order, filledAny bool) {
	if o.Type == types.Market {
		if o.RemainingQty > 0 {
			o.State = types.Cancelled
			o.RemainingQty = 0
		} else {
			o.State = types.Filled
		}
		return
	}

	switch o.TIF {
	case types.IOC:
		if o.RemainingQty > 0 {
			o.State = types.Cancelled
		} else {
			o.State = types.Filled
		}
	case types.FOK:
		if o.RemainingQty > 0 {
			o.State = types.Cancelled
			o.RemainingQty = 0
		} else {
			o.State = types.Filled
		}
	default: // GTC, DAY
		if o.RemainingQty > 0 {
			if filledAny {
				o.State = types.PartiallyFilled
			} else {
				o.State = types.Active
			}
			b.rePush(bookEntry{o.OrderID, o.LimitPrice, o.ArrivalTime}, o.Side)
		} else {
			o.State = types.Filled
		}
	}
}

// fokReachableQty sums the remaining quantity (display plus hidden) of
// every live order on the opposite side that the aggressor's limit price
// can reach, deduplicating orders that may still have a stale heap entry
// pending cleanup.
func (b *Book) fokReachableQty(side types.Side, limitPrice float64) float64 {
	var total float64
	seen := make(map[int64]bool)

	consider := func(orderID int64) {
		if seen[orderID] {
			return
		}
		seen[orderID] = true
		o, ok := b.activeOrders[orderID]
		if !ok || o.State.IsTerminal() {
			return
		}
		var crosses bool
		if side == types.Buy {
			crosses = o.LimitPrice <= limitPrice
		} else {
			crosses = o.LimitPrice >= limitPrice
		}
		if crosses {
			total += o.RemainingQty
		}
	}

	if side == types.Buy {
		for _, e := range b.asks {
			consider(e.OrderID)
		}
	} else {
		for _, e := range b.bids {
			consider(e.OrderID)
		}
	}
	return total
}

// CancelOrder marks an active order cancelled. The priority structure is
// not eagerly modified; the stale entry is skipped the next time it
// surfaces during matching or top-of-book queries.
func (b *Book) CancelOrder(orderID int64) bool {
	o, ok := b.activeOrders[orderID]
	if !ok || o.State.IsTerminal() {
		return false
	}
	o.State = types.Cancelled
	o.RemainingQty = 0
	b.logEvent(newEvent(EventCancel, o))
	return true
}

// AmendOrder changes an active order's price and/or quantity. Either may be
// nil to leave it unchanged. Amending downgrades time priority: a fresh
// bookEntry is pushed with the refreshed arrival_time, and the order's
// previous heap entries become stale by price/arrival_time mismatch.
func (b *Book) AmendOrder(orderID int64, newPrice, newQty *float64) bool {
	o, ok := b.activeOrders[orderID]
	if !ok || o.State.IsTerminal() {
		return false
	}

	if newPrice != nil {
		o.LimitPrice = *newPrice
	}
	if newQty != nil {
		o.RemainingQty = *newQty
		if o.DisplayQty > o.RemainingQty {
			o.DisplayQty = o.RemainingQty
		}
	}
	o.ArrivalTime = time.Now()

	b.logEvent(newAmendEvent(o, newPrice, newQty))
	b.rePush(bookEntry{o.OrderID, o.LimitPrice, o.ArrivalTime}, o.Side)
	return true
}

// GetBestBid returns the highest live bid price, discarding stale heap
// entries it encounters along the way.
func (b *Book) GetBestBid() (float64, bool) {
	for b.bids.Len() > 0 {
		top := b.bids[0]
		o, ok := b.activeOrders[top.OrderID]
		if !ok || b.isStaleEntry(top, o) {
			heap.Pop(&b.bids)
			continue
		}
		return o.LimitPrice, true
	}
	return 0, false
}

// GetBestAsk returns the lowest live ask price, discarding stale heap
// entries it encounters along the way.
func (b *Book) GetBestAsk() (float64, bool) {
	for b.asks.Len() > 0 {
		top := b.asks[0]
		o, ok := b.activeOrders[top.OrderID]
		if !ok || b.isStaleEntry(top, o) {
			heap.Pop(&b.asks)
			continue
		}
		return o.LimitPrice, true
	}
	return 0, false
}

// GetSpread returns ask - bid, or false if either side is empty.
func (b *Book) GetSpread() (float64, bool) {
	bid, okBid := b.GetBestBid()
	ask, okAsk := b.GetBestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}

// LastTradePrice returns the most recent trade price and whether any trade
// has occurred yet.
func (b *Book) LastTradePrice() (float64, bool) { return b.lastTradePrice, b.hasTraded }

// ActiveOrderCount returns the number of orders tracked in the
// authoritative map, regardless of terminal state (callers wanting only
// live orders should filter on IsActive).
func (b *Book) ActiveOrderCount() int { return len(b.activeOrders) }

// PendingStopCount returns the number of stop orders parked awaiting trigger.
func (b *Book) PendingStopCount() int { return len(b.stopBuys) + len(b.stopSells) }

// Fills returns every accepted fill from the book's router, oldest first.
func (b *Book) Fills() []types.EnhancedFill { return b.router.AllFills() }

// RestoredFills returns the raw trade history captured by the most recent
// RestoreFromSnapshot call, if any.
func (b *Book) RestoredFills() []types.Fill { return b.restoredFills }

// ————————————————————————————————————————————————————————————————————————
// Stop orders
// ————————————————————————————————————————————————————————————————————————

// referencePrice implements the "Trigger conditions": last trade
// price if known, else a side-conservative synthesis from top-of-book.
func (b *Book) referencePrice(side types.Side) (float64, bool) {
	if b.hasTraded {
		return b.lastTradePrice, true
	}

	bid, okBid := b.GetBestBid()
	ask, okAsk := b.GetBestAsk()
	switch {
	case okBid && okAsk:
		if side == types.Sell {
			return math.Min(bid, ask), true
		}
		return math.Max(bid, ask), true
	case okBid:
		return bid, true
	case okAsk:
		return ask, true
	default:
		return 0, false
	}
}

func (b *Book) stopShouldTrigger(o *types.Order, refPrice float64) bool {
	if o.Side == types.Buy {
		return refPrice >= o.StopPrice
	}
	return refPrice <= o.StopPrice
}

func (b *Book) parkStop(o *types.Order) {
	o.State = types.Pending
	if o.Side == types.Buy {
		b.stopBuys[o.OrderID] = o
	} else {
		b.stopSells[o.OrderID] = o
	}
}

// triggerStop converts a stop order into its becomes-type and runs it
// through the normal insert-and-match path immediately.
func (b *Book) triggerStop(o *types.Order) {
	o.StopTriggered = true
	o.IsStop = false
	o.Type = o.Becomes
	if o.Type == types.Market {
		o.LimitPrice = types.SentinelPrice(o.Side)
	}
	o.State = types.Active
	b.activeOrders[o.OrderID] = o
	b.insertAndMatch(o)
}

// checkStopTriggers sweeps both stop books after a trade and triggers every
// stop now crossed at the new trade price.
func (b *Book) checkStopTriggers(tradePrice float64) {
	var triggeredBuys, triggeredSells []*types.Order
	for id, o := range b.stopBuys {
		if b.stopShouldTrigger(o, tradePrice) {
			triggeredBuys = append(triggeredBuys, o)
			delete(b.stopBuys, id)
		}
	}
	for id, o := range b.stopSells {
		if b.stopShouldTrigger(o, tradePrice) {
			triggeredSells = append(triggeredSells, o)
			delete(b.stopSells, id)
		}
	}
	for _, o := range triggeredBuys {
		b.triggerStop(o)
	}
	for _, o := range triggeredSells {
		b.triggerStop(o)
	}
}
