// Package router implements the fill router: it turns the raw
// (buy_order_id, sell_order_id, price, quantity) fills the matching core
// produces into EnhancedFill records carrying account, liquidity, and fee
// information, and is the single place self-trade prevention can reject a
// trade before it is recorded.
package router

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"lobengine/pkg/types"
)

// FillCallback is invoked, in registration order, for every accepted fill.
type FillCallback func(types.EnhancedFill)

// SelfTradeCallback is invoked whenever self-trade prevention rejects a fill.
type SelfTradeCallback func(buyOrderID, sellOrderID int64, accountID int64)

// Router assigns monotonic fill ids, applies self-trade prevention and the
// fee schedule, and stores every accepted fill for later query. Every
// method takes an internal mutex, so queries may run from other goroutines
// while the matching core routes fills.
type Router struct {
	mu sync.Mutex

	selfTradePrevention bool
	makerRate           float64
	takerRate           float64

	nextFillID int64
	fills      []types.EnhancedFill
	byAccount  map[int64][]int // fills index, keyed by account (buy or sell side)
	bySymbol   map[string][]int
	byID       map[int64]int

	selfTradePrevented int64

	fillCallbacks      []FillCallback
	selfTradeCallbacks []SelfTradeCallback
}

// New creates a Router with self-trade prevention enabled and a zero fee
// schedule; callers adjust both via SetSelfTradePrevention/SetFeeSchedule.
func New() *Router {
	return &Router{
		selfTradePrevention: true,
		byAccount:           make(map[int64][]int),
		bySymbol:            make(map[string][]int),
		byID:                make(map[int64]int),
	}
}

// SetSelfTradePrevention toggles rejection of fills where both sides share
// an account id.
func (r *Router) SetSelfTradePrevention(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfTradePrevention = enabled
}

// SetFeeSchedule sets the maker/taker rates applied to notional on every
// accepted fill.
func (r *Router) SetFeeSchedule(makerRate, takerRate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.makerRate = makerRate
	r.takerRate = takerRate
}

// OnFill registers a callback invoked for every accepted fill, in order.
func (r *Router) OnFill(cb FillCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fillCallbacks = append(r.fillCallbacks, cb)
}

// OnSelfTrade registers a callback invoked whenever a fill is rejected by
// self-trade prevention.
func (r *Router) OnSelfTrade(cb SelfTradeCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfTradeCallbacks = append(r.selfTradeCallbacks, cb)
}

// Route turns a raw fill into an EnhancedFill and stores it, applying
// self-trade prevention and the fee schedule. aggressorSide indicates which
// side crossed the spread, which decides liquidity flags and fee rates.
// Returns false if the fill was rejected.
func (r *Router) Route(symbol string, buyOrderID, sellOrderID int64, buyAccountID, sellAccountID int64, price, quantity float64, aggressorSide types.Side, matchTime, routingTime time.Time) (types.EnhancedFill, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selfTradePrevention && buyAccountID == sellAccountID {
		r.selfTradePrevented++
		for _, cb := range r.selfTradeCallbacks {
			cb(buyOrderID, sellOrderID, buyAccountID)
		}
		return types.EnhancedFill{}, false
	}

	r.nextFillID++
	notional := price * quantity

	var liquidity types.LiquidityFlag
	var buyerFee, sellerFee float64
	switch aggressorSide {
	case types.Buy:
		liquidity = types.TakerFlag
		buyerFee = notional * r.takerRate
		sellerFee = notional * r.makerRate
	default:
		liquidity = types.TakerFlag
		buyerFee = notional * r.makerRate
		sellerFee = notional * r.takerRate
	}

	ef := types.EnhancedFill{
		Fill: types.Fill{
			BuyOrderID:  buyOrderID,
			SellOrderID: sellOrderID,
			Price:       price,
			Quantity:    quantity,
			Timestamp:   matchTime,
		},
		BuyAccountID:  buyAccountID,
		SellAccountID: sellAccountID,
		Symbol:        symbol,
		FillID:        r.nextFillID,
		AggressorSide: aggressorSide,
		LiquidityFlag: liquidity,
		BuyerFee:      buyerFee,
		SellerFee:     sellerFee,
		MatchTime:     matchTime,
		RoutingTime:   routingTime,
		CorrelationID: uuid.NewString(),
	}

	idx := len(r.fills)
	r.fills = append(r.fills, ef)
	r.byAccount[buyAccountID] = append(r.byAccount[buyAccountID], idx)
	if sellAccountID != buyAccountID {
		r.byAccount[sellAccountID] = append(r.byAccount[sellAccountID], idx)
	}
	r.bySymbol[symbol] = append(r.bySymbol[symbol], idx)
	r.byID[ef.FillID] = idx

	for _, cb := range r.fillCallbacks {
		cb(ef)
	}

	return ef, true
}

// AllFills returns every accepted fill, oldest first.
func (r *Router) AllFills() []types.EnhancedFill {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EnhancedFill, len(r.fills))
	copy(out, r.fills)
	return out
}

// FillsByAccount returns every fill touching the given account, oldest first.
func (r *Router) FillsByAccount(accountID int64) []types.EnhancedFill {
	r.mu.Lock()
	defer r.mu.Unlock()
	idxs := r.byAccount[accountID]
	out := make([]types.EnhancedFill, len(idxs))
	for i, idx := range idxs {
		out[i] = r.fills[idx]
	}
	return out
}

// FillsBySymbol returns every fill for the given symbol, oldest first.
func (r *Router) FillsBySymbol(symbol string) []types.EnhancedFill {
	r.mu.Lock()
	defer r.mu.Unlock()
	idxs := r.bySymbol[symbol]
	out := make([]types.EnhancedFill, len(idxs))
	for i, idx := range idxs {
		out[i] = r.fills[idx]
	}
	return out
}

// FillByID looks up a single fill by its monotonic id.
func (r *Router) FillByID(fillID int64) (types.EnhancedFill, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[fillID]
	if !ok {
		return types.EnhancedFill{}, false
	}
	return r.fills[idx], true
}

// TotalFees aggregates maker and taker fees paid by accountID across every
// fill it participated in, on whichever side it held.
func (r *Router) TotalFees(accountID int64) (maker, taker float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, idx := range r.byAccount[accountID] {
		f := r.fills[idx]
		var fee float64
		var isTaker bool
		if f.BuyAccountID == accountID {
			fee = f.BuyerFee
			isTaker = f.AggressorSide == types.Buy
		}
		if f.SellAccountID == accountID {
			fee = f.SellerFee
			isTaker = f.AggressorSide == types.Sell
		}
		if isTaker {
			taker += fee
		} else {
			maker += fee
		}
	}
	return maker, taker
}

// SelfTradePreventedCount returns how many fills were rejected by self-trade
// prevention since construction (or the last Reset).
func (r *Router) SelfTradePreventedCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selfTradePrevented
}

// Reset clears all stored fills and counters but preserves configuration
// (self-trade prevention flag, fee schedule, registered callbacks).
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFillID = 0
	r.fills = nil
	r.byAccount = make(map[int64][]int)
	r.bySymbol = make(map[string][]int)
	r.byID = make(map[int64]int)
	r.selfTradePrevented = 0
}
