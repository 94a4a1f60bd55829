// Package types defines the shared data structures used across lobengine —
// orders, fills, price levels, and the enums that drive matching semantics.
// It has no dependencies on internal packages, so it can be imported by any
// layer from internal/book down to internal/execution.
package types

import (
	"math"
	"time"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: Buy or Sell.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType enumerates the two resting/aggressing order shapes. Iceberg and
// stop behavior are overlays on top of Limit/Market, not separate types
// (see Order.IsIceberg and Order.IsStop).
type OrderType int8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "MARKET"
	}
	return "LIMIT"
}

// TimeInForce selects how unmatched quantity is treated after the matching pass.
type TimeInForce int8

const (
	GTC TimeInForce = iota // good-til-cancelled
	IOC                    // immediate-or-cancel
	FOK                    // fill-or-kill
	DAY                    // good for the trading day; rests like GTC here
)

func (f TimeInForce) String() string {
	switch f {
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case DAY:
		return "DAY"
	default:
		return "GTC"
	}
}

// OrderState is the order's position in its lifecycle. Once a state is
// terminal (Filled, Cancelled, Rejected) no further mutation is permitted.
type OrderState int8

const (
	Pending OrderState = iota
	Active
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s OrderState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Active:
		return "ACTIVE"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further mutation of the order is permitted.
func (s OrderState) IsTerminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// LiquidityFlag records which side of a fill provided vs removed liquidity.
type LiquidityFlag int8

const (
	MakerFlag LiquidityFlag = iota
	TakerFlag
	MakerMakerFlag // both sides were resting (e.g. a triggered stop matching another resting order)
)

func (f LiquidityFlag) String() string {
	switch f {
	case TakerFlag:
		return "TAKER"
	case MakerMakerFlag:
		return "MAKER_MAKER"
	default:
		return "MAKER"
	}
}

// SentinelPrice returns the price a market order carries so that it always
// crosses the opposite side: "a market order carries a sentinel
// price (+∞ buy, 0 sell) that always crosses".
func SentinelPrice(side Side) float64 {
	if side == Buy {
		return math.MaxFloat64
	}
	return 0.0
}

// ————————————————————————————————————————————————————————————————————————
// Order
// ————————————————————————————————————————————————————————————————————————

// Order is the book's unit of work. Identity fields (OrderID, AccountID,
// Side) are immutable after construction; everything else mutates over the
// order's lifecycle as it rests, matches, and fills.
type Order struct {
	// Immutable identity.
	OrderID   int64
	AccountID int64
	Side      Side

	// Mutable lifecycle.
	Type         OrderType
	TIF          TimeInForce
	LimitPrice   float64
	OriginalQty  float64
	RemainingQty float64
	DisplayQty   float64 // iceberg: visible quantity; for non-icebergs, equals RemainingQty
	HiddenQty    float64 // iceberg: undisplayed quantity
	PeakSize     float64 // iceberg: quantity revealed per refresh; 0 for non-icebergs
	ArrivalTime  time.Time
	State        OrderState

	// Stop overlay.
	IsStop        bool
	StopPrice     float64
	StopTriggered bool
	Becomes       OrderType // what the order turns into once triggered
}

// IsIceberg reports whether the order has a hidden-quantity overlay.
func (o *Order) IsIceberg() bool {
	return o.PeakSize > 0 && o.PeakSize < o.OriginalQty
}

// IsActive reports whether the order can still participate in matching.
func (o *Order) IsActive() bool {
	return o.State == Active || o.State == PartiallyFilled
}

// IsEligible reports whether a stop order is eligible for matching — i.e.
// it is not a stop, or it has already triggered.
func (o *Order) IsEligible() bool {
	return !o.IsStop || o.StopTriggered
}

// Clone returns a value copy of the order, safe to hand to a priority
// structure without aliasing the authoritative map's storage.
func (o *Order) Clone() Order {
	return *o
}

// ————————————————————————————————————————————————————————————————————————
// Fills
// ————————————————————————————————————————————————————————————————————————

// Fill is the raw trade the matching engine produces before routing.
type Fill struct {
	BuyOrderID  int64
	SellOrderID int64
	Price       float64
	Quantity    float64
	Timestamp   time.Time
}

// EnhancedFill is a Fill enriched by the fill router with account,
// liquidity, and fee information.
type EnhancedFill struct {
	Fill

	BuyAccountID       int64
	SellAccountID      int64
	Symbol             string
	FillID             int64
	AggressorSide      Side
	LiquidityFlag      LiquidityFlag
	BuyerFee           float64
	SellerFee          float64
	MatchTime          time.Time
	RoutingTime        time.Time
	SelfTradePrevented bool

	// CorrelationID is an opaque external handle (a UUID) for systems that
	// join fills against other event streams by string, not by FillID. It
	// plays no role in ordering or lookup — FillID remains the monotonic
	// identity used there.
	CorrelationID string
}

// Notional returns price × quantity, used for fee and impact calculations.
func (f *EnhancedFill) Notional() float64 {
	return f.Price * f.Quantity
}

// ————————————————————————————————————————————————————————————————————————
// Price level (derived view)
// ————————————————————————————————————————————————————————————————————————

// PriceLevel is an aggregated view of active orders at a single price.
type PriceLevel struct {
	Price         float64
	TotalQuantity float64
	NumOrders     int
}
