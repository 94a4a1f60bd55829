package router

import (
	"testing"
	"time"

	"lobengine/pkg/types"
)

func TestRouteAssignsMonotonicFillIDs(t *testing.T) {
	t.Parallel()

	r := New()
	r.SetSelfTradePrevention(false)

	f1, ok := r.Route("BTC-USD", 1, 2, 100, 200, 50.0, 10, types.Buy, time.Now(), time.Now())
	if !ok {
		t.Fatal("Route rejected unexpectedly")
	}
	f2, ok := r.Route("BTC-USD", 3, 4, 100, 200, 51.0, 5, types.Sell, time.Now(), time.Now())
	if !ok {
		t.Fatal("Route rejected unexpectedly")
	}
	if f1.FillID != 1 || f2.FillID != 2 {
		t.Errorf("FillIDs = %d, %d, want 1, 2", f1.FillID, f2.FillID)
	}
	if f1.CorrelationID == "" || f1.CorrelationID == f2.CorrelationID {
		t.Errorf("CorrelationID not assigned distinctly: %q vs %q", f1.CorrelationID, f2.CorrelationID)
	}
}

func TestRouteRejectsSelfTrade(t *testing.T) {
	t.Parallel()

	r := New()
	var rejected bool
	r.OnSelfTrade(func(buyID, sellID, acct int64) { rejected = true })

	_, ok := r.Route("BTC-USD", 1, 2, 100, 100, 50.0, 10, types.Buy, time.Now(), time.Now())
	if ok {
		t.Fatal("Route accepted a self-trade")
	}
	if !rejected {
		t.Error("self-trade callback was not invoked")
	}
	if r.SelfTradePreventedCount() != 1 {
		t.Errorf("SelfTradePreventedCount() = %d, want 1", r.SelfTradePreventedCount())
	}
	if len(r.AllFills()) != 0 {
		t.Error("rejected fill should not be stored")
	}
}

func TestRouteComputesFeesByAggressorSide(t *testing.T) {
	t.Parallel()

	r := New()
	r.SetSelfTradePrevention(false)
	r.SetFeeSchedule(0.001, 0.002) // maker, taker

	f, ok := r.Route("BTC-USD", 1, 2, 100, 200, 10.0, 5, types.Buy, time.Now(), time.Now())
	if !ok {
		t.Fatal("Route rejected unexpectedly")
	}
	notional := 10.0 * 5
	if got, want := f.BuyerFee, notional*0.002; got != want {
		t.Errorf("BuyerFee (taker) = %v, want %v", got, want)
	}
	if got, want := f.SellerFee, notional*0.001; got != want {
		t.Errorf("SellerFee (maker) = %v, want %v", got, want)
	}
	if f.LiquidityFlag != types.TakerFlag {
		t.Errorf("LiquidityFlag = %v, want TakerFlag", f.LiquidityFlag)
	}
}

func TestQueriesByAccountAndSymbolAndID(t *testing.T) {
	t.Parallel()

	r := New()
	r.SetSelfTradePrevention(false)
	r.Route("BTC-USD", 1, 2, 100, 200, 10.0, 5, types.Buy, time.Now(), time.Now())
	r.Route("ETH-USD", 3, 4, 100, 300, 20.0, 2, types.Sell, time.Now(), time.Now())

	if len(r.FillsByAccount(100)) != 2 {
		t.Errorf("FillsByAccount(100) = %d, want 2", len(r.FillsByAccount(100)))
	}
	if len(r.FillsBySymbol("BTC-USD")) != 1 {
		t.Errorf("FillsBySymbol(BTC-USD) = %d, want 1", len(r.FillsBySymbol("BTC-USD")))
	}
	f, ok := r.FillByID(2)
	if !ok || f.Symbol != "ETH-USD" {
		t.Errorf("FillByID(2) = %+v, %v, want ETH-USD fill", f, ok)
	}
	if _, ok := r.FillByID(999); ok {
		t.Error("FillByID(999) should not be found")
	}
}

func TestTotalFeesAggregatesMakerAndTaker(t *testing.T) {
	t.Parallel()

	r := New()
	r.SetSelfTradePrevention(false)
	r.SetFeeSchedule(0.001, 0.002)

	// account 100 is buyer/aggressor (taker) in fill 1, passive seller (maker) in fill 2.
	r.Route("X", 1, 2, 100, 200, 10.0, 10, types.Buy, time.Now(), time.Now())
	r.Route("X", 3, 4, 300, 100, 10.0, 10, types.Buy, time.Now(), time.Now())

	maker, taker := r.TotalFees(100)
	if maker != 0.1 { // 100 notional * 0.001 maker, for fill 2 where 100 is the passive seller
		t.Errorf("maker fees = %v, want 0.1", maker)
	}
	if taker != 0.2 { // 100 notional * 0.002 taker, for fill 1
		t.Errorf("taker fees = %v, want 0.2", taker)
	}
}

func TestResetClearsFillsButKeepsConfig(t *testing.T) {
	t.Parallel()

	r := New()
	r.SetSelfTradePrevention(false)
	r.SetFeeSchedule(0.001, 0.002)
	r.Route("X", 1, 2, 100, 200, 10.0, 10, types.Buy, time.Now(), time.Now())

	r.Reset()

	if len(r.AllFills()) != 0 {
		t.Error("Reset should clear stored fills")
	}
	f, ok := r.Route("X", 5, 6, 100, 200, 10.0, 1, types.Buy, time.Now(), time.Now())
	if !ok {
		t.Fatal("Route rejected unexpectedly after Reset")
	}
	if f.FillID != 1 {
		t.Errorf("FillID after Reset = %d, want 1 (monotonic counter reset)", f.FillID)
	}
	if f.BuyerFee != 10.0*0.002 {
		t.Error("Reset should preserve fee schedule")
	}
}
