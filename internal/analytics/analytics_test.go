package analytics

import (
	"math"
	"testing"
	"time"

	"lobengine/pkg/types"
)

func fill(symbol string, side types.Side, price, qty float64) types.EnhancedFill {
	return types.EnhancedFill{
		Fill:          types.Fill{Price: price, Quantity: qty},
		Symbol:        symbol,
		AggressorSide: side,
	}
}

func TestCurrentImbalanceReflectsBuySellSkew(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	tr := New(DefaultConfig(), nil, clock)
	tr.OnFill(fill("X", types.Buy, 100, 70))
	tr.OnFill(fill("X", types.Sell, 100, 30))

	if got := tr.CurrentImbalance(); got <= 0 {
		t.Errorf("CurrentImbalance() = %v, want positive (buy-heavy)", got)
	}
	if got := tr.BuyRatio(); got != 0.7 {
		t.Errorf("BuyRatio() = %v, want 0.7", got)
	}
}

func TestFlowWindowRotatesOnElapsedDuration(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	cfg := DefaultConfig()
	cfg.FlowWindowDuration = 10 * time.Second
	tr := New(cfg, nil, clock)

	tr.OnFill(fill("X", types.Buy, 100, 10))
	now = now.Add(11 * time.Second)
	tr.OnFill(fill("X", types.Sell, 100, 5))

	// After rotation, the current window should reflect only the post-roll fill.
	if got := tr.CurrentImbalance(); got >= 0 {
		t.Errorf("CurrentImbalance() = %v, want negative (post-rotation sell-only window)", got)
	}
	// But the aggregate across windows still sees both.
	if got := tr.AggregatedImbalance(0); got <= 0 {
		t.Errorf("AggregatedImbalance(0) = %v, want positive across both windows (10 buy vs 5 sell)", got)
	}
}

func TestRollingVWAPAndImpactObservationsRequirePerSymbolTracking(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	cfg := DefaultConfig()
	cfg.TrackPerSymbol = true
	cfg.AutoCalibrateImpact = true
	cfg.SymbolADV["X"] = 10000

	tr := New(cfg, nil, clock)

	for i := 0; i < 12; i++ {
		tr.OnFill(fill("X", types.Buy, 100+float64(i), 150))
	}

	if vwap := tr.RollingVWAP("X"); vwap <= 100 {
		t.Errorf("RollingVWAP(X) = %v, want > 100", vwap)
	}
	if lp, ok := tr.LastPrice("X"); !ok || lp != 111 {
		t.Errorf("LastPrice(X) = %v, %v, want 111, true", lp, ok)
	}
	if obs := tr.ImpactObservations("X"); len(obs) == 0 {
		t.Error("ImpactObservations(X) should be non-empty once the window has ≥10 samples and qty≥100")
	}
	if obs := tr.ImpactObservations("UNKNOWN"); obs != nil {
		t.Errorf("ImpactObservations(UNKNOWN) = %v, want nil", obs)
	}
}

func TestRollingVWAPIsVolumeWeightedNotAnUnweightedMean(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	cfg := DefaultConfig()
	cfg.TrackPerSymbol = true
	tr := New(cfg, nil, clock)

	// A small fill at 200 and a huge fill at 100: the unweighted mean of
	// prices is 150, but almost all the volume trades at 100, so the
	// volume-weighted average should sit close to 100.
	tr.OnFill(fill("X", types.Buy, 200, 1))
	tr.OnFill(fill("X", types.Buy, 100, 999))

	vwap := tr.RollingVWAP("X")
	unweightedMean := 150.0
	if math.Abs(vwap-unweightedMean) < 1 {
		t.Fatalf("RollingVWAP(X) = %v, should diverge from the unweighted mean %v given the lopsided fill sizes", vwap, unweightedMean)
	}
	want := (200*1 + 100*999) / 1000.0
	if math.Abs(vwap-want) > 1e-9 {
		t.Errorf("RollingVWAP(X) = %v, want %v (sum(price*qty)/sum(qty))", vwap, want)
	}
}

func TestPerSymbolTrackingOffSkipsSymbolState(t *testing.T) {
	t.Parallel()

	tr := New(DefaultConfig(), nil, nil)
	tr.OnFill(fill("X", types.Buy, 100, 10))

	if vwap := tr.RollingVWAP("X"); vwap != 0 {
		t.Errorf("RollingVWAP(X) = %v, want 0 when TrackPerSymbol is off", vwap)
	}
}
