package types

import (
	"math"
	"testing"
)

func TestSentinelPrice(t *testing.T) {
	t.Parallel()

	if got := SentinelPrice(Buy); got != math.MaxFloat64 {
		t.Errorf("SentinelPrice(Buy) = %v, want +inf sentinel", got)
	}
	if got := SentinelPrice(Sell); got != 0.0 {
		t.Errorf("SentinelPrice(Sell) = %v, want 0", got)
	}
}

func TestOrderStateIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state OrderState
		want  bool
	}{
		{Pending, false},
		{Active, false},
		{PartiallyFilled, false},
		{Filled, true},
		{Cancelled, true},
		{Rejected, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("%v.IsTerminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestOrderIsIceberg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		original float64
		peak     float64
		want     bool
	}{
		{"no peak", 1000, 0, false},
		{"peak smaller than total", 1000, 100, true},
		{"peak equals total behaves as non-iceberg", 1000, 1000, false},
		{"peak larger than total behaves as non-iceberg", 1000, 2000, false},
	}

	for _, tt := range tests {
		o := &Order{OriginalQty: tt.original, PeakSize: tt.peak}
		if got := o.IsIceberg(); got != tt.want {
			t.Errorf("%s: IsIceberg() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOrderIsEligible(t *testing.T) {
	t.Parallel()

	nonStop := &Order{IsStop: false}
	if !nonStop.IsEligible() {
		t.Error("non-stop order should always be eligible")
	}

	untriggered := &Order{IsStop: true, StopTriggered: false}
	if untriggered.IsEligible() {
		t.Error("untriggered stop order should not be eligible")
	}

	triggered := &Order{IsStop: true, StopTriggered: true}
	if !triggered.IsEligible() {
		t.Error("triggered stop order should be eligible")
	}
}

func TestEnhancedFillNotional(t *testing.T) {
	t.Parallel()

	f := &EnhancedFill{Fill: Fill{Price: 100.5, Quantity: 10}}
	if got, want := f.Notional(), 1005.0; got != want {
		t.Errorf("Notional() = %v, want %v", got, want)
	}
}

func TestOrderCloneIsIndependentCopy(t *testing.T) {
	t.Parallel()

	o := &Order{OrderID: 1, RemainingQty: 100}
	c := o.Clone()
	c.RemainingQty = 0

	if o.RemainingQty != 100 {
		t.Error("mutating the clone should not affect the original")
	}
}
