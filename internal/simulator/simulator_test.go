package simulator

import (
	"context"
	"testing"
	"time"

	"lobengine/internal/execution"
	"lobengine/pkg/types"
)

func baseConfig() Config {
	return Config{
		InitialPrice:    100,
		Volatility:      0.02,
		SpreadBps:       20,
		ADV:             100000,
		TickSize:        0.01,
		TicksPerSecond:  10,
		FillProbability: 1.0,
		RandomSeed:      42,
	}
}

func TestRoundToTickHelpers(t *testing.T) {
	t.Parallel()

	if got := roundToTick(100.017, 0.01); got != 100.02 {
		t.Errorf("roundToTick = %v, want 100.02", got)
	}
	if got := roundDownToTick(100.019, 0.01); got != 100.01 {
		t.Errorf("roundDownToTick = %v, want 100.01", got)
	}
	if got := roundUpToTick(100.011, 0.01); got != 100.02 {
		t.Errorf("roundUpToTick = %v, want 100.02", got)
	}
}

func TestSyntheticTicksStayAboveTickSizeFloor(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.InitialPrice = 0.02
	cfg.Volatility = 5 // deliberately extreme to try to drive price toward 0
	s := New(cfg)

	for i := 0; i < 200; i++ {
		tick := s.nextSyntheticTick(0.1)
		if tick.Price < cfg.TickSize {
			t.Fatalf("tick %d price = %v, want >= tick size %v", i, tick.Price, cfg.TickSize)
		}
		if tick.Bid > tick.Ask {
			t.Fatalf("tick %d bid %v > ask %v", i, tick.Bid, tick.Ask)
		}
	}
}

func TestMarketOrderAlwaysFillsAtTouch(t *testing.T) {
	t.Parallel()

	s := New(baseConfig())
	tick := Tick{Price: 100, Bid: 99.9, Ask: 100.1}

	buyOrder := execution.ChildOrder{Side: types.Buy, Type: types.Market}
	price, filled := s.tryFill(buyOrder, tick)
	if !filled || price != tick.Ask {
		t.Errorf("buy market fill = %v, %v, want ask %v, true", price, filled, tick.Ask)
	}

	sellOrder := execution.ChildOrder{Side: types.Sell, Type: types.Market}
	price, filled = s.tryFill(sellOrder, tick)
	if !filled || price != tick.Bid {
		t.Errorf("sell market fill = %v, %v, want bid %v, true", price, filled, tick.Bid)
	}
}

func TestLimitOrderOnlyFillsWhenItCrosses(t *testing.T) {
	t.Parallel()

	s := New(baseConfig())
	tick := Tick{Price: 100, Bid: 99.9, Ask: 100.1}

	nonCrossing := execution.ChildOrder{Side: types.Buy, Type: types.Limit, Price: 99}
	if _, filled := s.tryFill(nonCrossing, tick); filled {
		t.Error("non-crossing limit buy should not fill")
	}

	crossing := execution.ChildOrder{Side: types.Buy, Type: types.Limit, Price: 100.1}
	if _, filled := s.tryFill(crossing, tick); !filled {
		t.Error("crossing limit buy with fill_probability=1.0 should fill")
	}
}

func TestRunDrivesSchedulerToCompletionOnReplay(t *testing.T) {
	t.Parallel()

	start := time.Unix(1700000000, 0)
	ticks := []Tick{
		{Time: start, Price: 100, Bid: 99.9, Ask: 100.1},
		{Time: start.Add(time.Second), Price: 101, Bid: 100.9, Ask: 101.1},
		{Time: start.Add(2 * time.Second), Price: 102, Bid: 101.9, Ask: 102.1},
	}
	cfg := baseConfig()
	s := NewReplay(cfg, ticks)

	sched := &execution.TimeSliced{
		Base:      execution.Base{TargetQuantity: 30, IsBuy: true},
		Duration:  3 * time.Second,
		NumSlices: 3,
	}

	result, err := s.Run(context.Background(), sched, len(ticks), 0)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !sched.IsComplete() {
		t.Errorf("scheduler should be complete after replay, executed=%v", sched.ExecutedQuantity)
	}
	if result.Report.FillCount == 0 {
		t.Error("expected at least one fill across the replay")
	}
}
