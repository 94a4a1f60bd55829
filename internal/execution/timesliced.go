package execution

import (
	"math"
	"time"

	"lobengine/pkg/types"
)

// TimeSliced is an execution schedule of equal (or catch-up-adjusted)
// slices emitted at a fixed interval over Duration.
type TimeSliced struct {
	Base

	Duration       time.Duration
	NumSlices      int
	UseLimitOrders bool
	LimitOffsetBps float64

	// UseCatchUp enables the configured "catch-up variant": a slice behind the
	// expected linear-progress schedule pulls forward up to
	// (MaxCatchupMultiplier-1)x its base size from future slices.
	UseCatchUp           bool
	MaxCatchupMultiplier float64

	// Perturb, when true, nudges each slice size by a deterministic factor
	// in [MinPct, MaxPct] derived from the slice index, rather than emitting
	// perfectly equal slices every time.
	Perturb bool
	MinPct  float64
	MaxPct  float64

	lastSliceTime time.Time
	sliceIndex    int
}

func (s *TimeSliced) Name() string { return "time_sliced" }

func (s *TimeSliced) sliceInterval() time.Duration {
	if s.NumSlices <= 0 {
		return s.Duration
	}
	return s.Duration / time.Duration(s.NumSlices)
}

// OnMarketData implements the shared on_market_data contract.
func (s *TimeSliced) OnMarketData(snapshot Snapshot) []ChildOrder {
	s.BeginIfNeeded(snapshot)
	if s.IsComplete() {
		return nil
	}
	return s.computeChildOrders(snapshot)
}

func (s *TimeSliced) computeChildOrders(snapshot Snapshot) []ChildOrder {
	interval := s.sliceInterval()

	if s.sliceIndex == 0 && s.lastSliceTime.IsZero() {
		s.lastSliceTime = snapshot.Time
		return s.emitSlice(snapshot, interval)
	}

	if snapshot.Time.Sub(s.lastSliceTime) < interval {
		return nil
	}
	s.lastSliceTime = snapshot.Time
	return s.emitSlice(snapshot, interval)
}

func (s *TimeSliced) emitSlice(snapshot Snapshot, interval time.Duration) []ChildOrder {
	remaining := s.RemainingQuantity()
	if remaining <= 0 {
		return nil
	}

	slicesRemaining := s.NumSlices - s.sliceIndex
	s.sliceIndex++

	var size float64
	if slicesRemaining <= 1 {
		size = remaining
	} else {
		size = remaining / float64(slicesRemaining)
		if s.Perturb {
			size *= s.perturbationFactor(s.sliceIndex)
		}
		if s.UseCatchUp {
			size += s.catchUpExtra(snapshot, size)
		}
		if size > remaining {
			size = remaining
		}
	}

	order := s.buildOrder(snapshot, size)
	return []ChildOrder{order}
}

// perturbationFactor derives a deterministic factor in [MinPct, MaxPct]
// from the slice index using the golden-ratio low-discrepancy sequence, so
// consecutive slices don't repeat the same offset.
func (s *TimeSliced) perturbationFactor(index int) float64 {
	if s.MaxPct <= s.MinPct {
		return 1
	}
	const golden = 0.6180339887498949
	frac := math.Mod(float64(index)*golden, 1.0)
	return s.MinPct + (s.MaxPct-s.MinPct)*frac
}

// catchUpExtra computes the extra size to pull forward when executed
// quantity trails the linear-progress schedule
func (s *TimeSliced) catchUpExtra(snapshot Snapshot, baseSlice float64) float64 {
	if s.Duration <= 0 || s.MaxCatchupMultiplier <= 1 {
		return 0
	}
	elapsed := snapshot.Time.Sub(s.StartTime)
	expected := elapsed.Seconds() / s.Duration.Seconds() * s.TargetQuantity
	if s.ExecutedQuantity >= expected {
		return 0
	}
	extra := (s.MaxCatchupMultiplier - 1) * baseSlice
	remaining := s.RemainingQuantity() - baseSlice
	if extra > remaining {
		extra = remaining
	}
	if extra < 0 {
		return 0
	}
	return extra
}

func (s *TimeSliced) buildOrder(snapshot Snapshot, qty float64) ChildOrder {
	side := s.Side()
	if !s.UseLimitOrders {
		return s.NextChildOrder(side, types.Market, types.SentinelPrice(side), qty, snapshot.Time)
	}
	return s.NextChildOrder(side, types.Limit, s.LimitPrice(snapshot, s.LimitOffsetBps), qty, snapshot.Time)
}
