package execution

import (
	"math"
	"time"

	"lobengine/pkg/types"
)

// Profile selects the volume curve a VolumeWeighted schedule follows.
type Profile int

const (
	ProfileUniform Profile = iota
	ProfileUShaped
	ProfileMorningWeighted
	ProfileAfternoonWeighted
	ProfileCustom
)

// VolumeWeighted implements: slice sizes precomputed from a
// normalized weight vector following a named volume profile (or a custom
// one), optionally blended with real-time traded volume.
type VolumeWeighted struct {
	Base

	Duration       time.Duration
	NumSlices      int
	Profile        Profile
	CustomWeights  []float64
	UseLimitOrders bool
	LimitOffsetBps float64

	UseRealTimeVolume bool
	ParticipationRate float64 // clamped to [0.01, 0.5] when a slice is blended

	sliceSizes    []float64
	sliceIndex    int
	lastSliceTime time.Time
}

func (v *VolumeWeighted) Name() string { return "volume_weighted" }

// NewVolumeWeighted precomputes the slice-size schedule from the chosen
// profile
func NewVolumeWeighted(targetQty float64, isBuy bool, duration time.Duration, numSlices int, profile Profile, customWeights []float64) *VolumeWeighted {
	v := &VolumeWeighted{
		Base:              Base{TargetQuantity: targetQty, IsBuy: isBuy},
		Duration:          duration,
		NumSlices:         numSlices,
		Profile:           profile,
		CustomWeights:     customWeights,
		ParticipationRate: 0.1,
	}
	v.precomputeSliceSizes()
	return v
}

func (v *VolumeWeighted) weights() []float64 {
	n := v.NumSlices
	w := make([]float64, n)

	switch v.Profile {
	case ProfileUShaped:
		for i := 0; i < n; i++ {
			t := float64(i) / float64(maxInt(n-1, 1))
			w[i] = 1 + 2*(t-0.5)*(t-0.5)
		}
	case ProfileMorningWeighted:
		for i := 0; i < n; i++ {
			t := float64(i) / float64(n)
			w[i] = math.Exp(-2 * t)
		}
	case ProfileAfternoonWeighted:
		for i := 0; i < n; i++ {
			t := float64(i) / float64(n)
			w[i] = math.Exp(2 * (t - 1))
		}
	case ProfileCustom:
		w = append([]float64(nil), v.CustomWeights...)
		if len(w) != n {
			// Fall back to uniform if the caller's vector doesn't match
			// NumSlices rather than silently truncating/padding it.
			w = make([]float64, n)
			for i := range w {
				w[i] = 1
			}
		}
	default: // ProfileUniform
		for i := range w {
			w[i] = 1
		}
	}

	var sum float64
	for _, wi := range w {
		sum += wi
	}
	if sum == 0 {
		sum = 1
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// precomputeSliceSizes computes slice_sizes[i] = round(target*w_i) and
// distributes the rounding remainder to the first k slices
func (v *VolumeWeighted) precomputeSliceSizes() {
	if v.NumSlices <= 0 {
		v.sliceSizes = nil
		return
	}
	w := v.weights()
	sizes := make([]float64, len(w))
	var allocated float64
	for i, wi := range w {
		sizes[i] = math.Round(v.TargetQuantity * wi)
		allocated += sizes[i]
	}

	remainder := v.TargetQuantity - allocated
	steps := int(math.Round(math.Abs(remainder)))
	sign := 1.0
	if remainder < 0 {
		sign = -1.0
	}
	for i := 0; i < steps && i < len(sizes); i++ {
		sizes[i] += sign
	}

	v.sliceSizes = sizes
}

// OnMarketData implements the shared on_market_data contract.
func (v *VolumeWeighted) OnMarketData(snapshot Snapshot) []ChildOrder {
	v.BeginIfNeeded(snapshot)
	if v.IsComplete() {
		return nil
	}
	return v.computeChildOrders(snapshot)
}

func (v *VolumeWeighted) sliceInterval() time.Duration {
	if v.NumSlices <= 0 {
		return v.Duration
	}
	return v.Duration / time.Duration(v.NumSlices)
}

func (v *VolumeWeighted) computeChildOrders(snapshot Snapshot) []ChildOrder {
	interval := v.sliceInterval()

	if v.sliceIndex == 0 && v.lastSliceTime.IsZero() {
		v.lastSliceTime = snapshot.Time
		return v.emitSlice(snapshot)
	}
	if snapshot.Time.Sub(v.lastSliceTime) < interval {
		return nil
	}
	v.lastSliceTime = snapshot.Time
	return v.emitSlice(snapshot)
}

func (v *VolumeWeighted) emitSlice(snapshot Snapshot) []ChildOrder {
	remaining := v.RemainingQuantity()
	if remaining <= 0 {
		return nil
	}

	var size float64
	if v.sliceIndex >= len(v.sliceSizes)-1 {
		size = remaining
	} else {
		size = v.sliceSizes[v.sliceIndex]
		if v.UseRealTimeVolume && snapshot.IntervalVolume > 0 {
			participation := v.ParticipationRate
			if participation < 0.01 {
				participation = 0.01
			}
			if participation > 0.5 {
				participation = 0.5
			}
			blended := 0.7*(snapshot.IntervalVolume*participation) + 0.3*size
			size = blended
		}
	}
	if size > remaining {
		size = remaining
	}
	v.sliceIndex++

	side := v.Side()
	var order ChildOrder
	if !v.UseLimitOrders {
		order = v.NextChildOrder(side, types.Market, types.SentinelPrice(side), size, snapshot.Time)
	} else {
		order = v.NextChildOrder(side, types.Limit, v.LimitPrice(snapshot, v.LimitOffsetBps), size, snapshot.Time)
	}
	return []ChildOrder{order}
}
