package execution

import (
	"math"
	"time"

	"lobengine/pkg/types"
)

const secondsPerTradingDay = 86400.0

// RiskAware implements: a Almgren-Chriss-style sinh trajectory
// trading off market impact against timing risk, falling back to a linear
// trajectory when the risk-aversion term degenerates.
type RiskAware struct {
	Base

	Duration       time.Duration
	NumSlices      int
	UseLimitOrders bool
	LimitOffsetBps float64

	RiskAversion   float64 // λ
	PermanentCoeff float64 // γ
	TemporaryCoeff float64 // η
	ADV            float64
	Volatility     float64 // σ, clamped to a minimum of 0.001 at construction

	sliceSizes    []float64
	sliceIndex    int
	lastSliceTime time.Time
}

func (r *RiskAware) Name() string { return "risk_aware_optimal" }

// NewRiskAware computes the trading trajectory once at construction; call
// it again if risk-aversion or volatility parameters change.
func NewRiskAware(targetQty float64, isBuy bool, duration time.Duration, numSlices int, riskAversion, permanentCoeff, temporaryCoeff, adv, volatility float64) *RiskAware {
	if volatility < 0.001 {
		volatility = 0.001
	}
	r := &RiskAware{
		Base:           Base{TargetQuantity: targetQty, IsBuy: isBuy},
		Duration:       duration,
		NumSlices:      numSlices,
		RiskAversion:   riskAversion,
		PermanentCoeff: permanentCoeff,
		TemporaryCoeff: temporaryCoeff,
		ADV:            adv,
		Volatility:     volatility,
	}
	r.RecomputeTrajectory()
	return r
}

// RecomputeTrajectory recomputes the sinh (or linear fallback) trading
// trajectory from current parameters
func (r *RiskAware) RecomputeTrajectory() {
	n := r.NumSlices
	if n <= 0 {
		r.sliceSizes = nil
		return
	}

	tau := r.Duration.Seconds() / secondsPerTradingDay
	dt := tau / float64(n)

	var kappaTilde float64
	if r.ADV > 0 && r.TemporaryCoeff > 0 {
		kappaTilde = math.Sqrt(r.RiskAversion * r.Volatility * r.Volatility / (r.TemporaryCoeff / r.ADV))
	}

	x := make([]float64, n+1)
	denom := math.Sinh(kappaTilde * tau)
	useLinear := denom <= 0 || math.IsNaN(denom) || math.IsInf(denom, 0)

	for i := 0; i <= n; i++ {
		remaining := tau - float64(i)*dt
		if useLinear {
			if tau == 0 {
				x[i] = 0
			} else {
				x[i] = remaining / tau
			}
		} else {
			x[i] = math.Sinh(kappaTilde*remaining) / denom
		}
	}
	x[0] = 1
	x[n] = 0

	sizes := make([]float64, n)
	var allocated float64
	for i := 0; i < n; i++ {
		sizes[i] = math.Round((x[i] - x[i+1]) * r.TargetQuantity)
		allocated += sizes[i]
	}

	// Reconcile rounding: allocate remainder to the first slice; if
	// over-allocated, subtract from the largest
	remainder := r.TargetQuantity - allocated
	if remainder != 0 {
		sizes[0] += remainder
	}
	if sizes[0] < 0 {
		largest := 0
		for i, s := range sizes {
			if s > sizes[largest] {
				largest = i
			}
		}
		sizes[largest] += sizes[0]
		sizes[0] = 0
	}

	r.sliceSizes = sizes
}

// ExpectedCostBps returns the model's expected execution cost in bps, per
// the closed-form expression.
func (r *RiskAware) ExpectedCostBps() float64 {
	if r.ADV <= 0 || r.NumSlices <= 0 {
		return 0
	}
	tau := r.Duration.Seconds() / secondsPerTradingDay
	x := r.TargetQuantity

	var sumSquares float64
	for _, n := range r.sliceSizes {
		ratio := n / r.ADV
		sumSquares += ratio * ratio
	}

	permanentTerm := r.PermanentCoeff * x / r.ADV
	temporaryTerm := r.TemporaryCoeff * sumSquares
	riskTerm := 0.5 * r.RiskAversion * r.Volatility * r.Volatility * x * x * tau / (float64(r.NumSlices) * r.ADV * r.ADV)

	return (permanentTerm + temporaryTerm + riskTerm) * 10000
}

// OnMarketData implements the shared on_market_data contract.
func (r *RiskAware) OnMarketData(snapshot Snapshot) []ChildOrder {
	r.BeginIfNeeded(snapshot)
	if r.IsComplete() {
		return nil
	}
	return r.computeChildOrders(snapshot)
}

func (r *RiskAware) sliceInterval() time.Duration {
	if r.NumSlices <= 0 {
		return r.Duration
	}
	return r.Duration / time.Duration(r.NumSlices)
}

func (r *RiskAware) computeChildOrders(snapshot Snapshot) []ChildOrder {
	interval := r.sliceInterval()

	if r.sliceIndex == 0 && r.lastSliceTime.IsZero() {
		r.lastSliceTime = snapshot.Time
		return r.emitSlice(snapshot)
	}
	if snapshot.Time.Sub(r.lastSliceTime) < interval {
		return nil
	}
	r.lastSliceTime = snapshot.Time
	return r.emitSlice(snapshot)
}

func (r *RiskAware) emitSlice(snapshot Snapshot) []ChildOrder {
	remaining := r.RemainingQuantity()
	if remaining <= 0 {
		return nil
	}

	var size float64
	if r.sliceIndex >= len(r.sliceSizes)-1 || r.sliceIndex >= len(r.sliceSizes) {
		size = remaining
	} else {
		size = r.sliceSizes[r.sliceIndex]
	}
	if size > remaining {
		size = remaining
	}
	r.sliceIndex++

	side := r.Side()
	if !r.UseLimitOrders {
		return []ChildOrder{r.NextChildOrder(side, types.Market, types.SentinelPrice(side), size, snapshot.Time)}
	}
	return []ChildOrder{r.NextChildOrder(side, types.Limit, r.LimitPrice(snapshot, r.LimitOffsetBps), size, snapshot.Time)}
}
