// Package simulator implements a geometric-Brownian-motion price path
// driving probabilistic fills against execution schedules, or replaying a
// user-provided tick sequence instead of synthesizing one. Tick generation
// and the scheduler-drive loop run as two goroutines supervised by
// golang.org/x/sync/errgroup: two cooperating goroutines that must fail
// together.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"lobengine/internal/execution"
	"lobengine/pkg/types"
)

// Config mirrors the "simulator" configuration group.
type Config struct {
	InitialPrice      float64
	Volatility        float64
	SpreadBps         float64
	ADV               float64
	TickSize          float64
	TicksPerSecond    float64
	FillProbability   float64
	ApplyMarketImpact bool
	RandomSeed        int64
}

// Tick is one simulated (or replayed) market-data point.
type Tick struct {
	Time  time.Time
	Price float64
	Bid   float64
	Ask   float64
}

// FillRecord is a simulated fill of a scheduler's child order.
type FillRecord struct {
	Order execution.ChildOrder
	Price float64
	Time  time.Time
}

// Result bundles a scheduler's report with the realized-vs-predicted
// impact the simulator observed
type Result struct {
	Report        execution.Report
	RealizedImpactBps  float64
	PredictedImpactBps float64
}

// Simulator drives a single execution.Scheduler against a synthesized or
// replayed price path.
type Simulator struct {
	cfg   Config
	rng   *rand.Rand
	clock time.Time

	price float64

	// Replay mode: when non-nil, Run consumes this sequence instead of
	// synthesizing GBM ticks.
	replay []Tick
}

// New creates a Simulator that synthesizes its own GBM price path.
func New(cfg Config) *Simulator {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = 1
	}
	return &Simulator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		price: cfg.InitialPrice,
	}
}

// NewReplay creates a Simulator that replays a fixed tick sequence instead
// of synthesizing one "replay a user-provided sequence of
// snapshots instead of synthesizing one."
func NewReplay(cfg Config, ticks []Tick) *Simulator {
	s := New(cfg)
	s.replay = ticks
	return s
}

// nextSyntheticTick advances the GBM price path by one step
func (s *Simulator) nextSyntheticTick(dt float64) Tick {
	eps := s.rng.NormFloat64()
	s.price *= math.Exp(s.cfg.Volatility * math.Sqrt(dt) * eps)
	s.price = roundToTick(s.price, s.cfg.TickSize)
	if s.price < s.cfg.TickSize {
		s.price = s.cfg.TickSize
	}

	halfSpread := s.cfg.SpreadBps / 2 / 10000 * s.price
	bid := roundDownToTick(s.price-halfSpread, s.cfg.TickSize)
	ask := roundUpToTick(s.price+halfSpread, s.cfg.TickSize)

	s.clock = s.clock.Add(time.Duration(dt * float64(time.Second)))
	return Tick{Time: s.clock, Price: s.price, Bid: bid, Ask: ask}
}

func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}

func roundDownToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Floor(price/tick) * tick
}

func roundUpToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Ceil(price/tick) * tick
}

// tryFill resolves one child order against the current tick: market orders
// fill at the touch; limit orders fill if the opposite touch crosses,
// subject to FillProbability.
func (s *Simulator) tryFill(order execution.ChildOrder, tick Tick) (price float64, filled bool) {
	isBuy := order.Side == types.Buy

	if order.Type == types.Market {
		if isBuy {
			return tick.Ask, true
		}
		return tick.Bid, true
	}

	crosses := false
	if isBuy {
		crosses = order.Price >= tick.Ask
	} else {
		crosses = order.Price <= tick.Bid
	}
	if !crosses {
		return 0, false
	}
	if s.rng.Float64() > s.cfg.FillProbability {
		return 0, false
	}
	if isBuy {
		return tick.Ask, true
	}
	return tick.Bid, true
}

// applyImpact shifts the simulator's resting price after a fill when
// market-impact mode is enabled
func (s *Simulator) applyImpact(temporaryImpactBps float64) {
	if !s.cfg.ApplyMarketImpact {
		return
	}
	s.price *= 1 + temporaryImpactBps/10000
}

// Run drives scheduler to completion (or until the tick sequence/budget is
// exhausted), returning its final report plus realized-vs-predicted impact.
// ctx cancellation stops both the tick-generation and scheduler-drive
// goroutines, supervised together by an errgroup.
func (s *Simulator) Run(ctx context.Context, scheduler execution.Scheduler, maxTicks int, temporaryImpactBps float64) (Result, error) {
	ticks := make(chan Tick)
	fills := make(chan FillRecord, 64)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ticks)
		dt := 1.0
		if s.cfg.TicksPerSecond > 0 {
			dt = 1.0 / s.cfg.TicksPerSecond
		}
		for i := 0; i < maxTicks; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var tick Tick
			if s.replay != nil {
				if i >= len(s.replay) {
					return nil
				}
				tick = s.replay[i]
			} else {
				tick = s.nextSyntheticTick(dt)
			}

			select {
			case ticks <- tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var arrivalPrice float64
	var lastFillPrice float64

	g.Go(func() error {
		for tick := range ticks {
			if arrivalPrice == 0 {
				arrivalPrice = tick.Price
			}
			orders := scheduler.OnMarketData(execution.Snapshot{
				Time: tick.Time, Price: tick.Price, Bid: tick.Bid, Ask: tick.Ask,
			})
			for _, o := range orders {
				price, filled := s.tryFill(o, tick)
				if !filled {
					continue
				}
				lastFillPrice = price
				s.applyImpact(temporaryImpactBps)

				ef := types.EnhancedFill{
					Fill: types.Fill{Price: price, Quantity: o.Quantity, Timestamp: tick.Time},
					MatchTime: tick.Time,
				}
				scheduler.OnFill(ef)

				select {
				case fills <- FillRecord{Order: o, Price: price, Time: tick.Time}:
				default:
				}
			}
			if scheduler.IsComplete() {
				cancel()
				return nil
			}
		}
		return nil
	})

	err := g.Wait()
	if err == context.Canceled {
		// The consumer goroutine cancels ctx itself once the scheduler
		// completes early; that is a successful stop, not a failure.
		err = nil
	}
	close(fills)

	report := scheduler.GenerateReport()

	var realizedBps float64
	if arrivalPrice != 0 && lastFillPrice != 0 {
		realizedBps = (lastFillPrice - arrivalPrice) / arrivalPrice * 10000
	}

	return Result{Report: report, RealizedImpactBps: realizedBps, PredictedImpactBps: temporaryImpactBps}, err
}
