// Package analytics implements microstructure measurements: flow
// imbalance, rolling VWAP, and impact-observation collection feeding
// internal/impact's calibrator. It consumes enhanced fills through a
// registered router callback — subscribe to the fill stream rather than
// polling the book.
package analytics

import (
	"log/slog"
	"sync"
	"time"

	"lobengine/internal/impact"
	"lobengine/internal/rolling"
	"lobengine/pkg/types"
)

const rollingPriceWindowCapacity = 256

// flowWindow accumulates buy/sell quantity and notional over one bucket.
type flowWindow struct {
	start        time.Time
	buyQty       float64
	buyNotional  float64
	sellQty      float64
	sellNotional float64
}

func (w *flowWindow) add(side types.Side, qty, notional float64) {
	if side == types.Buy {
		w.buyQty += qty
		w.buyNotional += notional
	} else {
		w.sellQty += qty
		w.sellNotional += notional
	}
}

func (w *flowWindow) imbalance() float64 {
	total := w.buyQty + w.sellQty
	if total == 0 {
		return 0
	}
	return (w.buyQty - w.sellQty) / total
}

func (w *flowWindow) notionalImbalance() float64 {
	total := w.buyNotional + w.sellNotional
	if total == 0 {
		return 0
	}
	return (w.buyNotional - w.sellNotional) / total
}

// tradeMetricsPeriod is the current period's trade tape summary.
type tradeMetricsPeriod struct {
	count    int64
	volume   float64
	notional float64
	minPrice float64
	maxPrice float64
}

func (p *tradeMetricsPeriod) record(price, qty float64) {
	if p.count == 0 {
		p.minPrice = price
		p.maxPrice = price
	} else {
		if price < p.minPrice {
			p.minPrice = price
		}
		if price > p.maxPrice {
			p.maxPrice = price
		}
	}
	p.count++
	p.volume += qty
	p.notional += price * qty
}

// symbolState is the per-symbol bundle of flow window, price/volume
// windows, and impact observations.
type symbolState struct {
	current flowWindow
	history []flowWindow

	prices    *rolling.Window // trade prices, for the impact-observation reference mean
	volumes   *rolling.Window // trade quantities, same capacity/order as prices
	notionals *rolling.Window // price*qty per trade, same capacity/order as prices

	lastPrice float64
	impactObs []impact.Observation
}

// Config mirrors the "analytics" configuration group.
type Config struct {
	FlowWindowDuration time.Duration
	MaxWindows         int
	TrackPerSymbol     bool
	AutoCalibrateImpact bool
	SymbolADV          map[string]float64
}

// DefaultConfig returns the stated defaults (60s buckets, 60 windows).
func DefaultConfig() Config {
	return Config{
		FlowWindowDuration: 60 * time.Second,
		MaxWindows:         60,
		SymbolADV:          make(map[string]float64),
	}
}

// Tracker consumes enhanced fills and maintains the rolling microstructure
// measurements. Safe for concurrent use: the router invokes OnFill from the
// single matching thread in practice, but external readers (a monitoring
// endpoint, a scheduler) query concurrently under an RWMutex.
type Tracker struct {
	mu sync.RWMutex

	cfg    Config
	clock  func() time.Time
	logger *slog.Logger

	global        flowWindow
	globalHistory []flowWindow

	bySymbol map[string]*symbolState

	currentPeriod tradeMetricsPeriod
}

// New creates a Tracker with the given configuration. A nil logger defaults
// to slog.Default(); a nil clock defaults to time.Now.
func New(cfg Config, logger *slog.Logger, clock func() time.Time) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.FlowWindowDuration <= 0 {
		cfg.FlowWindowDuration = 60 * time.Second
	}
	if cfg.MaxWindows <= 0 {
		cfg.MaxWindows = 60
	}
	return &Tracker{
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
		bySymbol: make(map[string]*symbolState),
		global:   flowWindow{start: clock()},
	}
}

// OnFill is the router.FillCallback this tracker registers. It rotates flow
// windows as duration elapses, updates the rolling price window, the trade
// metrics period, and — when auto-calibration is on and enough history has
// accumulated — records an impact observation.
func (t *Tracker) OnFill(f types.EnhancedFill) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	qty := f.Quantity
	notional := f.Notional()

	t.rotateGlobalLocked(now)
	t.global.add(f.AggressorSide, qty, notional)

	t.currentPeriod.record(f.Price, qty)

	if !t.cfg.TrackPerSymbol {
		return
	}

	st, ok := t.bySymbol[f.Symbol]
	if !ok {
		st = &symbolState{
			current:   flowWindow{start: now},
			prices:    rolling.New(rollingPriceWindowCapacity),
			volumes:   rolling.New(rollingPriceWindowCapacity),
			notionals: rolling.New(rollingPriceWindowCapacity),
		}
		t.bySymbol[f.Symbol] = st
	}
	t.rotateSymbolLocked(st, now)
	st.current.add(f.AggressorSide, qty, notional)
	st.prices.Add(f.Price)
	st.volumes.Add(qty)
	st.notionals.Add(notional)
	st.lastPrice = f.Price

	if t.cfg.AutoCalibrateImpact && st.prices.Count() >= 10 && qty >= 100 {
		mean := st.prices.Mean()
		if mean != 0 {
			obs := impact.Observation{
				Participation: qty / t.advFor(f.Symbol),
				PriceImpact:   absFloat(f.Price-mean) / mean,
			}
			st.impactObs = append(st.impactObs, obs)
		}
	}
}

func (t *Tracker) advFor(symbol string) float64 {
	if adv, ok := t.cfg.SymbolADV[symbol]; ok && adv > 0 {
		return adv
	}
	return 1
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func (t *Tracker) rotateGlobalLocked(now time.Time) {
	if t.global.start.IsZero() {
		t.global.start = now
		return
	}
	if now.Sub(t.global.start) < t.cfg.FlowWindowDuration {
		return
	}
	t.globalHistory = append(t.globalHistory, t.global)
	if len(t.globalHistory) > t.cfg.MaxWindows {
		t.globalHistory = t.globalHistory[len(t.globalHistory)-t.cfg.MaxWindows:]
	}
	t.global = flowWindow{start: now}
}

func (t *Tracker) rotateSymbolLocked(st *symbolState, now time.Time) {
	if st.current.start.IsZero() {
		st.current.start = now
		return
	}
	if now.Sub(st.current.start) < t.cfg.FlowWindowDuration {
		return
	}
	st.history = append(st.history, st.current)
	if len(st.history) > t.cfg.MaxWindows {
		st.history = st.history[len(st.history)-t.cfg.MaxWindows:]
	}
	st.current = flowWindow{start: now}
}

// CurrentImbalance returns the current (buy-sell)/(buy+sell) global flow
// imbalance, in [-1, 1].
func (t *Tracker) CurrentImbalance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.global.imbalance()
}

// AggregatedImbalance returns the imbalance over the most recent n
// completed windows plus the current one, by quantity.
func (t *Tracker) AggregatedImbalance(n int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	buyQty, sellQty := t.global.buyQty, t.global.sellQty
	hist := t.globalHistory
	if n > 0 && n < len(hist) {
		hist = hist[len(hist)-n:]
	}
	for _, w := range hist {
		buyQty += w.buyQty
		sellQty += w.sellQty
	}
	total := buyQty + sellQty
	if total == 0 {
		return 0
	}
	return (buyQty - sellQty) / total
}

// TradeCountImbalance returns the same buy/sell quantity imbalance as
// CurrentImbalance. Flow windows keep no per-side trade counts, so no
// count-based imbalance is computed.
func (t *Tracker) TradeCountImbalance() float64 {
	return t.CurrentImbalance()
}

// NotionalImbalance returns the current window's notional-weighted
// imbalance.
func (t *Tracker) NotionalImbalance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.global.notionalImbalance()
}

// RollingVWAP returns the volume-weighted average price over the last
// rollingPriceWindowCapacity trades for symbol: sum(price*qty)/sum(qty)
// over that window, using the rolling notional and volume sums rather
// than an unweighted mean of trade prices. Returns 0 if the symbol is
// untracked, empty, or has recorded zero total volume.
func (t *Tracker) RollingVWAP(symbol string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.bySymbol[symbol]
	if !ok {
		return 0
	}
	vol := st.volumes.Sum()
	if vol == 0 {
		return 0
	}
	return st.notionals.Sum() / vol
}

// BuyRatio returns buyQty / (buyQty + sellQty) for the current global window.
func (t *Tracker) BuyRatio() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := t.global.buyQty + t.global.sellQty
	if total == 0 {
		return 0
	}
	return t.global.buyQty / total
}

// LastPrice returns the last traded price recorded for symbol.
func (t *Tracker) LastPrice(symbol string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.bySymbol[symbol]
	if !ok {
		return 0, false
	}
	return st.lastPrice, true
}

// CurrentPeriod returns a copy of the current trade-metrics period.
func (t *Tracker) CurrentPeriod() (count int64, volume, notional, minPrice, maxPrice float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.currentPeriod
	return p.count, p.volume, p.notional, p.minPrice, p.maxPrice
}

// ImpactEstimate estimates impact in bps for volume traded in symbol, using
// model if non-nil, else the package default model.
func (t *Tracker) ImpactEstimate(model *impact.Model, volume float64, symbol string) float64 {
	m := impact.DefaultModel()
	if model != nil {
		m = *model
	}
	t.mu.RLock()
	adv := t.advFor(symbol)
	t.mu.RUnlock()
	return m.TotalImpactBps(volume, adv)
}

// ImpactObservations returns the accumulated impact observations for
// symbol, in the form impact.Calibrator.Record accepts. Nothing in this
// module feeds them to a Calibrator.
func (t *Tracker) ImpactObservations(symbol string) []impact.Observation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.bySymbol[symbol]
	if !ok {
		return nil
	}
	out := make([]impact.Observation, len(st.impactObs))
	copy(out, st.impactObs)
	return out
}
