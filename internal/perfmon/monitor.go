// Package perfmon implements the lock-free latency histogram and
// per-component timers as described below Two histograms cover [0, 10µs) in
// 100ns buckets and [10µs, 110µs) in 1µs buckets, with an overflow counter
// above that; percentiles walk cumulative counts across both and return the
// bucket midpoint. A Prometheus registry optionally mirrors the same
// counters for external scraping — the "performance monitor" names
// a pure measurement component, and Prometheus is the idiomatic way this
// pack's services expose measurement externally (see
// internal/trading/monitoring in the crypto-browser example).
package perfmon

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	numBuckets      = 100
	bucketSizeNs    = 100   // 100ns per bucket, [0, 10us)
	numUsBuckets    = 100
	usBucketSizeNs  = 1_000 // 1us per bucket, [10us, 110us)
	maxTrackedNs    = numBuckets * bucketSizeNs
	overflowFloorNs = maxTrackedNs + numUsBuckets*usBucketSizeNs
)

// componentStats tracks (count, total_ns, max_ns) for one named component.
type componentStats struct {
	count   uint64
	totalNs uint64
	maxNs   uint64
}

// Monitor is a lock-free latency histogram plus mutex-guarded per-component
// timers. The mutex guards only the component timers (recording, reading
// and Reset) — never the event-latency recording hot path.
type Monitor struct {
	name string

	histogram   [numBuckets]atomic.Uint64
	usHistogram [numUsBuckets]atomic.Uint64
	overflow    atomic.Uint64

	eventsProcessed atomic.Uint64
	totalLatencyNs  atomic.Uint64
	minLatencyNs    atomic.Uint64
	maxLatencyNs    atomic.Uint64

	startTime time.Time

	componentMu sync.Mutex
	components  map[string]*componentStats

	registry *prometheus.Registry
	promHist prometheus.Histogram
}

// New creates a Monitor with the given identifying name. It creates no
// Prometheus registry: Monitor itself implements prometheus.Collector, and
// a caller that wants scraping registers it with a registry of its own.
func New(name string) *Monitor {
	m := &Monitor{
		name:       name,
		components: make(map[string]*componentStats),
		startTime:  time.Now(),
	}
	m.minLatencyNs.Store(^uint64(0))
	return m
}

// RecordEventLatency atomically increments the target bucket, the event
// counter, and the running sum, and updates min/max via CAS loops — all
// lock-free
func (m *Monitor) RecordEventLatency(ns uint64) {
	switch {
	case ns < maxTrackedNs:
		m.histogram[ns/bucketSizeNs].Add(1)
	case ns < overflowFloorNs:
		m.usHistogram[(ns-maxTrackedNs)/usBucketSizeNs].Add(1)
	default:
		m.overflow.Add(1)
	}

	m.eventsProcessed.Add(1)
	m.totalLatencyNs.Add(ns)
	casMin(&m.minLatencyNs, ns)
	casMax(&m.maxLatencyNs, ns)
}

func casMin(a *atomic.Uint64, ns uint64) {
	for {
		cur := a.Load()
		if ns >= cur {
			return
		}
		if a.CompareAndSwap(cur, ns) {
			return
		}
	}
}

func casMax(a *atomic.Uint64, ns uint64) {
	for {
		cur := a.Load()
		if ns <= cur {
			return
		}
		if a.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// Name returns the monitor's identifying name, as passed to New.
func (m *Monitor) Name() string { return m.name }

// EventsProcessed returns the total number of recorded events.
func (m *Monitor) EventsProcessed() uint64 { return m.eventsProcessed.Load() }

// MinLatencyNs returns the minimum observed latency, or 0 if no events.
func (m *Monitor) MinLatencyNs() uint64 {
	v := m.minLatencyNs.Load()
	if v == ^uint64(0) {
		return 0
	}
	return v
}

// MaxLatencyNs returns the maximum observed latency.
func (m *Monitor) MaxLatencyNs() uint64 { return m.maxLatencyNs.Load() }

// MeanLatencyNs returns total_latency_ns / events_processed, or 0 if empty.
func (m *Monitor) MeanLatencyNs() float64 {
	count := m.eventsProcessed.Load()
	if count == 0 {
		return 0
	}
	return float64(m.totalLatencyNs.Load()) / float64(count)
}

// Throughput returns events_processed × 1e9 / elapsed_ns
func (m *Monitor) Throughput() float64 {
	elapsed := time.Since(m.startTime).Nanoseconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.eventsProcessed.Load()) * 1e9 / float64(elapsed)
}

// PercentileNs walks cumulative bucket counts across both histograms and
// returns the midpoint of the bucket containing the requested percentile
// (p in [0, 1]).
func (m *Monitor) PercentileNs(p float64) uint64 {
	total := m.eventsProcessed.Load()
	if total == 0 {
		return 0
	}
	target := uint64(p * float64(total))

	var cumulative uint64
	for i := 0; i < numBuckets; i++ {
		cumulative += m.histogram[i].Load()
		if cumulative >= target {
			return uint64(i)*bucketSizeNs + bucketSizeNs/2
		}
	}
	for i := 0; i < numUsBuckets; i++ {
		cumulative += m.usHistogram[i].Load()
		if cumulative >= target {
			return maxTrackedNs + uint64(i)*usBucketSizeNs + usBucketSizeNs/2
		}
	}
	return overflowFloorNs
}

// RecordComponentTime records one timing sample for a named component
// under the component mutex. ComponentTiming takes the same mutex briefly,
// so a read never sees a half-updated (count, total, max) triple; the
// event-latency path never takes it.
func (m *Monitor) RecordComponentTime(component string, d time.Duration) {
	ns := uint64(d.Nanoseconds())

	m.componentMu.Lock()
	defer m.componentMu.Unlock()

	cs, ok := m.components[component]
	if !ok {
		cs = &componentStats{}
		m.components[component] = cs
	}
	cs.count++
	cs.totalNs += ns
	if ns > cs.maxNs {
		cs.maxNs = ns
	}
}

// ComponentTiming is a read-only snapshot of a component's timing stats.
type ComponentTiming struct {
	Count   uint64
	TotalNs uint64
	MaxNs   uint64
}

// ComponentTiming returns a snapshot for the named component, or the zero
// value if no samples have been recorded for it.
func (m *Monitor) ComponentTiming(component string) ComponentTiming {
	m.componentMu.Lock()
	defer m.componentMu.Unlock()

	cs, ok := m.components[component]
	if !ok {
		return ComponentTiming{}
	}
	return ComponentTiming{Count: cs.count, TotalNs: cs.totalNs, MaxNs: cs.maxNs}
}

// Reset clears all statistics, including component timers.
func (m *Monitor) Reset() {
	for i := range m.histogram {
		m.histogram[i].Store(0)
	}
	for i := range m.usHistogram {
		m.usHistogram[i].Store(0)
	}
	m.overflow.Store(0)
	m.eventsProcessed.Store(0)
	m.totalLatencyNs.Store(0)
	m.minLatencyNs.Store(^uint64(0))
	m.maxLatencyNs.Store(0)
	m.startTime = time.Now()

	m.componentMu.Lock()
	m.components = make(map[string]*componentStats)
	m.componentMu.Unlock()
}

// Describe implements prometheus.Collector. It intentionally sends no
// descriptors, making this an "unchecked" collector — appropriate here
// since Collect's const labels vary with the monitor's name.
func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector, exporting the monitor's
// lock-free counters as a snapshot of gauges under the monitor's name.
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	labels := prometheus.Labels{"monitor": m.name}

	emit := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(value)
		ch <- g
	}

	emit("lobengine_events_processed_total", "total events recorded", float64(m.EventsProcessed()))
	emit("lobengine_latency_mean_ns", "mean event latency in nanoseconds", m.MeanLatencyNs())
	emit("lobengine_latency_min_ns", "minimum observed latency in nanoseconds", float64(m.MinLatencyNs()))
	emit("lobengine_latency_max_ns", "maximum observed latency in nanoseconds", float64(m.MaxLatencyNs()))
	emit("lobengine_throughput_eps", "events processed per second", m.Throughput())
	emit("lobengine_latency_p50_ns", "p50 latency in nanoseconds", float64(m.PercentileNs(0.50)))
	emit("lobengine_latency_p99_ns", "p99 latency in nanoseconds", float64(m.PercentileNs(0.99)))
}
