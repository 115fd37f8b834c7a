// Package metrics exposes Prometheus instrumentation for the auto-settle routines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autosettle"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics holds every collector on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	marketLoads      *prometheus.CounterVec
	warmPasses       *prometheus.CounterVec
	warmDuration     prometheus.Histogram
	warmInFlight     prometheus.Gauge
	cacheSize        prometheus.Gauge
	settleTicks      *prometheus.CounterVec
	settleDuration   prometheus.Histogram
	settleTxs        prometheus.Counter
	tokenAccounts    prometheus.Gauge
	lastSettleUnixTs prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		marketLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_loads_total",
			Help:      "Market account loads by outcome.",
		}, []string{"outcome"}),
		warmPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warm_passes_total",
			Help:      "Cache warming ticks by outcome.",
		}, []string{"outcome"}),
		warmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warm_pass_duration_seconds",
			Help:      "Duration of completed cache warming passes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		warmInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warm_in_flight",
			Help:      "1 while a cache warming pass is running.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_cache_size",
			Help:      "Number of markets held in the cache.",
		}),
		settleTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_ticks_total",
			Help:      "Settlement ticks by outcome.",
		}, []string{"outcome"}),
		settleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settle_duration_seconds",
			Help:      "Duration of settlement passes that ran.",
			Buckets:   prometheus.DefBuckets,
		}),
		settleTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_transactions_total",
			Help:      "Settlement transactions submitted.",
		}),
		tokenAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_accounts",
			Help:      "Token accounts held by the connected wallet.",
		}),
		lastSettleUnixTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_settle_timestamp_seconds",
			Help:      "Unix time of the last settlement pass that ran.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.marketLoads,
		m.warmPasses,
		m.warmDuration,
		m.warmInFlight,
		m.cacheSize,
		m.settleTicks,
		m.settleDuration,
		m.settleTxs,
		m.tokenAccounts,
		m.lastSettleUnixTs,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveWarmPass records a warming tick
func (m *Metrics) ObserveWarmPass(outcome string, loaded, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.warmPasses.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.marketLoads.WithLabelValues(OutcomeSuccess).Add(float64(loaded))
	m.marketLoads.WithLabelValues(OutcomeFailure).Add(float64(failed))
	m.warmDuration.Observe(duration.Seconds())
}

// SetWarmInFlight toggles the in-flight gauge
func (m *Metrics) SetWarmInFlight(inFlight bool) {
	if m == nil {
		return
	}
	if inFlight {
		m.warmInFlight.Set(1)
		return
	}
	m.warmInFlight.Set(0)
}

// SetCacheSize records the number of cached markets
func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}

// ObserveSettleTick records a settlement tick
func (m *Metrics) ObserveSettleTick(outcome string, transactions int, duration time.Duration) {
	if m == nil {
		return
	}
	m.settleTicks.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.settleTxs.Add(float64(transactions))
	m.settleDuration.Observe(duration.Seconds())
	m.lastSettleUnixTs.SetToCurrentTime()
}

// SetTokenAccounts records the size of the token account set
func (m *Metrics) SetTokenAccounts(n int) {
	if m == nil {
		return
	}
	m.tokenAccounts.Set(float64(n))
}
