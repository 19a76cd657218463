package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes scanner metrics on its own registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	signals       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	lastCycle     prometheus.Gauge
}

// New creates a recorder with a fresh registry that also carries the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_fetch_total",
			Help: "Upstream history requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		fetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scanner_fetch_duration_seconds",
			Help:    "Latency of upstream history requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_cache_lookups_total",
			Help: "Series cache lookups by result",
		}, []string{"result"}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_cycles_total",
			Help: "Completed scan cycles by status",
		}, []string{"status"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_cycle_duration_seconds",
			Help:    "Wall time of a full scan cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_total",
			Help: "Signals emitted by detector",
		}, []string{"detector"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_failures_total",
			Help: "Failures by detector and scope (instrument or detector)",
		}, []string{"detector", "scope"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_notifications_total",
			Help: "Outbound notifications by outcome",
		}, []string{"outcome"}),
		lastCycle: f.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
	}
}

// Registry returns the registry to serve.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordFetch records one upstream call.
func (r *Recorder) RecordFetch(provider, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(provider, outcome).Inc()
	r.fetchLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCycle records a finished cycle.
func (r *Recorder) RecordCycle(status string, d time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(status).Inc()
	r.cycleDuration.Observe(d.Seconds())
	r.lastCycle.Set(float64(finished.Unix()))
}

// RecordSignals adds n emitted signals for detector.
func (r *Recorder) RecordSignals(detector string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.signals.WithLabelValues(detector).Add(float64(n))
}

// RecordFailure counts a failure at the given scope.
func (r *Recorder) RecordFailure(detector, scope string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(detector, scope).Inc()
}

// RecordNotification counts a notification attempt.
func (r *Recorder) RecordNotification(outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome).Inc()
}
