package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	sessionsTotal  prom.Counter
	evictionsTotal *prom.CounterVec
	activeSessions prom.Gauge
	watchEvents    *prom.CounterVec
	regenDuration  prom.Histogram
	regenOutcomes  *prom.CounterVec
	artifactSize   prom.Gauge
	sweepDuration  prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.sessionsTotal = prom.NewCounter(prom.CounterOpts{
			Namespace: "previewd",
			Name:      "sessions_created_total",
			Help:      "Total sessions registered",
		})
		pr.evictionsTotal = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "previewd",
			Name:      "sessions_evicted_total",
			Help:      "Session evictions by result",
		}, []string{"result"})
		pr.activeSessions = prom.NewGauge(prom.GaugeOpts{
			Namespace: "previewd",
			Name:      "active_sessions",
			Help:      "Currently registered sessions",
		})
		pr.watchEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "previewd",
			Name:      "watch_events_total",
			Help:      "Filesystem change events by debounce decision",
		}, []string{"decision"})
		pr.regenDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "previewd",
			Name:      "regeneration_duration_seconds",
			Help:      "Duration of artifact regeneration",
			Buckets:   prom.DefBuckets,
		})
		pr.regenOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "previewd",
			Name:      "regeneration_outcomes_total",
			Help:      "Regeneration outcomes by final status",
		}, []string{"outcome"})
		pr.artifactSize = prom.NewGauge(prom.GaugeOpts{
			Namespace: "previewd",
			Name:      "artifact_size_bytes",
			Help:      "Size of the most recently generated artifact",
		})
		pr.sweepDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "previewd",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of expiry sweeper passes",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.sessionsTotal, pr.evictionsTotal, pr.activeSessions,
			pr.watchEvents, pr.regenDuration, pr.regenOutcomes, pr.artifactSize, pr.sweepDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncSessionCreated() {
	if p == nil || p.sessionsTotal == nil {
		return
	}
	p.sessionsTotal.Inc()
}

func (p *PrometheusRecorder) IncSessionEvicted(success bool) {
	if p == nil || p.evictionsTotal == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	p.evictionsTotal.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetActiveSessions(n int) {
	if p == nil || p.activeSessions == nil {
		return
	}
	p.activeSessions.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchEvent(admitted bool) {
	if p == nil || p.watchEvents == nil {
		return
	}
	decision := "admitted"
	if !admitted {
		decision = "suppressed"
	}
	p.watchEvents.WithLabelValues(decision).Inc()
}

func (p *PrometheusRecorder) ObserveRegenDuration(d time.Duration) {
	if p == nil || p.regenDuration == nil {
		return
	}
	p.regenDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRegenOutcome(outcome RegenOutcome) {
	if p == nil || p.regenOutcomes == nil {
		return
	}
	p.regenOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetArtifactSize(sizeBytes int64) {
	if p == nil || p.artifactSize == nil {
		return
	}
	p.artifactSize.Set(float64(sizeBytes))
}

func (p *PrometheusRecorder) ObserveSweepDuration(d time.Duration) {
	if p == nil || p.sweepDuration == nil {
		return
	}
	p.sweepDuration.Observe(d.Seconds())
}
