// Package metrics exposes Prometheus metrics for snapshots and risk decisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

const namespace = "riskgate"

// Metrics holds the Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	DecisionsTotal   *prometheus.CounterVec // labels: result=approved|rejected|hold
	RejectionsTotal  *prometheus.CounterVec // labels: signal
	PositionSizeUSD  prometheus.Histogram
	SnapshotDuration prometheus.Histogram
	SnapshotsTotal   *prometheus.CounterVec // labels: source=computed|cache
	VolumeRatio      *prometheus.GaugeVec   // labels: pair
	FetchErrors      prometheus.Counter
}

// New registers all collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Risk evaluations by result",
		}, []string{"result"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Rejected proposals by blocking gate signal",
		}, []string{"signal"}),
		PositionSizeUSD: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "position_size_usd",
			Help:      "Approved position size in USD",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_compute_seconds",
			Help:      "Time to fetch candles and compute an indicator snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Indicator snapshots served by source",
		}, []string{"source"}),
		VolumeRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_ratio",
			Help:      "Latest complete-candle volume ratio",
		}, []string{"pair"}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candle_fetch_errors_total",
			Help:      "Failed candle fetches after retries",
		}),
	}

	m.registry.MustRegister(
		m.DecisionsTotal,
		m.RejectionsTotal,
		m.PositionSizeUSD,
		m.SnapshotDuration,
		m.SnapshotsTotal,
		m.VolumeRatio,
		m.FetchErrors,
		collectors.NewGoCollector(),
	)

	return m
}

// ObserveDecision records a risk decision.
func (m *Metrics) ObserveDecision(d domain.RiskDecision) {
	switch {
	case d.Blocked():
		m.DecisionsTotal.WithLabelValues("rejected").Inc()
		m.RejectionsTotal.WithLabelValues(d.BlockingGate).Inc()
	case d.Proposal.Side == domain.SideHold || d.Proposal.Side == "":
		m.DecisionsTotal.WithLabelValues("hold").Inc()
	default:
		m.DecisionsTotal.WithLabelValues("approved").Inc()
		m.PositionSizeUSD.Observe(d.PositionSizeUSD)
	}
}

// ObserveSnapshot records a served snapshot.
func (m *Metrics) ObserveSnapshot(pair domain.Pair, snap domain.IndicatorSnapshot, cached bool, took time.Duration) {
	source := "computed"
	if cached {
		source = "cache"
	} else {
		m.SnapshotDuration.Observe(took.Seconds())
	}
	m.SnapshotsTotal.WithLabelValues(source).Inc()
	m.VolumeRatio.WithLabelValues(pair.String()).Set(snap.VolumeRatio)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
