package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haierkeys/lww-note-sync/internal/merge"
)

const metricsNamespace = "lww_note_sync"

// Metrics 服务端副本的 Prometheus 指标
type Metrics struct {
	SyncRequests   prometheus.Counter
	SyncDuration   prometheus.Histogram
	DeleteRequests prometheus.Counter
	MergeNotes     *prometheus.CounterVec
	LiveNotes      prometheus.Gauge
	Tombstones     prometheus.Gauge
	Errors         *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标，reg 为 nil 时使用默认注册器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		SyncRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_requests_total",
			Help:      "Number of sync batches merged into the server replica.",
		}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sync_duration_seconds",
			Help:      "Time spent merging and persisting one sync batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		DeleteRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delete_requests_total",
			Help:      "Number of delete calls applied to the server replica.",
		}),
		MergeNotes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "merge_notes_total",
			Help:      "Per-note merge outcomes.",
		}, []string{"outcome"}),
		LiveNotes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "replica_notes",
			Help:      "Live notes held by the server replica.",
		}),
		Tombstones: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "replica_tombstones",
			Help:      "Tombstones held by the server replica.",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "replica_errors_total",
			Help:      "Failed replica operations.",
		}, []string{"op"}),
	}
}

func (m *Metrics) observeMerge(res merge.Result) {
	if m == nil {
		return
	}
	m.MergeNotes.WithLabelValues("inserted").Add(float64(res.Inserted))
	m.MergeNotes.WithLabelValues("updated").Add(float64(res.Updated))
	m.MergeNotes.WithLabelValues("kept").Add(float64(res.Kept))
	m.MergeNotes.WithLabelValues("suppressed").Add(float64(res.Suppressed))
}

func (m *Metrics) setSize(stats ReplicaStats) {
	if m == nil {
		return
	}
	m.LiveNotes.Set(float64(stats.Notes))
	m.Tombstones.Set(float64(stats.Tombstones))
}

func (m *Metrics) incError(op string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(op).Inc()
}
