package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for lookups and range table synchronization.
type Metrics struct {
	Lookups      *prometheus.CounterVec
	MemoHits     prometheus.Counter
	Syncs        *prometheus.CounterVec
	SyncDuration prometheus.Histogram
	TableGroups  prometheus.Gauge
}

// New creates a Metrics instance with all metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isbn_lookups_total",
			Help: "Total number of ISBN lookups by outcome",
		}, []string{"status"}),
		MemoHits: f.NewCounter(prometheus.CounterOpts{
			Name: "isbn_lookup_memo_hits_total",
			Help: "Total number of lookups answered from the memo",
		}),
		Syncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "isbn_range_syncs_total",
			Help: "Total number of range table synchronizations by result",
		}, []string{"result"}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "isbn_range_sync_duration_seconds",
			Help:    "Duration of range table synchronizations",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TableGroups: f.NewGauge(prometheus.GaugeOpts{
			Name: "isbn_range_table_groups",
			Help: "Number of registration groups in the active range table",
		}),
	}
}

// ObserveLookup records a lookup outcome.
func (m *Metrics) ObserveLookup(status string, memoHit bool) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(status).Inc()
	if memoHit {
		m.MemoHits.Inc()
	}
}

// ObserveSync records the result and duration of a synchronization.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSync(start time.Time, result string) {
	if m == nil {
		return
	}
	m.Syncs.WithLabelValues(result).Inc()
	m.SyncDuration.Observe(time.Since(start).Seconds())
}

// SetTableGroups records the size of the active range table.
func (m *Metrics) SetTableGroups(n int) {
	if m == nil {
		return
	}
	m.TableGroups.Set(float64(n))
}
