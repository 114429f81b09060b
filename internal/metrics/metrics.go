// Package metrics defines the Prometheus collectors for navigation queries
// and indexing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes.
const (
	OutcomeExact       = "exact"
	OutcomeApproximate = "approximate"
	OutcomeType        = "type"
	OutcomeNone        = "none"
)

// Recorder records engine metrics. A nil *Recorder discards everything, so
// callers never need to check whether metrics are enabled.
type Recorder struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	indexedFiles  prometheus.Counter
	skippedFiles  prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfind_queries_total",
			Help: "Navigation queries answered, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfind_query_seconds",
			Help:    "Time spent answering a navigation query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		indexedFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "wayfind_indexed_files_total",
			Help: "Files parsed and written to the symbol index.",
		}),
		skippedFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "wayfind_skipped_files_total",
			Help: "Files skipped during indexing because their content was unchanged.",
		}),
	}
}

// ObserveQuery records one query of op that finished with outcome.
func (r *Recorder) ObserveQuery(op, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.queries.WithLabelValues(op, outcome).Inc()
	r.queryDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// FileIndexed counts one indexed file.
func (r *Recorder) FileIndexed() {
	if r == nil {
		return
	}
	r.indexedFiles.Inc()
}

// FileSkipped counts one file skipped as unchanged.
func (r *Recorder) FileSkipped() {
	if r == nil {
		return
	}
	r.skippedFiles.Inc()
}
