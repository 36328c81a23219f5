/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultQueryDurationBuckets is default buckets for the query duration histogram.
var DefaultQueryDurationBuckets = []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

const queryLabel = "query"

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// QueryDurationBuckets is a list of buckets for the query duration histogram.
	QueryDurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents collector of metrics for SQL queries.
// Long schema changes of an update show up here under their operation annotation.
type PrometheusMetrics struct {
	QueryDurations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new metrics collector with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts is a more configurable version of creating PrometheusMetrics.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.QueryDurationBuckets
	if buckets == nil {
		buckets = DefaultQueryDurationBuckets
	}
	return &PrometheusMetrics{
		QueryDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "db_query_duration_seconds",
			Help:        "A histogram of the SQL query durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{queryLabel}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueryDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueryDurations)
}

// ObserveQueryDuration observes the duration of executing SQL query.
func (pm *PrometheusMetrics) ObserveQueryDuration(query string, duration time.Duration) {
	pm.QueryDurations.With(prometheus.Labels{queryLabel: query}).Observe(duration.Seconds())
}
