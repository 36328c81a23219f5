/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updater

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-analyticsdb"
)

// Operation results reported in metrics.
const (
	ResultApplied = "applied"
	ResultIgnored = "ignored"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

const (
	kindLabel     = "kind"
	resultLabel   = "result"
	identityLabel = "identity"
)

// PrometheusMetrics represents collector of metrics for update runs.
type PrometheusMetrics struct {
	Operations      *prometheus.CounterVec
	UpdateDurations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new metrics collector with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(analyticsdb.PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts is a more configurable version of creating PrometheusMetrics.
// QueryDurationBuckets of the options are used for the update duration histogram.
func NewPrometheusMetricsWithOpts(opts analyticsdb.PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.QueryDurationBuckets
	if buckets == nil {
		buckets = analyticsdb.DefaultQueryDurationBuckets
	}
	return &PrometheusMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "update_operations_total",
			Help:        "Number of executed update operations.",
			ConstLabels: opts.ConstLabels,
		}, []string{kindLabel, resultLabel}),
		UpdateDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "update_duration_seconds",
			Help:        "A histogram of the update run durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{identityLabel, resultLabel}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Operations, pm.UpdateDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Operations)
	prometheus.Unregister(pm.UpdateDurations)
}

func (pm *PrometheusMetrics) incOperations(kind, result string) {
	if pm == nil {
		return
	}
	pm.Operations.With(prometheus.Labels{kindLabel: kind, resultLabel: result}).Inc()
}

func (pm *PrometheusMetrics) observeUpdateDuration(identity, result string, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.UpdateDurations.With(prometheus.Labels{identityLabel: identity, resultLabel: result}).Observe(duration.Seconds())
}
