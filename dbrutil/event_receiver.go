/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrutil

import (
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-analyticsdb"
)

// CompositeReceiver represents a composition of multiple dbr.EventReceiver.
type CompositeReceiver struct {
	Receivers []dbr.EventReceiver
}

var _ dbr.EventReceiver = (*CompositeReceiver)(nil)

// NewCompositeReceiver creates a new CompositeReceiver.
func NewCompositeReceiver(receivers []dbr.EventReceiver) *CompositeReceiver {
	return &CompositeReceiver{receivers}
}

// Event receives a simple notification when various events occur.
func (r *CompositeReceiver) Event(eventName string) {
	for _, recv := range r.Receivers {
		recv.Event(eventName)
	}
}

// EventKv receives a notification when various events occur along with optional key/value data.
func (r *CompositeReceiver) EventKv(eventName string, kvs map[string]string) {
	for _, recv := range r.Receivers {
		recv.EventKv(eventName, kvs)
	}
}

// EventErr receives a notification of an error if one occurs.
func (r *CompositeReceiver) EventErr(eventName string, err error) error {
	for _, recv := range r.Receivers {
		_ = recv.EventErr(eventName, err)
	}
	return err
}

// EventErrKv receives a notification of an error if one occurs along with optional key/value data.
func (r *CompositeReceiver) EventErrKv(eventName string, err error, kvs map[string]string) error {
	for _, recv := range r.Receivers {
		_ = recv.EventErrKv(eventName, err, kvs)
	}
	return err
}

// Timing receives the time an event took to happen.
func (r *CompositeReceiver) Timing(eventName string, nanoseconds int64) {
	for _, recv := range r.Receivers {
		recv.Timing(eventName, nanoseconds)
	}
}

// TimingKv receives the time an event took to happen along with optional key/value data.
func (r *CompositeReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	for _, recv := range r.Receivers {
		recv.TimingKv(eventName, nanoseconds, kvs)
	}
}

// QueryMetricsEventReceiver implements the dbr.EventReceiver interface and collects metrics about SQL queries.
// To be collected SQL query should be annotated (comment starting with specified prefix).
type QueryMetricsEventReceiver struct {
	*dbr.NullEventReceiver
	metrics          *analyticsdb.PrometheusMetrics
	annotationPrefix string
}

// NewQueryMetricsEventReceiver creates a new QueryMetricsEventReceiver.
func NewQueryMetricsEventReceiver(metrics *analyticsdb.PrometheusMetrics, annotationPrefix string) *QueryMetricsEventReceiver {
	return &QueryMetricsEventReceiver{
		NullEventReceiver: &dbr.NullEventReceiver{},
		metrics:           metrics,
		annotationPrefix:  annotationPrefix,
	}
}

// TimingKv is called when SQL query is executed. It receives the duration of how long the query takes,
// parses annotation from SQL comment and collects metrics.
func (er *QueryMetricsEventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	annotation := ParseAnnotation(kvs["sql"], er.annotationPrefix)
	if annotation == "" {
		return
	}
	er.metrics.ObserveQueryDuration(annotation, time.Duration(nanoseconds))
}

// SlowQueryLogEventReceiver implements the dbr.EventReceiver interface and logs long SQL queries.
// To be logged SQL query should be annotated (comment starting with specified prefix).
type SlowQueryLogEventReceiver struct {
	*dbr.NullEventReceiver
	logger           log.FieldLogger
	annotationPrefix string
	longQueryTime    time.Duration
}

// NewSlowQueryLogEventReceiver creates a new SlowQueryLogEventReceiver.
func NewSlowQueryLogEventReceiver(logger log.FieldLogger, longQueryTime time.Duration, annotationPrefix string) *SlowQueryLogEventReceiver {
	return &SlowQueryLogEventReceiver{
		NullEventReceiver: &dbr.NullEventReceiver{},
		logger:            logger,
		annotationPrefix:  annotationPrefix,
		longQueryTime:     longQueryTime,
	}
}

// TimingKv is called when SQL query is executed. It receives the duration of how long the query takes,
// parses annotation from SQL comment and logs last if query is slow.
func (er *SlowQueryLogEventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	annotation := ParseAnnotation(kvs["sql"], er.annotationPrefix)
	if annotation == "" {
		return
	}
	if time.Duration(nanoseconds) < er.longQueryTime {
		return
	}
	er.logger.Warn("slow SQL query",
		log.String("annotation", annotation),
		log.Int64("duration_ms", time.Duration(nanoseconds).Milliseconds()),
	)
}
