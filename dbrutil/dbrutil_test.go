/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrutil

import (
	"context"
	"testing"
	"time"

	"github.com/acronis/go-appkit/log/logtest"
	"github.com/gocraft/dbr/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
	_ "github.com/acronis/go-analyticsdb/sqlite"
)

func TestAnnotateQuery(t *testing.T) {
	require.Equal(t, "SELECT 1", AnnotateQuery("", "SELECT 1"))
	require.Equal(t, "/* analytics_update:4.0.0-b1:3 */ SELECT 1", AnnotateQuery("analytics_update:4.0.0-b1:3", "SELECT 1"))
	require.Equal(t, "/* bad  */ SELECT 1", AnnotateQuery("bad */", "SELECT 1"))
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		query  string
		prefix string
		want   string
	}{
		{query: "/* analytics_update:4.0.0-b1:3 */ ALTER TABLE t DROP COLUMN c", prefix: "analytics_", want: "analytics_update:4.0.0-b1:3"},
		{query: "  /* analytics_update */ SELECT 1", prefix: "analytics_", want: "analytics_update"},
		{query: "/* other */ SELECT 1", prefix: "analytics_", want: ""},
		{query: "SELECT 1 /* analytics_update */", prefix: "analytics_", want: ""},
		{query: "/* analytics_update SELECT 1", prefix: "analytics_", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			require.Equal(t, tt.want, ParseAnnotation(tt.query, tt.prefix))
		})
	}
}

func TestOpen(t *testing.T) {
	cfg := analyticsdb.NewDefaultConfig()
	cfg.Dialect = analyticsdb.DialectSQLite
	cfg.SQLite.Path = ":memory:"

	metrics := analyticsdb.NewPrometheusMetrics()
	logRecorder := logtest.NewRecorder()
	conn, err := Open(cfg, true, NewCompositeReceiver([]dbr.EventReceiver{
		NewQueryMetricsEventReceiver(metrics, "analytics_"),
		NewSlowQueryLogEventReceiver(logRecorder, 0, "analytics_"),
	}))
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	sess := conn.NewSession(nil)
	_, err = sess.UpdateBySql(AnnotateQuery("analytics_test", "CREATE TABLE t (id INTEGER)")).ExecContext(context.Background())
	require.NoError(t, err)
	_, err = sess.UpdateBySql("INSERT INTO t (id) VALUES (?)", 1).ExecContext(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, testutil.CollectAndCount(metrics.QueryDurations))
	require.Len(t, logRecorder.Entries(), 1)

	cfg.Dialect = "oracle"
	_, err = Open(cfg, false, nil)
	require.EqualError(t, err, `unsupported dialect "oracle"`)
}

func TestSlowQueryLogEventReceiver(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	receiver := NewSlowQueryLogEventReceiver(logRecorder, time.Second, "analytics_")

	receiver.TimingKv("dbr.exec", int64(2*time.Second), map[string]string{"sql": "/* analytics_update */ ALTER TABLE t ADD COLUMN c INT"})
	receiver.TimingKv("dbr.exec", int64(10*time.Millisecond), map[string]string{"sql": "/* analytics_update */ SELECT 1"})
	receiver.TimingKv("dbr.exec", int64(2*time.Second), map[string]string{"sql": "SELECT 1"})

	entries := logRecorder.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "slow SQL query", entries[0].Text)
}

func TestQueryMetricsEventReceiver(t *testing.T) {
	metrics := analyticsdb.NewPrometheusMetrics()
	receiver := NewQueryMetricsEventReceiver(metrics, "analytics_")

	receiver.TimingKv("dbr.exec", int64(time.Second), map[string]string{"sql": "/* analytics_update:4.0.0-b1:0 */ SELECT 1"})
	receiver.TimingKv("dbr.exec", int64(time.Second), map[string]string{"sql": "/* analytics_update:4.0.0-b1:1 */ SELECT 1"})
	receiver.TimingKv("dbr.exec", int64(time.Second), map[string]string{"sql": "SELECT 1"})

	require.Equal(t, 2, testutil.CollectAndCount(metrics.QueryDurations))
}
