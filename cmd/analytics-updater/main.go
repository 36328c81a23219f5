/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Command analytics-updater applies pending updates to an analytics installation.
//
//	analytics-updater -config config.yml [-dry-run] [-installed-version 3.14.1]
//
// The installed version is read from the database unless given explicitly.
// With -dry-run the statements of the pending updates are printed instead of being executed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/retry"
	"github.com/gocraft/dbr/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/dbrutil"
	"github.com/acronis/go-analyticsdb/instance"
	"github.com/acronis/go-analyticsdb/migration"
	"github.com/acronis/go-analyticsdb/updater"
	"github.com/acronis/go-analyticsdb/updates"
)

const (
	metricsNamespace = "analytics"
	lockWaitInterval = time.Second
)

func main() {
	if err := runUpdates(); err != nil {
		stdlog.Fatal(err)
	}
}

func runUpdates() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to the YAML config file")
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "print the statements of pending updates without executing them")
	var installedVersion string
	flag.StringVar(&installedVersion, "installed-version", "", "installed version, read from the database if empty")
	flag.Parse()

	if cfgPath == "" {
		return fmt.Errorf("-config flag is required")
	}
	dbCfg := analyticsdb.NewConfig()
	updaterCfg := &updaterConfig{}
	if err := config.NewDefaultLoader("").LoadFromFile(cfgPath, config.DataTypeYAML, dbCfg, updaterCfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: updaterCfg.LogLevel})
	defer loggerClose()

	metricsOpts := analyticsdb.PrometheusMetricsOpts{Namespace: metricsNamespace}
	queryMetrics := analyticsdb.NewPrometheusMetricsWithOpts(metricsOpts)
	updateMetrics := updater.NewPrometheusMetricsWithOpts(metricsOpts)
	registry := prometheus.NewRegistry()
	registry.MustRegister(queryMetrics.QueryDurations, updateMetrics.Operations, updateMetrics.UpdateDurations)

	conn, err := dbrutil.Open(dbCfg, true, dbrutil.NewCompositeReceiver([]dbr.EventReceiver{
		dbrutil.NewQueryMetricsEventReceiver(queryMetrics, updater.AnnotationPrefix),
		dbrutil.NewSlowQueryLogEventReceiver(logger, updaterCfg.SlowQueryThreshold, updater.AnnotationPrefix),
	}))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	settings, err := instance.LoadSettings(updaterCfg.SettingsPath)
	if err != nil {
		return err
	}
	inspector, err := instance.NewInspector(conn, dbCfg.Dialect, dbCfg.TablePrefix, settings,
		instance.WithTxIsolationLevel(dbCfg.TxIsolationLevel()))
	if err != nil {
		return fmt.Errorf("create inspector: %w", err)
	}
	updaterOpts := []updater.Option{updater.WithLockTTL(updaterCfg.LockTTL), updater.WithMetrics(updateMetrics)}
	if updaterCfg.LockWait > 0 {
		attempts := int(updaterCfg.LockWait / lockWaitInterval)
		updaterOpts = append(updaterOpts, updater.WithLockWait(retry.NewConstantBackoffPolicy(lockWaitInterval, attempts)))
	}
	u, err := updater.New(conn, dbCfg.Dialect, logger, instance.NewPluginManager(settings), settings, updaterOpts...)
	if err != nil {
		return fmt.Errorf("create updater: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if installedVersion == "" {
		if installedVersion, err = inspector.CoreVersion(ctx); err != nil {
			return fmt.Errorf("get installed version: %w", err)
		}
	}
	pending, err := updates.Pending(installedVersion)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Found %d pending update(s)", len(pending)), log.String("installed_version", installedVersion))

	if dryRun {
		return printPlan(ctx, os.Stdout, inspector, u, dbCfg.Dialect, pending)
	}

	applied, err := u.ApplyPending(ctx, inspector, pending...)
	if updaterCfg.MetricsTextfile != "" {
		if writeErr := prometheus.WriteToTextfile(updaterCfg.MetricsTextfile, registry); writeErr != nil {
			logger.Error("failed to write metrics", log.Error(writeErr))
		}
	}
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Applied %d update(s)", applied))
	return nil
}

// printPlan prints the statements of every pending update.
// All updates are declared against the current state, so later updates may differ when actually applied.
func printPlan(
	ctx context.Context, w io.Writer, inspector *instance.Inspector, u *updater.Updater,
	dialect analyticsdb.Dialect, pending []updates.Update,
) error {
	snapshot, err := inspector.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	for _, update := range pending {
		ops := update.Operations(snapshot, migration.NewFactory(snapshot.Prefix, dialect))
		plan, err := u.Plan(ops)
		if err != nil {
			return fmt.Errorf("plan update %s: %w", update.Version(), err)
		}
		if _, err = fmt.Fprintf(w, "-- %s\n", updates.Identity(update)); err != nil {
			return err
		}
		for _, line := range plan {
			if _, err = fmt.Fprintln(w, line+";"); err != nil {
				return err
			}
		}
	}
	return nil
}
