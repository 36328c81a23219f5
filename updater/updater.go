/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package updater executes the operations declared by analytics installation updates.
//
// Database operations are rendered for the connection dialect and executed one by one.
// Errors meaning that the target state is already reached (an existing table, a missing
// column to drop and so on) are logged and skipped, so a partially applied update can be re-run.
// Applied updates are recorded in a tracking table and never run twice.
package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/retry"
	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/dbrutil"
	"github.com/acronis/go-analyticsdb/distrlock"
	"github.com/acronis/go-analyticsdb/migration"
	"github.com/acronis/go-analyticsdb/updates"
)

// LockKey is the key of the distributed lock serializing update runs.
const LockKey = "analytics_updates"

// AnnotationPrefix starts the annotation of every statement executed by the updater.
// Pass it to the dbrutil event receivers to get per-operation metrics and slow query logs.
const AnnotationPrefix = "analytics_update"

// DefaultLockTTL is the default TTL of the distributed lock.
const DefaultLockTTL = time.Minute

// PluginManager activates, deactivates and uninstalls plugins.
type PluginManager interface {
	Activate(ctx context.Context, plugin string) error
	Deactivate(ctx context.Context, plugin string) error
	Uninstall(ctx context.Context, plugin string) error
}

// ConfigWriter changes the installation config. Changes are persisted by Save.
type ConfigWriter interface {
	Set(section, key, value string) error
	Save() error
}

// SnapshotSource provides the state of the installation for ApplyPending.
type SnapshotSource interface {
	updates.LocationProviderStore
	LoadSnapshot(ctx context.Context) (*updates.Snapshot, error)
	SetCoreVersion(ctx context.Context, version string) error
}

// Updater runs update operations and tracks applied updates.
type Updater struct {
	conn      *dbr.Connection
	sess      *dbr.Session
	dialect   analyticsdb.Dialect
	logger    log.FieldLogger
	plugins   PluginManager
	settings  ConfigWriter
	tableName string
	lockTTL   time.Duration
	lockWait  retry.Policy
	metrics   *PrometheusMetrics
}

// Option is a functional option for Updater configuration.
type Option func(*Updater)

// WithTableName sets a custom tracking table name.
func WithTableName(name string) Option {
	return func(u *Updater) {
		u.tableName = name
	}
}

// WithLockTTL sets the TTL of the distributed lock acquired by ApplyPending.
func WithLockTTL(ttl time.Duration) Option {
	return func(u *Updater) {
		u.lockTTL = ttl
	}
}

// WithLockWait makes ApplyPending wait for the lock held by another process, retrying by the policy.
func WithLockWait(policy retry.Policy) Option {
	return func(u *Updater) {
		u.lockWait = policy
	}
}

// WithMetrics sets the collector of operation and update duration metrics.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(u *Updater) {
		u.metrics = metrics
	}
}

// New creates a new Updater.
func New(
	conn *dbr.Connection,
	dialect analyticsdb.Dialect,
	logger log.FieldLogger,
	plugins PluginManager,
	settings ConfigWriter,
	opts ...Option,
) (*Updater, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if plugins == nil {
		return nil, fmt.Errorf("plugin manager cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("config writer cannot be nil")
	}
	if _, err := getCreateTableSQL(dialect, DefaultTableName); err != nil {
		return nil, err
	}

	u := &Updater{
		conn:      conn,
		sess:      conn.NewSession(nil),
		dialect:   dialect,
		logger:    logger,
		plugins:   plugins,
		settings:  settings,
		tableName: DefaultTableName,
		lockTTL:   DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// IsApplied reports whether the identity is recorded as applied.
func (u *Updater) IsApplied(ctx context.Context, identity string) (bool, error) {
	if err := ensureTable(ctx, u.sess, u.dialect, u.tableName); err != nil {
		return false, fmt.Errorf("ensure updates table: %w", err)
	}
	return u.isApplied(ctx, identity)
}

func (u *Updater) isApplied(ctx context.Context, identity string) (bool, error) {
	var id string
	err := u.sess.Select("id").From(dbr.I(u.tableName)).Where("id = ?", identity).LoadOneContext(ctx, &id)
	if err != nil {
		if errors.Is(err, dbr.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("query applied update %s: %w", identity, err)
	}
	return true, nil
}

// Run executes the operations in order and records the identity as applied.
// It returns the number of executed operations, 0 if the identity is already applied.
// On failure the returned number is the count of operations executed before the failed one.
func (u *Updater) Run(ctx context.Context, identity string, ops []migration.Operation) (int, error) {
	return u.run(ctx, identity, ops, nil)
}

// run is Run with a hook called after the operations and before the identity is recorded.
// A failed hook leaves the identity unrecorded, so the next run executes everything again.
func (u *Updater) run(
	ctx context.Context, identity string, ops []migration.Operation, afterOps func(ctx context.Context) error,
) (int, error) {
	if err := ensureTable(ctx, u.sess, u.dialect, u.tableName); err != nil {
		return 0, fmt.Errorf("ensure updates table: %w", err)
	}
	applied, err := u.isApplied(ctx, identity)
	if err != nil {
		return 0, err
	}
	logger := u.logger.With(log.String("identity", identity))
	if applied {
		logger.Info("update is already applied")
		return 0, nil
	}

	logger.Info(fmt.Sprintf("Applying %d operation(s)", len(ops)))
	startTime := time.Now()
	count, err := u.execute(ctx, identity, ops, logger)
	if err == nil && afterOps != nil {
		err = afterOps(ctx)
	}
	if err != nil {
		u.metrics.observeUpdateDuration(identity, ResultFailed, time.Since(startTime))
		return count, err
	}
	if err = u.record(ctx, identity); err != nil {
		return count, fmt.Errorf("record update %s: %w", identity, err)
	}
	u.metrics.observeUpdateDuration(identity, ResultApplied, time.Since(startTime))
	logger.Info("update applied", log.Int("operations", count), log.Duration("duration", time.Since(startTime)))
	return count, nil
}

func (u *Updater) execute(ctx context.Context, identity string, ops []migration.Operation, logger log.FieldLogger) (int, error) {
	settingsChanged := false
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		opLogger := logger.With(log.Int("operation", i), log.String("description", op.String()))
		changed, err := u.apply(ctx, annotation(identity, i), op, opLogger)
		if err != nil {
			u.metrics.incOperations(string(op.Kind()), ResultFailed)
			return i, fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
		settingsChanged = settingsChanged || changed
	}
	if settingsChanged {
		if err := u.settings.Save(); err != nil {
			return len(ops), fmt.Errorf("save settings: %w", err)
		}
	}
	return len(ops), nil
}

// apply executes a single operation and reports whether it changed the settings.
func (u *Updater) apply(ctx context.Context, ann string, op migration.Operation, logger log.FieldLogger) (bool, error) {
	switch o := op.(type) {
	case migration.DBOperation:
		return false, u.applyDB(ctx, ann, o, logger)
	case *migration.PluginOperation:
		if err := u.applyPlugin(ctx, o); err != nil {
			return false, err
		}
	case *migration.ConfigOperation:
		if err := u.settings.Set(o.Section, o.Key, o.Value); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("%w: unsupported kind %s", migration.ErrInvalidOperation, op.Kind())
	}
	u.metrics.incOperations(string(op.Kind()), ResultApplied)
	logger.Info("operation applied")
	return true, nil
}

func (u *Updater) applyDB(ctx context.Context, ann string, op migration.DBOperation, logger log.FieldLogger) error {
	statements, err := op.Render()
	if err != nil {
		return err
	}
	if len(statements) == 0 {
		u.metrics.incOperations(string(op.Kind()), ResultSkipped)
		logger.Debug("operation skipped, nothing to do for the dialect")
		return nil
	}
	result := ResultApplied
	for _, stmt := range statements {
		_, execErr := u.sess.UpdateBySql(dbrutil.AnnotateQuery(ann, stmt.Query), stmt.Args...).ExecContext(ctx)
		if execErr == nil {
			continue
		}
		class, ok := ignoredClass(u.dialect, op, execErr)
		if !ok {
			return execErr
		}
		result = ResultIgnored
		logger.Warn("operation error ignored", log.String("error_class", class.String()), log.Error(execErr))
	}
	u.metrics.incOperations(string(op.Kind()), result)
	if result == ResultApplied {
		logger.Info("operation applied")
	}
	return nil
}

func (u *Updater) applyPlugin(ctx context.Context, op *migration.PluginOperation) error {
	switch op.Kind() {
	case migration.KindActivatePlugin:
		return u.plugins.Activate(ctx, op.Plugin)
	case migration.KindDeactivatePlugin:
		return u.plugins.Deactivate(ctx, op.Plugin)
	case migration.KindUninstallPlugin:
		return u.plugins.Uninstall(ctx, op.Plugin)
	}
	return fmt.Errorf("%w: unsupported plugin operation %s", migration.ErrInvalidOperation, op.Kind())
}

func (u *Updater) record(ctx context.Context, identity string) error {
	_, err := u.sess.InsertInto(u.tableName).Columns("id", "applied_at").
		Values(identity, time.Now().UTC().Format(appliedAtLayout)).ExecContext(ctx)
	return err
}

// Plan renders the operations without executing them.
// Each database statement is returned with its arguments interpolated;
// other operations and operations with nothing to do are returned as SQL comments.
func (u *Updater) Plan(ops []migration.Operation) ([]string, error) {
	var plan []string
	for i, op := range ops {
		dbOp, ok := op.(migration.DBOperation)
		if !ok {
			plan = append(plan, "-- "+op.String())
			continue
		}
		statements, err := dbOp.Render()
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
		if len(statements) == 0 {
			plan = append(plan, "-- "+op.String()+": nothing to do")
			continue
		}
		for _, stmt := range statements {
			query, err := dbr.InterpolateForDialect(stmt.Query, stmt.Args, u.conn.Dialect)
			if err != nil {
				return nil, fmt.Errorf("operation %d (%s): interpolate: %w", i, op, err)
			}
			plan = append(plan, query)
		}
	}
	return plan, nil
}

// ApplyPending applies the updates in the given order under the distributed lock.
// Every update is declared against a fresh snapshot of the installation.
// After the operations the update's AfterApply is called and the core version is set;
// the update is recorded as applied only when both succeed.
// It returns the number of applied updates.
func (u *Updater) ApplyPending(ctx context.Context, source SnapshotSource, pending ...updates.Update) (int, error) {
	if len(pending) == 0 {
		u.logger.Info("no pending updates")
		return 0, nil
	}
	applied := 0
	err := distrlock.DoExclusively(ctx, u.conn.DB, u.dialect, LockKey, func(ctx context.Context) error {
		for _, update := range pending {
			ok, err := u.applyUpdate(ctx, source, update)
			if err != nil {
				return fmt.Errorf("apply update %s: %w", update.Version(), err)
			}
			if ok {
				applied++
			}
		}
		return nil
	}, u.lockOptions()...)
	return applied, err
}

func (u *Updater) lockOptions() []distrlock.DoOption {
	opts := []distrlock.DoOption{distrlock.WithLockTTL(u.lockTTL), distrlock.WithLogger(u.logger)}
	if u.lockWait != nil {
		opts = append(opts, distrlock.WithAcquireRetry(u.lockWait))
	}
	return opts
}

func (u *Updater) applyUpdate(ctx context.Context, source SnapshotSource, update updates.Update) (bool, error) {
	identity := updates.Identity(update)
	isApplied, err := u.IsApplied(ctx, identity)
	if err != nil {
		return false, err
	}
	if isApplied {
		u.logger.Info("update is already applied", log.String("identity", identity))
		return false, nil
	}

	snapshot, err := source.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	ops := update.Operations(snapshot, migration.NewFactory(snapshot.Prefix, u.dialect))
	_, err = u.run(ctx, identity, ops, func(ctx context.Context) error {
		if hookErr := update.AfterApply(ctx, source); hookErr != nil {
			return fmt.Errorf("after apply: %w", hookErr)
		}
		if hookErr := source.SetCoreVersion(ctx, update.Version()); hookErr != nil {
			return fmt.Errorf("set core version: %w", hookErr)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func annotation(identity string, index int) string {
	return fmt.Sprintf("%s:%s:%d", AnnotationPrefix, identity, index)
}
