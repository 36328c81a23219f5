/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package distrlock provides a distributed lock stored in a SQL table.
// The updater uses it to make sure only one process applies updates to an installation at a time.
package distrlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/retry"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/acronis/go-analyticsdb"
)

// DefaultTableName is the name of the table storing locks.
const DefaultTableName = "distributed_locks"

// MaxKeyLength is the maximum length of a lock key.
const MaxKeyLength = 40

// Default timings of DoExclusively.
const (
	DefaultLockTTL        = time.Minute
	DefaultReleaseTimeout = 5 * time.Second
)

// Errors returned when the state of the lock row does not allow the requested transition.
var (
	ErrLockAlreadyAcquired = errors.New("distributed lock already acquired")
	ErrLockAlreadyReleased = errors.New("distributed lock already released")
)

// SQLExecutor is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Locker creates locks stored in one table.
type Locker struct {
	table   string
	queries lockQueries
}

// LockerOption is an option for NewLocker.
type LockerOption func(*Locker)

// WithTableName sets the name of the table storing locks.
func WithTableName(name string) LockerOption {
	return func(l *Locker) {
		l.table = name
	}
}

// NewLocker creates a Locker for the dialect.
func NewLocker(dialect analyticsdb.Dialect, options ...LockerOption) (*Locker, error) {
	l := &Locker{table: DefaultTableName}
	for _, opt := range options {
		opt(l)
	}
	q, err := newLockQueries(dialect, l.table)
	if err != nil {
		return nil, err
	}
	l.queries = q
	return l, nil
}

// CreateTableSQL returns the statement creating the locks table.
func (l *Locker) CreateTableSQL() string {
	return l.queries.createTable
}

// DropTableSQL returns the statement dropping the locks table.
func (l *Locker) DropTableSQL() string {
	return l.queries.dropTable
}

// EnsureTable creates the locks table if it does not exist yet.
func (l *Locker) EnsureTable(ctx context.Context, exec SQLExecutor) error {
	if _, err := exec.ExecContext(ctx, l.queries.createTable); err != nil {
		return fmt.Errorf("create distributed locks table: %w", err)
	}
	return nil
}

// NewLock returns a lock for the key. The row of the key is created if needed, the lock is not acquired.
func (l *Locker) NewLock(ctx context.Context, exec SQLExecutor, key string) (*Lock, error) {
	if key == "" {
		return nil, fmt.Errorf("lock key cannot be empty")
	}
	if len(key) > MaxKeyLength {
		return nil, fmt.Errorf("lock key cannot be longer than %d symbols", MaxKeyLength)
	}
	if _, err := exec.ExecContext(ctx, l.queries.insertKey, key); err != nil {
		return nil, fmt.Errorf("init lock with key %s: %w", key, err)
	}
	return &Lock{key: key, queries: &l.queries}, nil
}

// Lock is a lock row in the database. The holder is identified by a random token.
type Lock struct {
	key     string
	token   string
	ttl     time.Duration
	queries *lockQueries
}

// Key returns the key of the lock.
func (lk *Lock) Key() string {
	return lk.key
}

// Token returns the token of the last acquisition.
func (lk *Lock) Token() string {
	return lk.token
}

// Acquire takes the lock for ttl with a new token.
// ErrLockAlreadyAcquired is returned when somebody else holds an unexpired lock.
func (lk *Lock) Acquire(ctx context.Context, exec SQLExecutor, ttl time.Duration) error {
	return lk.AcquireWithToken(ctx, exec, uuid.NewString(), ttl)
}

// AcquireWithToken takes the lock for ttl with the given token.
// Acquiring with the token of the current holder prolongs the lock.
func (lk *Lock) AcquireWithToken(ctx context.Context, exec SQLExecutor, token string, ttl time.Duration) error {
	if err := execOneRow(ctx, exec, lk.queries.acquire, ErrLockAlreadyAcquired,
		token, ttl.Milliseconds(), lk.key, token); err != nil {
		return err
	}
	lk.token = token
	lk.ttl = ttl
	return nil
}

// Extend moves the expiration of the held lock ttl ahead.
// ErrLockAlreadyReleased is returned when the lock has expired or was taken over.
func (lk *Lock) Extend(ctx context.Context, exec SQLExecutor) error {
	return execOneRow(ctx, exec, lk.queries.extend, ErrLockAlreadyReleased, lk.ttl.Milliseconds(), lk.key, lk.token)
}

// Release gives the lock up.
func (lk *Lock) Release(ctx context.Context, exec SQLExecutor) error {
	return execOneRow(ctx, exec, lk.queries.release, ErrLockAlreadyReleased, lk.key, lk.token)
}

func execOneRow(ctx context.Context, exec SQLExecutor, query string, errNoRows error, args ...interface{}) error {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	// The transaction may be rolled back by a canceled context without ExecContext failing.
	if err = ctx.Err(); err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errNoRows
	}
	return nil
}

type doOptions struct {
	lockTTL        time.Duration
	extendInterval time.Duration
	releaseTimeout time.Duration
	acquireRetry   retry.Policy
	logger         log.FieldLogger
}

// DoOption is an option for DoExclusively.
type DoOption func(*doOptions)

// WithLockTTL sets the TTL of the lock.
func WithLockTTL(ttl time.Duration) DoOption {
	return func(o *doOptions) {
		o.lockTTL = ttl
	}
}

// WithPeriodicExtendInterval sets how often the held lock is extended. Half of the TTL by default.
func WithPeriodicExtendInterval(interval time.Duration) DoOption {
	return func(o *doOptions) {
		o.extendInterval = interval
	}
}

// WithReleaseTimeout sets the timeout of releasing the lock.
func WithReleaseTimeout(timeout time.Duration) DoOption {
	return func(o *doOptions) {
		o.releaseTimeout = timeout
	}
}

// WithAcquireRetry makes DoExclusively wait for a lock held by somebody else, retrying by the policy.
func WithAcquireRetry(policy retry.Policy) DoOption {
	return func(o *doOptions) {
		o.acquireRetry = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.FieldLogger) DoOption {
	return func(o *doOptions) {
		o.logger = logger
	}
}

func newDoOptions(options []DoOption) doOptions {
	opts := doOptions{lockTTL: DefaultLockTTL, releaseTimeout: DefaultReleaseTimeout}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.extendInterval == 0 {
		opts.extendInterval = opts.lockTTL / 2
	}
	if opts.logger == nil {
		opts.logger = log.NewDisabledLogger()
	}
	return opts
}

// DoExclusively calls fn while holding the lock.
// The lock is extended in the background and released when fn returns.
// If the lock is lost, the context passed to fn is canceled.
func (lk *Lock) DoExclusively(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error, options ...DoOption) error {
	opts := newDoOptions(options)
	logger := opts.logger.With(log.String("lock_key", lk.key))

	if err := lk.acquire(ctx, db, opts); err != nil {
		return err
	}
	logger = logger.With(log.String("lock_token", lk.token))
	logger.Debug("distributed lock acquired")

	//nolint:contextcheck // the lock must be released even if ctx is canceled
	defer lk.releaseDetached(db, opts.releaseTimeout, logger)

	fnCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		lk.keepAlive(ctx, db, opts.extendInterval, stop, cancelFn, logger)
	}()
	defer func() {
		close(stop)
		<-stopped
	}()

	return fn(fnCtx)
}

func (lk *Lock) acquire(ctx context.Context, db *sql.DB, opts doOptions) error {
	acquireOnce := func() error {
		return analyticsdb.DoInTx(ctx, db, func(tx *sql.Tx) error {
			return lk.Acquire(ctx, tx, opts.lockTTL)
		})
	}
	if opts.acquireRetry == nil {
		return acquireOnce()
	}
	return backoff.Retry(func() error {
		err := acquireOnce()
		if err != nil && !errors.Is(err, ErrLockAlreadyAcquired) {
			return backoff.Permanent(err)
		}
		if err != nil {
			opts.logger.Info("waiting for distributed lock", log.String("lock_key", lk.key))
		}
		return err
	}, backoff.WithContext(opts.acquireRetry.NewBackOff(), ctx))
}

func (lk *Lock) keepAlive(
	ctx context.Context, db *sql.DB, interval time.Duration, stop <-chan struct{}, onLost func(), logger log.FieldLogger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		err := analyticsdb.DoInTx(ctx, db, func(tx *sql.Tx) error {
			return lk.Extend(ctx, tx)
		})
		if err == nil {
			continue
		}
		logger.Error("failed to extend distributed lock", log.Error(err))
		if errors.Is(err, ErrLockAlreadyReleased) {
			onLost()
			return
		}
	}
}

func (lk *Lock) releaseDetached(db *sql.DB, timeout time.Duration, logger log.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := analyticsdb.DoInTx(ctx, db, func(tx *sql.Tx) error {
		return lk.Release(ctx, tx)
	}); err != nil {
		logger.Error("failed to release distributed lock", log.Error(err))
		return
	}
	logger.Debug("distributed lock released")
}

// DoExclusively creates the locks table if needed and calls fn while holding the lock with the key.
func DoExclusively(
	ctx context.Context,
	db *sql.DB,
	dialect analyticsdb.Dialect,
	key string,
	fn func(ctx context.Context) error,
	options ...DoOption,
) error {
	locker, err := NewLocker(dialect)
	if err != nil {
		return fmt.Errorf("create locker: %w", err)
	}
	if err = locker.EnsureTable(ctx, db); err != nil {
		return err
	}
	lock, err := locker.NewLock(ctx, db, key)
	if err != nil {
		return fmt.Errorf("create new lock: %w", err)
	}
	return lock.DoExclusively(ctx, db, fn, options...)
}
