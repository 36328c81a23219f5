/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package analyticsdb provides configuration, connection and transaction helpers for the
// analytics database, together with the table prefix and metrics shared by the updater.
package analyticsdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/acronis/go-appkit/retry"
	"github.com/cenkalti/backoff/v4"
)

// Open opens a database connection pool according to the config and optionally pings it.
// The driver for the configured dialect must be registered by the caller
// (e.g. by importing github.com/go-sql-driver/mysql or the mysql sub-package of this module).
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	SetConnPoolLimits(db, cfg)
	if ping {
		if err = db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}
	return db, nil
}

// SetConnPoolLimits applies the pool settings of the config to the database handle.
func SetConnPoolLimits(db *sql.DB, cfg *Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))
}

// IsRetryable reports whether the error returned by a transactional function may go away on retry.
type IsRetryable func(err error) bool

var retryableFuncs = struct {
	sync.RWMutex
	byDriver map[reflect.Type][]IsRetryable
}{byDriver: make(map[reflect.Type][]IsRetryable)}

// RegisterIsRetryableFunc registers a function that decides whether errors of the driver are retryable.
// Driver sub-packages call it from init().
func RegisterIsRetryableFunc(d driver.Driver, fn IsRetryable) {
	retryableFuncs.Lock()
	defer retryableFuncs.Unlock()
	t := reflect.TypeOf(d)
	retryableFuncs.byDriver[t] = append(retryableFuncs.byDriver[t], fn)
}

// UnregisterAllIsRetryableFuncs removes all registered functions for the driver.
func UnregisterAllIsRetryableFuncs(d driver.Driver) {
	retryableFuncs.Lock()
	defer retryableFuncs.Unlock()
	delete(retryableFuncs.byDriver, reflect.TypeOf(d))
}

// GetIsRetryable returns a function that combines all registered checks for the driver.
// It returns nil when nothing is registered.
func GetIsRetryable(d driver.Driver) IsRetryable {
	retryableFuncs.RLock()
	fns := append([]IsRetryable(nil), retryableFuncs.byDriver[reflect.TypeOf(d)]...)
	retryableFuncs.RUnlock()
	if len(fns) == 0 {
		return nil
	}
	return func(err error) bool {
		for _, fn := range fns {
			if fn(err) {
				return true
			}
		}
		return false
	}
}

type doInTxOptions struct {
	txOpts      *sql.TxOptions
	retryPolicy retry.Policy
}

// DoInTxOption is an option for DoInTx.
type DoInTxOption func(*doInTxOptions)

// WithTxOptions sets options for beginning the transaction.
func WithTxOptions(txOpts *sql.TxOptions) DoInTxOption {
	return func(o *doInTxOptions) {
		o.txOpts = txOpts
	}
}

// WithRetryPolicy enables retrying the whole transaction when the driver reports a retryable error.
func WithRetryPolicy(policy retry.Policy) DoInTxOption {
	return func(o *doInTxOptions) {
		o.retryPolicy = policy
	}
}

// DoInTx begins a new transaction, calls passed function and commits it if the function returns nil.
// The transaction is rolled back on error or panic (the panic is re-raised).
func DoInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error, options ...DoInTxOption) error {
	var opts doInTxOptions
	for _, opt := range options {
		opt(&opts)
	}

	if opts.retryPolicy == nil {
		return doInTx(ctx, db, opts.txOpts, fn)
	}
	isRetryable := GetIsRetryable(db.Driver())
	if isRetryable == nil {
		return doInTx(ctx, db, opts.txOpts, fn)
	}

	return backoff.Retry(func() error {
		if err := doInTx(ctx, db, opts.txOpts, fn); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(opts.retryPolicy.NewBackOff(), ctx))
}

func doInTx(ctx context.Context, db *sql.DB, txOpts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		_ = tx.Rollback()
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		// The transaction is finished either way, no rollback is needed.
		committed = true
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
