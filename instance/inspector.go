/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package instance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/updates"
)

// Option names used by updates.
const (
	OptionCoreVersion      = "version_core"
	OptionLocationProvider = "usercountry.location_provider"
)

const (
	optionTable = "option"
	userTable   = "user"
)

// ErrOptionNotFound is returned when an option is not stored in the option table.
var ErrOptionNotFound = errors.New("option not found")

// Inspector reads and writes the state of an installation database.
type Inspector struct {
	sess     *dbr.Session
	dialect  analyticsdb.Dialect
	prefix   analyticsdb.TablePrefix
	settings *Settings
	now      func() time.Time
	txLevel  sql.IsolationLevel
}

// InspectorOption is a functional option for Inspector.
type InspectorOption func(*Inspector)

// WithClock sets the function returning the current time recorded in snapshots.
func WithClock(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		i.now = now
	}
}

// WithTxIsolationLevel sets the isolation level of the transactions writing options.
func WithTxIsolationLevel(level sql.IsolationLevel) InspectorOption {
	return func(i *Inspector) {
		i.txLevel = level
	}
}

// NewInspector creates a new Inspector.
func NewInspector(
	conn *dbr.Connection, dialect analyticsdb.Dialect, prefix analyticsdb.TablePrefix, settings *Settings, options ...InspectorOption,
) (*Inspector, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection must not be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings must not be nil")
	}
	switch dialect {
	case analyticsdb.DialectMySQL, analyticsdb.DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	i := &Inspector{sess: conn.NewSession(nil), dialect: dialect, prefix: prefix, settings: settings, now: time.Now}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Tables returns the names of the tables of the installation, sorted.
func (i *Inspector) Tables(ctx context.Context) ([]string, error) {
	var q *dbr.SelectStmt
	switch i.dialect {
	case analyticsdb.DialectMySQL:
		q = i.sess.Select("table_name AS tbl").From("information_schema.tables").
			Where("table_schema = DATABASE()").OrderBy("tbl")
	case analyticsdb.DialectSQLite:
		q = i.sess.Select("name AS tbl").From("sqlite_master").
			Where("type = ? AND name NOT LIKE ?", "table", "sqlite_%").OrderBy("tbl")
	}
	var all []string
	if _, err := q.LoadContext(ctx, &all); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]string, 0, len(all))
	for _, table := range all {
		if i.prefix.Owns(table) {
			tables = append(tables, table)
		}
	}
	return tables, nil
}

// Columns returns the column names of the physical table in their definition order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]string, error) {
	var q *dbr.SelectStmt
	switch i.dialect {
	case analyticsdb.DialectMySQL:
		q = i.sess.Select("column_name AS col").From("information_schema.columns").
			Where("table_schema = DATABASE() AND table_name = ?", table).OrderBy("ordinal_position")
	case analyticsdb.DialectSQLite:
		q = i.sess.SelectBySql("SELECT name AS col FROM pragma_table_info(?) ORDER BY cid", table)
	}
	var columns []string
	if _, err := q.LoadContext(ctx, &columns); err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	return columns, nil
}

type tableColumn struct {
	Table  string `db:"tbl"`
	Column string `db:"col"`
}

// AllColumns returns the column names of every table of the installation keyed by the physical table name.
func (i *Inspector) AllColumns(ctx context.Context) (map[string][]string, error) {
	var q *dbr.SelectStmt
	switch i.dialect {
	case analyticsdb.DialectMySQL:
		q = i.sess.Select("table_name AS tbl", "column_name AS col").From("information_schema.columns").
			Where("table_schema = DATABASE()").OrderBy("tbl").OrderBy("ordinal_position")
	case analyticsdb.DialectSQLite:
		q = i.sess.SelectBySql("SELECT m.name AS tbl, p.name AS col FROM sqlite_master m " +
			"JOIN pragma_table_info(m.name) p WHERE m.type = 'table' ORDER BY m.name, p.cid")
	}
	var rows []tableColumn
	if _, err := q.LoadContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	res := make(map[string][]string)
	for _, row := range rows {
		if i.prefix.Owns(row.Table) {
			res[row.Table] = append(res[row.Table], row.Column)
		}
	}
	return res, nil
}

// LegacyUsers returns the users of the installation with their legacy tokens.
// Nothing is returned once the legacy token column is gone.
func (i *Inspector) LegacyUsers(ctx context.Context, columns map[string][]string) ([]updates.User, error) {
	table := i.prefix.Prefix(userTable)
	if indexOf(columns[table], "token_auth") == -1 {
		return nil, nil
	}
	var users []updates.User
	_, err := i.sess.Select("login", "COALESCE(token_auth, '') AS token_auth").
		From(dbr.I(table)).OrderBy("login").LoadContext(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Option returns the value stored in the option table. ErrOptionNotFound is returned for missing options.
func (i *Inspector) Option(ctx context.Context, name string) (string, error) {
	return i.loadOption(ctx, i.sess, name)
}

func (i *Inspector) loadOption(ctx context.Context, runner dbr.SessionRunner, name string) (string, error) {
	var value string
	err := runner.Select("option_value").From(dbr.I(i.prefix.Prefix(optionTable))).
		Where("option_name = ?", name).LoadOneContext(ctx, &value)
	if err != nil {
		if errors.Is(err, dbr.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrOptionNotFound, name)
		}
		return "", fmt.Errorf("get option %s: %w", name, err)
	}
	return value, nil
}

// SetOption stores the value in the option table, replacing the previous one.
// The lookup and the write run in one transaction.
func (i *Inspector) SetOption(ctx context.Context, name, value string) error {
	tx, err := i.sess.BeginTx(ctx, &sql.TxOptions{Isolation: i.txLevel})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.RollbackUnlessCommitted()

	table := i.prefix.Prefix(optionTable)
	if _, err = i.loadOption(ctx, tx, name); err == nil {
		_, err = tx.Update(table).Set("option_value", value).Where("option_name = ?", name).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("update option %s: %w", name, err)
		}
	} else {
		if !errors.Is(err, ErrOptionNotFound) {
			return err
		}
		if _, err = tx.InsertInto(table).Columns("option_name", "option_value").Values(name, value).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert option %s: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LocationProvider returns the id of the active geolocation provider.
func (i *Inspector) LocationProvider(ctx context.Context) (string, error) {
	id, err := i.Option(ctx, OptionLocationProvider)
	if err != nil {
		if errors.Is(err, ErrOptionNotFound) {
			return updates.LocationProviderDefault, nil
		}
		return "", err
	}
	if id == "" {
		return updates.LocationProviderDefault, nil
	}
	return id, nil
}

// SetLocationProvider switches the active geolocation provider.
func (i *Inspector) SetLocationProvider(ctx context.Context, id string) error {
	return i.SetOption(ctx, OptionLocationProvider, id)
}

// CoreVersion returns the version the installation was last updated to.
func (i *Inspector) CoreVersion(ctx context.Context) (string, error) {
	return i.Option(ctx, OptionCoreVersion)
}

// SetCoreVersion records the version the installation was updated to.
func (i *Inspector) SetCoreVersion(ctx context.Context, version string) error {
	return i.SetOption(ctx, OptionCoreVersion, version)
}

// LoadSnapshot reads everything updates need to build their operations.
func (i *Inspector) LoadSnapshot(ctx context.Context) (*updates.Snapshot, error) {
	tables, err := i.Tables(ctx)
	if err != nil {
		return nil, err
	}
	columns, err := i.AllColumns(ctx)
	if err != nil {
		return nil, err
	}
	users, err := i.LegacyUsers(ctx, columns)
	if err != nil {
		return nil, err
	}
	provider, err := i.LocationProvider(ctx)
	if err != nil {
		return nil, err
	}
	installed, err := i.settings.InstalledPlugins()
	if err != nil {
		return nil, err
	}
	activated, err := i.settings.ActivatedPlugins()
	if err != nil {
		return nil, err
	}
	return &updates.Snapshot{
		Prefix:           i.prefix,
		Tables:           tables,
		Columns:          columns,
		Users:            users,
		InstalledPlugins: installed,
		ActivatedPlugins: activated,
		LocationProvider: provider,
		Config:           i.settings.Sections(),
		Now:              i.now().UTC(),
	}, nil
}
