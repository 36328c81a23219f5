/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlite registers the SQLite driver together with a retryable-error check for
// analyticsdb.DoInTx and provides helpers for inspecting SQLite errors.
//
// SQLite reports most schema conflicts with the generic SQLITE_ERROR code,
// so the helpers look at the error message as well.
package sqlite

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/acronis/go-analyticsdb"
)

func init() {
	analyticsdb.RegisterIsRetryableFunc(&sqlite3.SQLiteDriver{}, func(err error) bool {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
		}
		return false
	})
}

// Message fragments reported by SQLite for schema conflicts.
const (
	msgTableExists     = "already exists"
	msgDuplicateColumn = "duplicate column name"
	msgNoSuchColumn    = "no such column"
	msgNoSuchIndex     = "no such index"
	msgUniqueFailed    = "UNIQUE constraint failed"
)

// IsTableExists reports whether err is "table ... already exists".
func IsTableExists(err error) bool {
	return hasMessage(err, msgTableExists) && hasMessage(err, "table")
}

// IsIndexExists reports whether err is "index ... already exists".
func IsIndexExists(err error) bool {
	return hasMessage(err, msgTableExists) && hasMessage(err, "index")
}

// IsDuplicateColumn reports whether err is "duplicate column name".
func IsDuplicateColumn(err error) bool {
	return hasMessage(err, msgDuplicateColumn)
}

// IsNoSuchColumn reports whether err is "no such column".
func IsNoSuchColumn(err error) bool {
	return hasMessage(err, msgNoSuchColumn)
}

// IsNoSuchIndex reports whether err is "no such index".
func IsNoSuchIndex(err error) bool {
	return hasMessage(err, msgNoSuchIndex)
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return hasMessage(err, msgUniqueFailed)
}

func hasMessage(err error, fragment string) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return strings.Contains(sqliteErr.Error(), fragment)
}
