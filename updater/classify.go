/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updater

import (
	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/migration"
	"github.com/acronis/go-analyticsdb/mysql"
	"github.com/acronis/go-analyticsdb/sqlite"
)

// mySQLErrorClasses maps server error numbers to error classes.
// ER_CANT_DROP_FIELD_OR_KEY is reported both for missing columns and missing keys.
var mySQLErrorClasses = map[mysql.ErrCode][]migration.ErrorClass{
	mysql.ErrCodeTableExists:        {migration.ErrorClassTableExists},
	mysql.ErrCodeUnknownColumn:      {migration.ErrorClassColumnNotExists},
	mysql.ErrCodeDuplicateColumn:    {migration.ErrorClassDuplicateColumn},
	mysql.ErrCodeDuplicateKeyName:   {migration.ErrorClassDuplicateKey},
	mysql.ErrCodeDuplicateEntry:     {migration.ErrorClassDuplicateEntry},
	mysql.ErrCodeCantDropFieldOrKey: {migration.ErrorClassColumnNotExists, migration.ErrorClassKeyNotExists},
}

// classifyError returns the error classes the driver error belongs to.
func classifyError(dialect analyticsdb.Dialect, err error) []migration.ErrorClass {
	switch dialect {
	case analyticsdb.DialectMySQL:
		if code, ok := mysql.GetErrCode(err); ok {
			return mySQLErrorClasses[code]
		}
	case analyticsdb.DialectSQLite:
		switch {
		case sqlite.IsTableExists(err):
			return []migration.ErrorClass{migration.ErrorClassTableExists}
		case sqlite.IsIndexExists(err):
			return []migration.ErrorClass{migration.ErrorClassDuplicateKey}
		case sqlite.IsDuplicateColumn(err):
			return []migration.ErrorClass{migration.ErrorClassDuplicateColumn}
		case sqlite.IsNoSuchColumn(err):
			return []migration.ErrorClass{migration.ErrorClassColumnNotExists}
		case sqlite.IsNoSuchIndex(err):
			return []migration.ErrorClass{migration.ErrorClassKeyNotExists}
		case sqlite.IsUniqueViolation(err):
			return []migration.ErrorClass{migration.ErrorClassDuplicateEntry}
		}
	}
	return nil
}

// ignoredClass returns the first class of err that the operation tolerates.
func ignoredClass(dialect analyticsdb.Dialect, op migration.DBOperation, err error) (migration.ErrorClass, bool) {
	for _, class := range classifyError(dialect, err) {
		if migration.Ignores(op, class) {
			return class, true
		}
	}
	return 0, false
}
