/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mysql registers the MySQL driver together with a retryable-error check for
// analyticsdb.DoInTx and provides helpers for inspecting MySQL server errors.
package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/acronis/go-analyticsdb"
)

// ErrCode is a MySQL server error number.
type ErrCode uint16

// MySQL server error numbers used by the analytics updates.
// See https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html.
const (
	ErrCodeTableExists        ErrCode = 1050 // ER_TABLE_EXISTS_ERROR
	ErrCodeUnknownColumn      ErrCode = 1054 // ER_BAD_FIELD_ERROR
	ErrCodeDuplicateColumn    ErrCode = 1060 // ER_DUP_FIELDNAME
	ErrCodeDuplicateKeyName   ErrCode = 1061 // ER_DUP_KEYNAME
	ErrCodeDuplicateEntry     ErrCode = 1062 // ER_DUP_ENTRY
	ErrCodeCantDropFieldOrKey ErrCode = 1091 // ER_CANT_DROP_FIELD_OR_KEY
	ErrCodeLockWaitTimeout    ErrCode = 1205 // ER_LOCK_WAIT_TIMEOUT
	ErrCodeDeadlock           ErrCode = 1213 // ER_LOCK_DEADLOCK
)

func init() {
	analyticsdb.RegisterIsRetryableFunc(&mysql.MySQLDriver{}, func(err error) bool {
		return CheckMySQLError(err, ErrCodeDeadlock) || CheckMySQLError(err, ErrCodeLockWaitTimeout)
	})
}

// CheckMySQLError checks if the passed error relates to MySQL and has the given code.
func CheckMySQLError(err error, errCode ErrCode) bool {
	code, ok := GetErrCode(err)
	return ok && code == errCode
}

// GetErrCode extracts the server error number from a (possibly wrapped) MySQL error.
func GetErrCode(err error) (ErrCode, bool) {
	var mySQLErr *mysql.MySQLError
	if errors.As(err, &mySQLErr) {
		return ErrCode(mySQLErr.Number), true
	}
	return 0, false
}
