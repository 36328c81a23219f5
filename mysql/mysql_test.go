/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package mysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
)

func TestGetErrCode(t *testing.T) {
	code, ok := GetErrCode(fmt.Errorf("drop column: %w", &mysql.MySQLError{Number: 1091, Message: "Can't DROP 'alias'"}))
	require.True(t, ok)
	require.Equal(t, ErrCodeCantDropFieldOrKey, code)

	_, ok = GetErrCode(errors.New("plain error"))
	require.False(t, ok)
}

func TestCheckMySQLError(t *testing.T) {
	err := &mysql.MySQLError{Number: 1060, Message: "Duplicate column name 'search_cat'"}
	require.True(t, CheckMySQLError(err, ErrCodeDuplicateColumn))
	require.False(t, CheckMySQLError(err, ErrCodeDuplicateKeyName))
	require.False(t, CheckMySQLError(nil, ErrCodeDuplicateColumn))
}

func TestIsRetryable(t *testing.T) {
	isRetryable := analyticsdb.GetIsRetryable(&mysql.MySQLDriver{})
	require.NotNil(t, isRetryable)
	require.True(t, isRetryable(&mysql.MySQLError{Number: 1213}))
	require.True(t, isRetryable(fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1205})))
	require.False(t, isRetryable(&mysql.MySQLError{Number: 1062}))
	require.False(t, isRetryable(errors.New("connection refused")))
}
