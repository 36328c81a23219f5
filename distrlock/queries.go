/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import (
	"fmt"
	"strings"

	"github.com/acronis/go-analyticsdb"
)

// expire_at keeps Unix milliseconds in both dialects.
const (
	mySQLNowMillis  = "CAST(UNIX_TIMESTAMP(NOW(3)) * 1000 AS SIGNED)"
	sqliteNowMillis = "CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER)"
)

type lockQueries struct {
	createTable string
	dropTable   string
	insertKey   string
	acquire     string
	extend      string
	release     string
}

func newLockQueries(dialect analyticsdb.Dialect, table string) (lockQueries, error) {
	var quoted, insertIgnore, now string
	switch dialect {
	case analyticsdb.DialectMySQL:
		quoted = "`" + strings.ReplaceAll(table, "`", "``") + "`"
		insertIgnore = "INSERT IGNORE INTO"
		now = mySQLNowMillis
	case analyticsdb.DialectSQLite:
		quoted = `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
		insertIgnore = "INSERT OR IGNORE INTO"
		now = sqliteNowMillis
	default:
		return lockQueries{}, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	held := "expire_at >= " + now
	return lockQueries{
		createTable: "CREATE TABLE IF NOT EXISTS " + quoted +
			" (lock_key VARCHAR(40) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT)",
		dropTable: "DROP TABLE IF EXISTS " + quoted,
		insertKey: insertIgnore + " " + quoted + " (lock_key) VALUES (?)",
		acquire: "UPDATE " + quoted + " SET token = ?, expire_at = " + now + " + ?" +
			" WHERE lock_key = ? AND (expire_at IS NULL OR expire_at < " + now + " OR token = ?)",
		extend: "UPDATE " + quoted + " SET expire_at = " + now + " + ?" +
			" WHERE lock_key = ? AND token = ? AND " + held,
		release: "UPDATE " + quoted + " SET token = NULL, expire_at = NULL" +
			" WHERE lock_key = ? AND token = ? AND " + held,
	}, nil
}
