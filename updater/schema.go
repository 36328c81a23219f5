/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updater

import (
	"context"
	"fmt"

	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-analyticsdb"
)

// DefaultTableName is the default name for the table tracking applied updates.
const DefaultTableName = "analytics_updates"

// appliedAtLayout is the layout of applied_at values, accepted by DATETIME and TEXT columns alike.
const appliedAtLayout = "2006-01-02 15:04:05"

// getCreateTableSQL returns the dialect-specific DDL for creating the tracking table.
func getCreateTableSQL(dialect analyticsdb.Dialect, tableName string) (string, error) {
	switch dialect {
	case analyticsdb.DialectMySQL:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
			"id VARCHAR(191) NOT NULL PRIMARY KEY, "+
			"applied_at DATETIME NOT NULL"+
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", tableName), nil

	case analyticsdb.DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (`+
			"id VARCHAR(191) NOT NULL PRIMARY KEY, "+
			"applied_at TEXT NOT NULL"+
			")", tableName), nil

	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// ensureTable creates the tracking table if it doesn't exist.
func ensureTable(ctx context.Context, sess *dbr.Session, dialect analyticsdb.Dialect, tableName string) error {
	createSQL, err := getCreateTableSQL(dialect, tableName)
	if err != nil {
		return fmt.Errorf("get create table SQL: %w", err)
	}
	if _, err = sess.UpdateBySql(createSQL).ExecContext(ctx); err != nil {
		return fmt.Errorf("create updates table: %w", err)
	}
	return nil
}
