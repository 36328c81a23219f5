/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"   // register "mysql" goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // register "sqlite3" goqu dialect

	"github.com/acronis/go-analyticsdb"
)

// MySQLTableOptions is appended to CREATE TABLE statements for MySQL.
const MySQLTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

type renderer interface {
	changeColumnType(table, column, columnType string) []Statement
	dropColumn(table, column string) []Statement
	changeColumn(table, oldName, newName, columnType string) []Statement
	createTable(table string, columns []Column, primaryKey []string) []Statement
	addUniqueKey(table string, columns []string, keyName string) []Statement
	dropIndex(table, keyName string) []Statement
	insert(table string, row Row) ([]Statement, error)
	addColumns(table string, columns []Column) []Statement
}

func rendererFor(dialect analyticsdb.Dialect) (renderer, error) {
	switch dialect {
	case analyticsdb.DialectMySQL:
		return mysqlRenderer{}, nil
	case analyticsdb.DialectSQLite:
		return sqliteRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
}

func insertWithGoqu(dialect analyticsdb.Dialect, table string, row Row) ([]Statement, error) {
	query, args, err := goqu.Dialect(dialect.GoquDialect()).
		Insert(table).
		Prepared(true).
		Rows(goqu.Record(row)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%w: build insert into %s: %v", ErrInvalidOperation, table, err)
	}
	return []Statement{{Query: query, Args: args}}, nil
}

type mysqlRenderer struct{}

func (mysqlRenderer) quote(ident string) string {
	return "`" + ident + "`"
}

func (r mysqlRenderer) quoteAll(idents []string) string {
	quoted := make([]string, 0, len(idents))
	for _, ident := range idents {
		quoted = append(quoted, r.quote(ident))
	}
	return strings.Join(quoted, ", ")
}

func (r mysqlRenderer) changeColumnType(table, column, columnType string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", r.quote(table), r.quote(column), columnType))
}

func (r mysqlRenderer) dropColumn(table, column string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", r.quote(table), r.quote(column)))
}

func (r mysqlRenderer) changeColumn(table, oldName, newName, columnType string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s CHANGE %s %s %s", r.quote(table), r.quote(oldName), r.quote(newName), columnType))
}

func (r mysqlRenderer) createTable(table string, columns []Column, primaryKey []string) []Statement {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, r.quote(c.Name)+" "+strings.TrimSpace(c.Type))
	}
	if len(primaryKey) != 0 {
		defs = append(defs, "PRIMARY KEY ("+r.quoteAll(primaryKey)+")")
	}
	return statements(fmt.Sprintf("CREATE TABLE %s (%s) %s", r.quote(table), strings.Join(defs, ", "), MySQLTableOptions))
}

func (r mysqlRenderer) addUniqueKey(table string, columns []string, keyName string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s ADD UNIQUE KEY %s (%s)", r.quote(table), r.quote(keyName), r.quoteAll(columns)))
}

func (r mysqlRenderer) dropIndex(table, keyName string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", r.quote(table), r.quote(keyName)))
}

func (mysqlRenderer) insert(table string, row Row) ([]Statement, error) {
	return insertWithGoqu(analyticsdb.DialectMySQL, table, row)
}

func (r mysqlRenderer) addColumns(table string, columns []Column) []Statement {
	adds := make([]string, 0, len(columns))
	for _, c := range columns {
		adds = append(adds, "ADD COLUMN "+r.quote(c.Name)+" "+strings.TrimSpace(c.Type))
	}
	return statements(fmt.Sprintf("ALTER TABLE %s %s", r.quote(table), strings.Join(adds, ", ")))
}

// sqliteRenderer renders statements for SQLite 3.35+.
// Declared column widths are not enforced by SQLite, so retyping a column renders nothing.
type sqliteRenderer struct{}

func (sqliteRenderer) quote(ident string) string {
	return `"` + ident + `"`
}

func (r sqliteRenderer) quoteAll(idents []string) string {
	quoted := make([]string, 0, len(idents))
	for _, ident := range idents {
		quoted = append(quoted, r.quote(ident))
	}
	return strings.Join(quoted, ", ")
}

func (sqliteRenderer) changeColumnType(table, column, columnType string) []Statement {
	return nil
}

func (r sqliteRenderer) dropColumn(table, column string) []Statement {
	return statements(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", r.quote(table), r.quote(column)))
}

func (r sqliteRenderer) changeColumn(table, oldName, newName, columnType string) []Statement {
	if oldName == newName {
		return nil
	}
	return statements(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", r.quote(table), r.quote(oldName), r.quote(newName)))
}

func (r sqliteRenderer) createTable(table string, columns []Column, primaryKey []string) []Statement {
	defs := make([]string, 0, len(columns)+1)
	inlinePK := false
	for _, c := range columns {
		columnType, autoIncrement := sqliteColumnType(c.Type)
		if autoIncrement && len(primaryKey) == 1 && primaryKey[0] == c.Name {
			columnType = "INTEGER PRIMARY KEY AUTOINCREMENT"
			inlinePK = true
		}
		defs = append(defs, r.quote(c.Name)+" "+columnType)
	}
	if len(primaryKey) != 0 && !inlinePK {
		defs = append(defs, "PRIMARY KEY ("+r.quoteAll(primaryKey)+")")
	}
	return statements(fmt.Sprintf("CREATE TABLE %s (%s)", r.quote(table), strings.Join(defs, ", ")))
}

func (r sqliteRenderer) addUniqueKey(table string, columns []string, keyName string) []Statement {
	return statements(fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", r.quote(keyName), r.quote(table), r.quoteAll(columns)))
}

func (r sqliteRenderer) dropIndex(table, keyName string) []Statement {
	return statements(fmt.Sprintf("DROP INDEX %s", r.quote(keyName)))
}

func (sqliteRenderer) insert(table string, row Row) ([]Statement, error) {
	return insertWithGoqu(analyticsdb.DialectSQLite, table, row)
}

// addColumns renders one ALTER TABLE per column since SQLite cannot add several columns in one statement.
func (r sqliteRenderer) addColumns(table string, columns []Column) []Statement {
	stmts := make([]Statement, 0, len(columns))
	for _, c := range columns {
		columnType, _ := sqliteColumnType(c.Type)
		stmts = append(stmts, Statement{
			Query: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", r.quote(table), r.quote(c.Name), columnType),
		})
	}
	return stmts
}

// sqliteColumnType drops the MySQL-only UNSIGNED and AUTO_INCREMENT attributes.
func sqliteColumnType(def string) (columnType string, autoIncrement bool) {
	fields := strings.Fields(def)
	kept := fields[:0:0]
	for _, f := range fields {
		switch strings.ToUpper(f) {
		case "UNSIGNED":
			continue
		case "AUTO_INCREMENT":
			autoIncrement = true
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " "), autoIncrement
}
