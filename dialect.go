/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

// Dialect defines possible values for planned supported SQL dialects.
type Dialect string

// SQL dialects.
const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite3"
)

// GoquDialect returns the name under which github.com/doug-martin/goqu registers the dialect.
func (d Dialect) GoquDialect() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite3"
	}
	return "default"
}
