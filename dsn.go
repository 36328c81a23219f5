/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"
)

// MakeMySQLDSN makes DSN for opening MySQL database.
// Multi statements are disabled: every operation of an update is executed as a separate statement.
func MakeMySQLDSN(cfg *MySQLConfig) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	// Rows matched by UPDATE count as affected even when unchanged.
	c.ClientFoundRows = true
	c.Params = make(map[string]string)
	charset := cfg.Charset
	if charset == "" {
		charset = DefaultMySQLCharset
	}
	c.Params["charset"] = charset
	return c.FormatDSN()
}

// MakeSQLiteDSN makes DSN for opening SQLite database.
func MakeSQLiteDSN(cfg *SQLiteConfig) string {
	if cfg.Path == ":memory:" {
		// Every connection of the pool must see the same in-memory database.
		return "file::memory:?cache=shared"
	}
	query := url.Values{}
	query.Set("_busy_timeout", "5000")
	return "file:" + cfg.Path + "?" + query.Encode()
}
