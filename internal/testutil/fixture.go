/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil provides database fixtures shared by the tests of the module.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocraft/dbr/v2"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/dbrutil"
	_ "github.com/acronis/go-analyticsdb/sqlite" // sqlite3 driver used by OpenSQLite
)

// Values stored by the pre-update fixture.
const (
	AdminLogin       = "admin"
	AdminToken       = "0123456789abcdef0123456789abcdef"
	AnonymousLogin   = "anonymous"
	AnonymousToken   = "anonymous"
	FixtureSalt      = "fixture-salt"
	FixtureVersion   = "3.14.1"
	ArchiveNumeric   = "archive_numeric_2020_01"
	ArchiveBlob      = "archive_blob_2020_01"
	LegacyProviderID = "geoip_php"
)

// OpenSQLite opens a dbr connection to a new SQLite database file in a temporary directory.
func OpenSQLite(t *testing.T, receiver dbr.EventReceiver) *dbr.Connection {
	t.Helper()
	cfg := analyticsdb.NewDefaultConfig()
	cfg.Dialect = analyticsdb.DialectSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "analytics.db")
	conn, err := dbrutil.Open(cfg, true, receiver)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// PreUpdateSchema returns the statements creating a minimal installation as it looks before version 4.
// Identifiers are backtick-quoted, which both MySQL and SQLite accept.
func PreUpdateSchema(prefix analyticsdb.TablePrefix) []string {
	t := func(name string) string {
		return "`" + prefix.Prefix(name) + "`"
	}
	return []string{
		"CREATE TABLE " + t("option") + " (option_name VARCHAR(255) NOT NULL PRIMARY KEY, " +
			"option_value LONGTEXT NOT NULL, autoload TINYINT NOT NULL DEFAULT 1)",
		"CREATE TABLE " + t("user") + " (login VARCHAR(100) NOT NULL PRIMARY KEY, password VARCHAR(255) NOT NULL, " +
			"alias VARCHAR(45) NOT NULL, email VARCHAR(100) NOT NULL, token_auth CHAR(32) NOT NULL, " +
			"superuser_access TINYINT NOT NULL DEFAULT 0)",
		"CREATE UNIQUE INDEX uniq_keytoken ON " + t("user") + " (token_auth)",
		"CREATE TABLE " + t("log_action") + " (idaction INTEGER NOT NULL PRIMARY KEY, name VARCHAR(255), type TINYINT)",
		"CREATE TABLE " + t("log_conversion") + " (idvisit INTEGER NOT NULL, idgoal INTEGER NOT NULL, " +
			"url VARCHAR(255) NOT NULL, revenue FLOAT DEFAULT NULL, PRIMARY KEY (idvisit, idgoal))",
		"CREATE TABLE " + t("log_visit") + " (idvisit INTEGER NOT NULL PRIMARY KEY, " +
			"config_gears TINYINT NOT NULL DEFAULT 0, config_director TINYINT NOT NULL DEFAULT 0)",
		"CREATE TABLE " + t("log_link_visit_action") + " (idlink_va INTEGER NOT NULL PRIMARY KEY, " +
			"interaction_position MEDIUMINT UNSIGNED DEFAULT NULL, " +
			"custom_var_k4 VARCHAR(200) DEFAULT NULL, custom_var_v4 VARCHAR(200) DEFAULT NULL, " +
			"custom_var_k5 VARCHAR(200) DEFAULT NULL, custom_var_v5 VARCHAR(200) DEFAULT NULL)",
		"CREATE TABLE " + t("session") + " (id VARCHAR(255) NOT NULL PRIMARY KEY, modified INTEGER, lifetime INTEGER, data TEXT)",
		"CREATE TABLE " + t("site_url") + " (idsite INTEGER NOT NULL, url VARCHAR(255) NOT NULL, PRIMARY KEY (idsite, url))",
		"CREATE TABLE " + t(ArchiveNumeric) + " (idarchive INTEGER NOT NULL, name VARCHAR(255) NOT NULL, value DOUBLE, " +
			"PRIMARY KEY (idarchive, name))",
		"CREATE TABLE " + t(ArchiveBlob) + " (idarchive INTEGER NOT NULL, name VARCHAR(255) NOT NULL, value BLOB, " +
			"PRIMARY KEY (idarchive, name))",
	}
}

// PreUpdateData returns the statements filling the pre-update schema.
func PreUpdateData(prefix analyticsdb.TablePrefix) []string {
	t := func(name string) string {
		return "`" + prefix.Prefix(name) + "`"
	}
	option := func(name, value string) string {
		return fmt.Sprintf("INSERT INTO %s (option_name, option_value) VALUES ('%s', '%s')", t("option"), name, value)
	}
	return []string{
		option("version_core", FixtureVersion),
		option("usercountry.location_provider", LegacyProviderID),
		option("geoip.updater_period", "month"),
		option("geoip.loc_db_url", "https://example.com/GeoLiteCity.dat.gz"),
		option("geoip.isp_db_url", ""),
		option("geoip.org_db_url", ""),
		option("MobileMessaging_DelegatedManagement", "false"),
		fmt.Sprintf("INSERT INTO %s (login, password, alias, email, token_auth, superuser_access) VALUES "+
			"('%s', 'pwd', 'Admin', 'admin@example.com', '%s', 1), ('%s', '', 'anonymous', 'anonymous@example.com', '%s', 0)",
			t("user"), AdminLogin, AdminToken, AnonymousLogin, AnonymousToken),
		"INSERT INTO " + t("log_link_visit_action") + " (idlink_va, interaction_position, custom_var_k4, custom_var_v4, " +
			"custom_var_k5, custom_var_v5) VALUES (1, 2, '_pk_scat', 'Shoes', '_pk_scount', '3'), (2, 1, 'color', 'red', NULL, NULL)",
	}
}

// PreUpdateSettings is the settings file of the pre-update fixture.
const PreUpdateSettings = `
general:
  salt: ` + FixtureSalt + `
plugins:
  installed: CoreHome, CustomPiwikJs, CustomDimensions, UserCountry
  activated: CoreHome, CustomPiwikJs, UserCountry
mail:
  type: Crammd5
`

// CreatePreUpdateInstallation creates and fills the pre-update schema.
func CreatePreUpdateInstallation(ctx context.Context, db *sql.DB, prefix analyticsdb.TablePrefix) error {
	for _, q := range append(PreUpdateSchema(prefix), PreUpdateData(prefix)...) {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec %q: %w", strings.SplitN(q, "(", 2)[0], err)
		}
	}
	return nil
}
