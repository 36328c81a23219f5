/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const mysqlInstallationYAML = `
database:
  dialect: mysql
  tablePrefix: matomo_
  maxOpenConns: 4
  maxIdleConns: 1
  connMaxLifeTime: 90s
  mysql:
    host: db.analytics.local
    port: 3307
    database: matomo
    user: matomo
    password: secret
    charset: utf8
    txLevel: repeatable-read
`

func expectedMySQLInstallationConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Dialect = DialectMySQL
	cfg.TablePrefix = "matomo_"
	cfg.MaxOpenConns = 4
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = config.TimeDuration(90 * time.Second)
	cfg.MySQL = MySQLConfig{
		Host:             "db.analytics.local",
		Port:             3307,
		Database:         "matomo",
		User:             "matomo",
		Password:         "secret",
		Charset:          "utf8",
		TxIsolationLevel: IsolationLevel(sql.LevelRepeatableRead),
	}
	return cfg
}

func loadConfig(t *testing.T, cfg *Config, data string, dataType config.DataType) error {
	t.Helper()
	return config.NewDefaultLoader("").LoadFromReader(strings.NewReader(data), dataType, cfg)
}

func TestConfig_Load(t *testing.T) {
	t.Run("mysql from yaml", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, loadConfig(t, cfg, mysqlInstallationYAML, config.DataTypeYAML))
		require.Equal(t, expectedMySQLInstallationConfig(), cfg)
	})

	t.Run("mysql from json", func(t *testing.T) {
		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(mysqlInstallationYAML), &doc))
		jsonData, err := json.Marshal(doc)
		require.NoError(t, err)

		cfg := NewDefaultConfig()
		require.NoError(t, loadConfig(t, cfg, string(jsonData), config.DataTypeJSON))
		require.Equal(t, expectedMySQLInstallationConfig(), cfg)
	})

	t.Run("mysql defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, loadConfig(t, cfg, "database:\n  dialect: mysql\n  mysql:\n    host: localhost\n", config.DataTypeYAML))
		require.Equal(t, DefaultMaxOpenConns, cfg.MaxOpenConns)
		require.Equal(t, DefaultMaxIdleConns, cfg.MaxIdleConns)
		require.Equal(t, config.TimeDuration(DefaultConnMaxLifetime), cfg.ConnMaxLifetime)
		require.Equal(t, DefaultMySQLCharset, cfg.MySQL.Charset)
		require.Equal(t, MySQLDefaultTxLevel, cfg.TxIsolationLevel())
		require.Empty(t, cfg.TablePrefix)
	})

	t.Run("sqlite with custom key prefix", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("analytics"))
		data := "analytics:\n  dialect: sqlite3\n  tablePrefix: piwik_\n  sqlite3:\n    path: /var/lib/matomo/matomo.db\n"
		require.NoError(t, loadConfig(t, cfg, data, config.DataTypeYAML))
		require.Equal(t, "analytics", cfg.KeyPrefix())
		require.Equal(t, DialectSQLite, cfg.Dialect)
		require.Equal(t, TablePrefix("piwik_"), cfg.TablePrefix)
		require.Equal(t, "/var/lib/matomo/matomo.db", cfg.SQLite.Path)
		require.Equal(t, sql.LevelDefault, cfg.TxIsolationLevel())
	})

	t.Run("zero value config uses default key prefix", func(t *testing.T) {
		cfg := &Config{}
		require.Equal(t, cfgDefaultKeyPrefix, cfg.KeyPrefix())
		require.NoError(t, loadConfig(t, cfg, "database:\n  dialect: sqlite3\n  sqlite3:\n    path: a.db\n", config.DataTypeYAML))
		require.Equal(t, "a.db", cfg.SQLite.Path)
	})
}

func TestConfig_Unmarshal(t *testing.T) {
	type appConfig struct {
		Database *Config `mapstructure:"database" yaml:"database"`
	}

	t.Run("viper", func(t *testing.T) {
		vpr := viper.New()
		vpr.SetConfigType("yaml")
		require.NoError(t, vpr.ReadConfig(bytes.NewBufferString(mysqlInstallationYAML)))
		app := appConfig{Database: NewDefaultConfig()}
		require.NoError(t, vpr.Unmarshal(&app, func(c *mapstructure.DecoderConfig) {
			c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(), mapstructure.TextUnmarshallerHookFunc())
		}))
		require.Equal(t, expectedMySQLInstallationConfig().MySQL, app.Database.MySQL)
		require.Equal(t, TablePrefix("matomo_"), app.Database.TablePrefix)
	})

	t.Run("yaml", func(t *testing.T) {
		app := appConfig{Database: NewDefaultConfig()}
		require.NoError(t, yaml.Unmarshal([]byte(mysqlInstallationYAML), &app))
		require.Equal(t, expectedMySQLInstallationConfig(), app.Database)
	})
}

func TestConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown dialect",
			body:    "dialect: postgres",
			wantErr: `database.dialect: unknown value "postgres", should be one of [mysql sqlite3]`,
		},
		{
			name:    "quoted table prefix",
			body:    "dialect: mysql\n  tablePrefix: \"matomo_'\"",
			wantErr: "database.tablePrefix: must not contain quotes or spaces",
		},
		{
			name:    "negative max open connections",
			body:    "dialect: mysql\n  maxOpenConns: -1",
			wantErr: "database.maxOpenConns: must be positive",
		},
		{
			name:    "negative max idle connections",
			body:    "dialect: mysql\n  maxIdleConns: -3",
			wantErr: "database.maxIdleConns: must be positive",
		},
		{
			name:    "more idle than open connections",
			body:    "dialect: mysql\n  maxOpenConns: 2\n  maxIdleConns: 5",
			wantErr: "database.maxIdleConns: must be less than maxOpenConns",
		},
		{
			name:    "malformed connection lifetime",
			body:    "dialect: mysql\n  connMaxLifeTime: forever",
			wantErr: `database.connMaxLifeTime: time: invalid duration "foreverns"`,
		},
		{
			name:    "unknown isolation level",
			body:    "dialect: mysql\n  mysql:\n    txLevel: Snapshot",
			wantErr: "database.mysql.txLevel: invalid isolation level: Snapshot",
		},
		{
			name:    "missing sqlite path",
			body:    "dialect: sqlite3",
			wantErr: "database.sqlite3.path: must not be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadConfig(t, NewConfig(), "database:\n  "+tt.body+"\n", config.DataTypeYAML)
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestConfig_DriverNameAndDSN(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Dialect = DialectSQLite
	cfg.SQLite.Path = ":memory:"
	driverName, dsn := cfg.DriverNameAndDSN()
	require.Equal(t, "sqlite3", driverName)
	require.Equal(t, "file::memory:?cache=shared", dsn)

	cfg.Dialect = DialectMySQL
	cfg.MySQL.Host = "localhost"
	cfg.MySQL.Port = 3306
	driverName, dsn = cfg.DriverNameAndDSN()
	require.Equal(t, "mysql", driverName)
	require.Contains(t, dsn, "tcp(localhost:3306)")

	cfg.Dialect = "oracle"
	driverName, dsn = cfg.DriverNameAndDSN()
	require.Empty(t, driverName)
	require.Empty(t, dsn)
}
