/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/updater"
)

func loadUpdaterConfig(data string) (*analyticsdb.Config, *updaterConfig, error) {
	dbCfg := analyticsdb.NewConfig()
	cfg := &updaterConfig{}
	err := config.NewDefaultLoader("").LoadFromReader(strings.NewReader(data), config.DataTypeYAML, dbCfg, cfg)
	return dbCfg, cfg, err
}

func TestUpdaterConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		_, cfg, err := loadUpdaterConfig(`
database:
  dialect: sqlite3
  sqlite3:
    path: matomo.db
updater:
  settingsPath: config/config.yml
`)
		require.NoError(t, err)
		require.Equal(t, &updaterConfig{
			SettingsPath:       "config/config.yml",
			LockTTL:            updater.DefaultLockTTL,
			LogLevel:           log.LevelInfo,
			SlowQueryThreshold: defaultSlowQueryThreshold,
		}, cfg)
	})

	t.Run("example file", func(t *testing.T) {
		dbCfg := analyticsdb.NewConfig()
		cfg := &updaterConfig{}
		err := config.NewDefaultLoader("").LoadFromFile("config.example.yml", config.DataTypeYAML, dbCfg, cfg)
		require.NoError(t, err)
		require.Equal(t, analyticsdb.DialectMySQL, dbCfg.Dialect)
		require.Equal(t, analyticsdb.TablePrefix("matomo_"), dbCfg.TablePrefix)
		require.Equal(t, 5*time.Minute, cfg.LockWait)
		require.Equal(t, "/var/lib/node_exporter/analytics_updater.prom", cfg.MetricsTextfile)
	})

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "missing settings path", body: "logLevel: info", wantErr: "updater.settingsPath: must not be empty"},
		{name: "zero lock ttl", body: "settingsPath: a.yml\n  lockTTL: 0s", wantErr: "updater.lockTTL: must be positive"},
		{name: "negative lock wait", body: "settingsPath: a.yml\n  lockWait: -1s", wantErr: "updater.lockWait: must not be negative"},
		{
			name:    "unknown log level",
			body:    "settingsPath: a.yml\n  logLevel: trace",
			wantErr: `updater.logLevel: unknown value "trace", should be one of [error warn info debug]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadUpdaterConfig("database:\n  dialect: sqlite3\n  sqlite3:\n    path: a.db\nupdater:\n  " + tt.body + "\n")
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
