/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeMySQLDSN(t *testing.T) {
	cfg := &MySQLConfig{
		Host:     "myhost",
		Port:     3307,
		User:     "myadmin",
		Password: "mypassword",
		Database: "matomo",
	}
	gotDSN := MakeMySQLDSN(cfg)
	require.Regexp(t, `^myadmin:mypassword@tcp\(myhost:3307\)/matomo\?`, gotDSN)
	require.Contains(t, gotDSN, "parseTime=true")
	require.Contains(t, gotDSN, "charset=utf8mb4")
	require.Contains(t, gotDSN, "clientFoundRows=true")
	require.NotContains(t, gotDSN, "multiStatements")

	cfg.Charset = "utf8"
	require.Contains(t, MakeMySQLDSN(cfg), "charset=utf8")
	require.NotContains(t, MakeMySQLDSN(cfg), "utf8mb4")
}

func TestMakeSQLiteDSN(t *testing.T) {
	tests := []struct {
		Name    string
		Cfg     *SQLiteConfig
		WantDSN string
	}{
		{
			Name:    "in-memory database is shared between connections",
			Cfg:     &SQLiteConfig{Path: ":memory:"},
			WantDSN: "file::memory:?cache=shared",
		},
		{
			Name:    "file",
			Cfg:     &SQLiteConfig{Path: "/var/lib/matomo/matomo.db"},
			WantDSN: "file:/var/lib/matomo/matomo.db?_busy_timeout=5000",
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.Name, func(t *testing.T) {
			require.Equal(t, tt.WantDSN, MakeSQLiteDSN(tt.Cfg))
		})
	}
}
