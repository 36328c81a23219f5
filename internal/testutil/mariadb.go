/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mariadb"

	"github.com/acronis/go-analyticsdb"
	_ "github.com/acronis/go-analyticsdb/mysql" // mysql driver for connections to the container
)

// MariaDBImage is the image used for integration tests.
const MariaDBImage = "mariadb:10.11"

// MariaDBEnvVar enables tests running against a MariaDB container when set to "1".
const MariaDBEnvVar = "ANALYTICSDB_TEST_MARIADB"

const (
	mariaDBDatabase = "matomo"
	mariaDBUser     = "matomo"
	mariaDBPassword = "matomo"
)

// RequireMariaDB skips the test unless integration tests with MariaDB are enabled.
func RequireMariaDB(t *testing.T) {
	t.Helper()
	if os.Getenv(MariaDBEnvVar) != "1" {
		t.Skipf("set %s=1 to run tests against MariaDB", MariaDBEnvVar)
	}
}

// StartMariaDB starts a MariaDB container removed at the end of the test and returns the config to connect to it.
func StartMariaDB(ctx context.Context, t *testing.T) *analyticsdb.Config {
	t.Helper()
	container, err := mariadb.Run(ctx, MariaDBImage,
		mariadb.WithDatabase(mariaDBDatabase),
		mariadb.WithUsername(mariaDBUser),
		mariadb.WithPassword(mariaDBPassword),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	cfg := analyticsdb.NewDefaultConfig()
	cfg.Dialect = analyticsdb.DialectMySQL
	cfg.MySQL.Host = host
	cfg.MySQL.Port = port.Int()
	cfg.MySQL.Database = mariaDBDatabase
	cfg.MySQL.User = mariaDBUser
	cfg.MySQL.Password = mariaDBPassword
	return cfg
}
