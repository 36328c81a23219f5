/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updater

import (
	"context"
	"strings"
	"testing"

	"github.com/acronis/go-appkit/log"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
	"github.com/acronis/go-analyticsdb/dbrutil"
	"github.com/acronis/go-analyticsdb/instance"
	analyticstestutil "github.com/acronis/go-analyticsdb/internal/testutil"
	"github.com/acronis/go-analyticsdb/updates"
)

func TestApplyPending_MariaDB(t *testing.T) {
	analyticstestutil.RequireMariaDB(t)
	ctx := context.Background()

	cfg := analyticstestutil.StartMariaDB(ctx, t)
	conn, err := dbrutil.Open(cfg, true, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, analyticstestutil.CreatePreUpdateInstallation(ctx, conn.DB, fixturePrefix))

	settings, err := instance.ReadSettings(strings.NewReader(analyticstestutil.PreUpdateSettings))
	require.NoError(t, err)
	inspector, err := instance.NewInspector(conn, analyticsdb.DialectMySQL, fixturePrefix, settings)
	require.NoError(t, err)
	u, err := New(conn, analyticsdb.DialectMySQL, log.NewDisabledLogger(), instance.NewPluginManager(settings), settings)
	require.NoError(t, err)

	pending, err := updates.Pending(analyticstestutil.FixtureVersion)
	require.NoError(t, err)
	applied, err := u.ApplyPending(ctx, inspector, pending...)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	columns, err := inspector.Columns(ctx, "matomo_user")
	require.NoError(t, err)
	require.NotContains(t, columns, "token_auth")
	require.NotContains(t, columns, "alias")

	var tokens int
	require.NoError(t, conn.NewSession(nil).Select("COUNT(*)").From("matomo_user_token_auth").LoadOneContext(ctx, &tokens))
	require.Equal(t, 2, tokens)

	// Re-running a forgotten update only hits ignorable errors.
	_, err = conn.NewSession(nil).DeleteFrom(DefaultTableName).ExecContext(ctx)
	require.NoError(t, err)
	applied, err = u.ApplyPending(ctx, inspector, pending...)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	version, err := inspector.CoreVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "4.0.0-b1", version)
}
