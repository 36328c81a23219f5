/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatePreUpdateInstallation(t *testing.T) {
	ctx := context.Background()
	conn := OpenSQLite(t, nil)
	require.NoError(t, CreatePreUpdateInstallation(ctx, conn.DB, "matomo_"))

	var version string
	require.NoError(t, conn.NewSession(nil).Select("option_value").From("matomo_option").
		Where("option_name = ?", "version_core").LoadOneContext(ctx, &version))
	require.Equal(t, FixtureVersion, version)

	var users int
	require.NoError(t, conn.NewSession(nil).Select("COUNT(*)").From("matomo_user").
		Where("token_auth <> ''").LoadOneContext(ctx, &users))
	require.Equal(t, 2, users)
}
