/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updates

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/acronis/go-analyticsdb/migration"
)

// TokenMigrationDescription is the description of the tokens moved into user_token_auth.
const TokenMigrationDescription = "Created by Matomo 4 migration"

// TokenDateFormat is the layout of DATETIME values written by updates.
const TokenDateFormat = "2006-01-02 15:04:05"

var conversionRevenueColumns = []string{
	"revenue", "revenue_discount", "revenue_shipping", "revenue_subtotal", "revenue_tax",
}

var obsoleteGeoIPOptions = []interface{}{
	"geoip.updater_period", "geoip.loc_db_url", "geoip.isp_db_url", "geoip.org_db_url",
}

// Update400B1 moves legacy user tokens into a dedicated table, prepares indexed columns for
// utf8mb4, moves site search values out of custom variables and cleans up plugins, options and config.
type Update400B1 struct{}

// Version returns "4.0.0-b1".
func (u *Update400B1) Version() string {
	return "4.0.0-b1"
}

// Operations returns the operations of the update.
func (u *Update400B1) Operations(s *Snapshot, f *migration.Factory) []migration.Operation {
	var ops []migration.Operation

	ops = append(ops,
		f.DB.ChangeColumnType("log_action", "name", "VARCHAR(4096)"),
		f.DB.ChangeColumnType("log_conversion", "url", "VARCHAR(4096)"),
		f.DB.DropColumn("log_visit", "config_gears"),
		f.DB.DropColumn("log_visit", "config_director"),
		f.DB.ChangeColumn("log_link_visit_action", "interaction_position", "pageview_position", "MEDIUMINT UNSIGNED DEFAULT NULL"),
	)

	ops = append(ops, u.tokenAuthOperations(s, f)...)

	// Read before CustomPiwikJs gets deactivated below.
	customTrackerActive := s.IsPluginActivated("CustomPiwikJs")
	ops = append(ops,
		f.Plugin.Activate("BulkTracking"),
		f.Plugin.Deactivate("CustomPiwikJs"),
		f.Plugin.Uninstall("CustomPiwikJs"),
	)
	if customTrackerActive {
		ops = append(ops, f.Plugin.Activate("CustomJsTracker"))
	}

	// Indexed columns must fit the maximum key length of utf8mb4.
	ops = append(ops,
		f.DB.ChangeColumnType("session", "id", "VARCHAR(191)"),
		f.DB.ChangeColumnType("site_url", "url", "VARCHAR(190)"),
		f.DB.ChangeColumnType("option", "option_name", "VARCHAR(191)"),
	)
	for _, table := range s.Tables {
		if strings.Contains(table, "archive_") {
			ops = append(ops, f.DB.ChangeColumnType(s.Prefix.Unprefix(table), "name", "VARCHAR(190)"))
		}
	}

	// Site search values move out of custom variables into their own columns.
	ops = append(ops,
		f.DB.AddColumn("log_link_visit_action", "search_cat", "VARCHAR(200) NULL"),
		f.DB.AddColumn("log_link_visit_action", "search_count", "INTEGER(10) UNSIGNED NULL"),
	)
	if s.IsPluginInstalled("CustomDimensions") {
		visitAction := f.DB.Table("log_link_visit_action")
		ops = append(ops,
			f.DB.SQLFromBuilder(f.DB.Dialect().Update(visitAction).
				Set(goqu.Record{"search_cat": goqu.C("custom_var_v4")}).
				Where(goqu.C("custom_var_k4").Eq("_pk_scat")).
				Prepared(true)),
			f.DB.SQLFromBuilder(f.DB.Dialect().Update(visitAction).
				Set(goqu.Record{"search_count": goqu.C("custom_var_v5")}).
				Where(goqu.C("custom_var_k5").Eq("_pk_scount")).
				Prepared(true)),
		)
	}

	// Users still on GeoIP legacy get its successor; others may have disabled it on purpose.
	if IsLegacyLocationProvider(s.LocationProvider) {
		ops = append(ops, f.Plugin.Activate("GeoIp2"))
	}

	ops = append(ops, f.DB.SQLFromBuilder(f.DB.Dialect().Delete(f.DB.Table("option")).
		Where(goqu.C("option_name").In(obsoleteGeoIPOptions...)).
		Prepared(true)))

	var revenueColumns []migration.Column
	for _, column := range conversionRevenueColumns {
		if !s.HasColumn("log_conversion", column) {
			revenueColumns = append(revenueColumns, migration.Column{Name: column, Type: "DOUBLE NULL DEFAULT NULL"})
		}
	}
	if len(revenueColumns) != 0 {
		ops = append(ops, f.DB.AddColumns("log_conversion", revenueColumns))
	}

	if s.ConfigValue("mail", "type") == "Crammd5" {
		ops = append(ops, f.Config.Set("mail", "type", "Cram-md5"))
	}

	return ops
}

// tokenAuthOperations creates user_token_auth and moves legacy tokens into it.
// The inserts read the legacy tokens, so they precede dropping user.token_auth.
func (u *Update400B1) tokenAuthOperations(s *Snapshot, f *migration.Factory) []migration.Operation {
	ops := []migration.Operation{
		f.DB.CreateTable("user_token_auth", []migration.Column{
			{Name: "idusertokenauth", Type: "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT"},
			{Name: "login", Type: "VARCHAR(100) NOT NULL"},
			{Name: "description", Type: "VARCHAR(100) NOT NULL"},
			{Name: "password", Type: "VARCHAR(191) NOT NULL"},
			{Name: "system_token", Type: "TINYINT(1) NOT NULL DEFAULT 0"},
			{Name: "hash_algo", Type: "VARCHAR(30) NOT NULL"},
			{Name: "last_used", Type: "DATETIME NULL"},
			{Name: "date_created", Type: "DATETIME NOT NULL"},
			{Name: "date_expired", Type: "DATETIME NULL"},
		}, "idusertokenauth"),
		f.DB.AddUniqueKey("user_token_auth", []string{"password"}, "uniq_password"),
		f.DB.DropIndex("user", "uniq_keytoken"),
	}

	salt := s.ConfigValue("general", "salt")
	created := s.Now.UTC().Format(TokenDateFormat)
	for _, user := range s.Users {
		if user.TokenAuth == "" {
			continue
		}
		ops = append(ops, f.DB.Insert("user_token_auth", migration.Row{
			"login":        user.Login,
			"description":  TokenMigrationDescription,
			"password":     HashTokenAuth(user.TokenAuth, salt),
			"hash_algo":    TokenHashAlgo,
			"date_created": created,
		}))
	}

	return append(ops,
		f.DB.DropColumn("user", "alias"),
		f.DB.DropColumn("user", "token_auth"),
	)
}

// AfterApply switches installations still using a GeoIP legacy provider to the default provider.
func (u *Update400B1) AfterApply(ctx context.Context, providers LocationProviderStore) error {
	current, err := providers.LocationProvider(ctx)
	if err != nil {
		return fmt.Errorf("get location provider: %w", err)
	}
	if !IsLegacyLocationProvider(current) {
		return nil
	}
	if err = providers.SetLocationProvider(ctx, LocationProviderDefault); err != nil {
		return fmt.Errorf("set location provider: %w", err)
	}
	return nil
}
