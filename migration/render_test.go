/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-analyticsdb"
)

func tokenTableColumns() []Column {
	return []Column{
		{Name: "idusertokenauth", Type: "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT"},
		{Name: "login", Type: "VARCHAR(100) NOT NULL"},
		{Name: "date_created", Type: " DATETIME NOT NULL"},
	}
}

func TestRender(t *testing.T) {
	mysqlF := NewFactory("matomo_", analyticsdb.DialectMySQL).DB
	sqliteF := NewFactory("matomo_", analyticsdb.DialectSQLite).DB

	tests := []struct {
		name string
		op   DBOperation
		want []Statement
	}{
		{
			name: "mysql change column type",
			op:   mysqlF.ChangeColumnType("log_action", "name", "VARCHAR(4096)"),
			want: []Statement{{Query: "ALTER TABLE `matomo_log_action` MODIFY COLUMN `name` VARCHAR(4096)"}},
		},
		{
			name: "sqlite change column type",
			op:   sqliteF.ChangeColumnType("log_action", "name", "VARCHAR(4096)"),
			want: nil,
		},
		{
			name: "mysql drop column",
			op:   mysqlF.DropColumn("log_visit", "config_gears"),
			want: []Statement{{Query: "ALTER TABLE `matomo_log_visit` DROP COLUMN `config_gears`"}},
		},
		{
			name: "sqlite drop column",
			op:   sqliteF.DropColumn("log_visit", "config_gears"),
			want: []Statement{{Query: `ALTER TABLE "matomo_log_visit" DROP COLUMN "config_gears"`}},
		},
		{
			name: "mysql change column",
			op:   mysqlF.ChangeColumn("log_link_visit_action", "interaction_position", "pageview_position", "MEDIUMINT UNSIGNED DEFAULT NULL"),
			want: []Statement{{Query: "ALTER TABLE `matomo_log_link_visit_action` CHANGE `interaction_position` `pageview_position` MEDIUMINT UNSIGNED DEFAULT NULL"}},
		},
		{
			name: "sqlite change column",
			op:   sqliteF.ChangeColumn("log_link_visit_action", "interaction_position", "pageview_position", "MEDIUMINT UNSIGNED DEFAULT NULL"),
			want: []Statement{{Query: `ALTER TABLE "matomo_log_link_visit_action" RENAME COLUMN "interaction_position" TO "pageview_position"`}},
		},
		{
			name: "sqlite change column keeping name",
			op:   sqliteF.ChangeColumn("log_link_visit_action", "pageview_position", "pageview_position", "INTEGER"),
			want: nil,
		},
		{
			name: "mysql create table",
			op:   mysqlF.CreateTable("user_token_auth", tokenTableColumns(), "idusertokenauth"),
			want: []Statement{{Query: "CREATE TABLE `matomo_user_token_auth` (" +
				"`idusertokenauth` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT, `login` VARCHAR(100) NOT NULL, " +
				"`date_created` DATETIME NOT NULL, PRIMARY KEY (`idusertokenauth`)) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"}},
		},
		{
			name: "sqlite create table",
			op:   sqliteF.CreateTable("user_token_auth", tokenTableColumns(), "idusertokenauth"),
			want: []Statement{{Query: `CREATE TABLE "matomo_user_token_auth" (` +
				`"idusertokenauth" INTEGER PRIMARY KEY AUTOINCREMENT, "login" VARCHAR(100) NOT NULL, "date_created" DATETIME NOT NULL)`}},
		},
		{
			name: "sqlite create table with composite key",
			op: sqliteF.CreateTable("session", []Column{
				{Name: "id", Type: "VARCHAR(191) NOT NULL"},
				{Name: "modified", Type: "INTEGER UNSIGNED"},
			}, "id", "modified"),
			want: []Statement{{Query: `CREATE TABLE "matomo_session" ("id" VARCHAR(191) NOT NULL, "modified" INTEGER, PRIMARY KEY ("id", "modified"))`}},
		},
		{
			name: "mysql add unique key",
			op:   mysqlF.AddUniqueKey("user_token_auth", []string{"password"}, "uniq_password"),
			want: []Statement{{Query: "ALTER TABLE `matomo_user_token_auth` ADD UNIQUE KEY `uniq_password` (`password`)"}},
		},
		{
			name: "sqlite add unique key",
			op:   sqliteF.AddUniqueKey("user_token_auth", []string{"password"}, "uniq_password"),
			want: []Statement{{Query: `CREATE UNIQUE INDEX "uniq_password" ON "matomo_user_token_auth" ("password")`}},
		},
		{
			name: "mysql drop index",
			op:   mysqlF.DropIndex("user", "uniq_keytoken"),
			want: []Statement{{Query: "ALTER TABLE `matomo_user` DROP INDEX `uniq_keytoken`"}},
		},
		{
			name: "sqlite drop index",
			op:   sqliteF.DropIndex("user", "uniq_keytoken"),
			want: []Statement{{Query: `DROP INDEX "uniq_keytoken"`}},
		},
		{
			name: "mysql insert",
			op:   mysqlF.Insert("user_token_auth", Row{"login": "admin", "password": "hash"}),
			want: []Statement{{
				Query: "INSERT INTO `matomo_user_token_auth` (`login`, `password`) VALUES (?, ?)",
				Args:  []interface{}{"admin", "hash"},
			}},
		},
		{
			name: "mysql add columns",
			op: mysqlF.AddColumns("log_conversion", []Column{
				{Name: "revenue", Type: "DOUBLE NULL DEFAULT NULL"},
				{Name: "revenue_tax", Type: "DOUBLE NULL DEFAULT NULL"},
			}),
			want: []Statement{{Query: "ALTER TABLE `matomo_log_conversion` ADD COLUMN `revenue` DOUBLE NULL DEFAULT NULL, ADD COLUMN `revenue_tax` DOUBLE NULL DEFAULT NULL"}},
		},
		{
			name: "sqlite add columns",
			op: sqliteF.AddColumns("log_conversion", []Column{
				{Name: "revenue", Type: "DOUBLE NULL DEFAULT NULL"},
				{Name: "revenue_tax", Type: "DOUBLE NULL DEFAULT NULL"},
			}),
			want: []Statement{
				{Query: `ALTER TABLE "matomo_log_conversion" ADD COLUMN "revenue" DOUBLE NULL DEFAULT NULL`},
				{Query: `ALTER TABLE "matomo_log_conversion" ADD COLUMN "revenue_tax" DOUBLE NULL DEFAULT NULL`},
			},
		},
		{
			name: "sqlite add column",
			op:   sqliteF.AddColumn("log_link_visit_action", "search_count", "INTEGER(10) UNSIGNED NULL"),
			want: []Statement{{Query: `ALTER TABLE "matomo_log_link_visit_action" ADD COLUMN "search_count" INTEGER(10) NULL`}},
		},
		{
			name: "raw sql",
			op:   mysqlF.SQL("UPDATE matomo_option SET autoload = 1"),
			want: []Statement{{Query: "UPDATE matomo_option SET autoload = 1"}},
		},
		{
			name: "sql from builder",
			op:   mysqlF.SQLFromBuilder(mysqlF.Dialect().Delete(mysqlF.Table("option")).Where(goquEq("option_name", "x")).Prepared(true)),
			want: []Statement{{Query: "DELETE `matomo_option` FROM `matomo_option` WHERE (`option_name` = ?)", Args: []interface{}{"x"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Render()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	mysqlF := NewFactory("matomo_", analyticsdb.DialectMySQL).DB
	unknownF := NewFactory("matomo_", "oracle").DB

	tests := []struct {
		name    string
		op      DBOperation
		wantErr error
	}{
		{name: "unsupported dialect", op: unknownF.DropColumn("user", "alias"), wantErr: ErrUnsupportedDialect},
		{name: "empty table", op: mysqlF.DropColumn("", "alias"), wantErr: ErrInvalidOperation},
		{name: "quoted identifier", op: mysqlF.DropColumn("user", "alias`; DROP TABLE x"), wantErr: ErrInvalidOperation},
		{name: "empty type", op: mysqlF.ChangeColumnType("user", "alias", " "), wantErr: ErrInvalidOperation},
		{name: "create table without columns", op: mysqlF.CreateTable("t", nil), wantErr: ErrInvalidOperation},
		{name: "create table with untyped column", op: mysqlF.CreateTable("t", []Column{{Name: "id"}}), wantErr: ErrInvalidOperation},
		{name: "unique key without columns", op: mysqlF.AddUniqueKey("t", nil, "k"), wantErr: ErrInvalidOperation},
		{name: "insert empty row", op: mysqlF.Insert("t", Row{}), wantErr: ErrInvalidOperation},
		{name: "empty raw sql", op: mysqlF.SQL("  "), wantErr: ErrInvalidOperation},
		{name: "add no columns", op: mysqlF.AddColumns("t", nil), wantErr: ErrInvalidOperation},
		{name: "builder error", op: mysqlF.SQLFromBuilder(failingBuilder{}), wantErr: ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Render()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSQLiteColumnType(t *testing.T) {
	tests := []struct {
		def           string
		want          string
		autoIncrement bool
	}{
		{def: "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT", want: "BIGINT NOT NULL", autoIncrement: true},
		{def: "MEDIUMINT unsigned DEFAULT NULL", want: "MEDIUMINT DEFAULT NULL"},
		{def: "  VARCHAR(100)   NOT NULL ", want: "VARCHAR(100) NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			got, autoIncrement := sqliteColumnType(tt.def)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.autoIncrement, autoIncrement)
		})
	}
}
