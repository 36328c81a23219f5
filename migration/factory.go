/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"github.com/doug-martin/goqu/v9"

	"github.com/acronis/go-analyticsdb"
)

// Factory creates operations for an installation.
// Database operations take unprefixed table names; the factory applies the installation prefix.
type Factory struct {
	DB     *DBFactory
	Plugin *PluginFactory
	Config *ConfigFactory
}

// NewFactory creates a new Factory for the installation prefix and dialect.
func NewFactory(prefix analyticsdb.TablePrefix, dialect analyticsdb.Dialect) *Factory {
	return &Factory{
		DB:     &DBFactory{prefix: prefix, dialect: dialect},
		Plugin: &PluginFactory{},
		Config: &ConfigFactory{},
	}
}

// DBFactory creates database operations.
type DBFactory struct {
	prefix  analyticsdb.TablePrefix
	dialect analyticsdb.Dialect
}

// Table returns the prefixed table name.
func (f *DBFactory) Table(name string) string {
	return f.prefix.Prefix(name)
}

// Dialect returns a goqu dialect for building statements passed to SQLFromBuilder.
func (f *DBFactory) Dialect() goqu.DialectWrapper {
	return goqu.Dialect(f.dialect.GoquDialect())
}

func (f *DBFactory) base(ignored ...ErrorClass) dbOperation {
	return dbOperation{prefix: f.prefix, dialect: f.dialect, ignored: ignored}
}

// ChangeColumnType changes the definition of an existing column.
func (f *DBFactory) ChangeColumnType(table, column, columnType string) *ChangeColumnType {
	return &ChangeColumnType{
		dbOperation: f.base(ErrorClassColumnNotExists),
		Table:       table,
		Column:      column,
		Type:        columnType,
	}
}

// DropColumn drops a column.
func (f *DBFactory) DropColumn(table, column string) *DropColumn {
	return &DropColumn{dbOperation: f.base(ErrorClassColumnNotExists), Table: table, Column: column}
}

// ChangeColumn renames a column and changes its definition.
func (f *DBFactory) ChangeColumn(table, oldName, newName, columnType string) *ChangeColumn {
	return &ChangeColumn{
		dbOperation: f.base(ErrorClassColumnNotExists),
		Table:       table,
		OldName:     oldName,
		NewName:     newName,
		Type:        columnType,
	}
}

// CreateTable creates a table. Columns are created in the given order.
func (f *DBFactory) CreateTable(table string, columns []Column, primaryKey ...string) *CreateTable {
	return &CreateTable{
		dbOperation: f.base(ErrorClassTableExists),
		Table:       table,
		Columns:     columns,
		PrimaryKey:  primaryKey,
	}
}

// AddUniqueKey adds a unique key over the columns.
func (f *DBFactory) AddUniqueKey(table string, columns []string, keyName string) *AddUniqueKey {
	return &AddUniqueKey{
		dbOperation: f.base(ErrorClassDuplicateKey),
		Table:       table,
		Columns:     columns,
		KeyName:     keyName,
	}
}

// DropIndex drops an index (or unique key) of the table.
func (f *DBFactory) DropIndex(table, keyName string) *DropIndex {
	return &DropIndex{dbOperation: f.base(ErrorClassKeyNotExists), Table: table, KeyName: keyName}
}

// Insert inserts a single row.
func (f *DBFactory) Insert(table string, row Row) *Insert {
	return &Insert{dbOperation: f.base(ErrorClassDuplicateEntry), Table: table, Row: row}
}

// SQL executes a raw statement. Table names inside the statement must already be prefixed.
func (f *DBFactory) SQL(query string, ignored ...ErrorClass) *SQL {
	return &SQL{dbOperation: f.base(ignored...), Query: query}
}

// SQLFromBuilder executes the statement produced by a goqu builder.
// A builder error is reported when the operation is rendered.
func (f *DBFactory) SQLFromBuilder(b Builder, ignored ...ErrorClass) *SQL {
	query, args, err := b.ToSQL()
	op := &SQL{dbOperation: f.base(ignored...), Query: query, Args: args}
	if err != nil {
		op.buildErr = err.Error()
	}
	return op
}

// AddColumn adds a single column.
func (f *DBFactory) AddColumn(table, column, columnType string) *AddColumns {
	return f.AddColumns(table, []Column{{Name: column, Type: columnType}})
}

// AddColumns adds several columns with one statement.
func (f *DBFactory) AddColumns(table string, columns []Column) *AddColumns {
	return &AddColumns{dbOperation: f.base(ErrorClassDuplicateColumn), Table: table, Columns: columns}
}

// PluginFactory creates plugin operations.
type PluginFactory struct{}

// Activate activates the plugin (installing it if needed).
func (f *PluginFactory) Activate(plugin string) *PluginOperation {
	return &PluginOperation{kind: KindActivatePlugin, Plugin: plugin}
}

// Deactivate deactivates the plugin.
func (f *PluginFactory) Deactivate(plugin string) *PluginOperation {
	return &PluginOperation{kind: KindDeactivatePlugin, Plugin: plugin}
}

// Uninstall removes the plugin from the installed plugins.
func (f *PluginFactory) Uninstall(plugin string) *PluginOperation {
	return &PluginOperation{kind: KindUninstallPlugin, Plugin: plugin}
}

// ConfigFactory creates config operations.
type ConfigFactory struct{}

// Set sets section.key to value.
func (f *ConfigFactory) Set(section, key, value string) *ConfigOperation {
	return &ConfigOperation{Section: section, Key: key, Value: value}
}
