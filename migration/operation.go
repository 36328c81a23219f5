/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"errors"
	"fmt"
)

// Errors returned when an operation is rendered.
var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrUnsupportedDialect = errors.New("unsupported dialect")
)

// Kind identifies the variant of an operation.
type Kind string

// Operation kinds.
const (
	KindChangeColumnType Kind = "change_column_type"
	KindDropColumn       Kind = "drop_column"
	KindChangeColumn     Kind = "change_column"
	KindCreateTable      Kind = "create_table"
	KindAddUniqueKey     Kind = "add_unique_key"
	KindDropIndex        Kind = "drop_index"
	KindInsert           Kind = "insert"
	KindSQL              Kind = "sql"
	KindAddColumns       Kind = "add_columns"
	KindActivatePlugin   Kind = "activate_plugin"
	KindDeactivatePlugin Kind = "deactivate_plugin"
	KindUninstallPlugin  Kind = "uninstall_plugin"
	KindSetConfig        Kind = "set_config"
)

// Operation is a single declared change awaiting execution.
type Operation interface {
	Kind() Kind
	String() string
}

// DBOperation is an operation executed as a single SQL statement.
type DBOperation interface {
	Operation

	// Render returns the statements for the dialect the operation was declared for.
	// No statements means that the dialect has nothing to do for the operation.
	Render() ([]Statement, error)

	// IgnoredErrors returns the error classes meaning that the target state is already reached.
	IgnoredErrors() []ErrorClass
}

// ErrorClass is a driver-independent category of a database error.
type ErrorClass int

// Error classes.
const (
	ErrorClassTableExists ErrorClass = iota + 1
	ErrorClassDuplicateColumn
	ErrorClassColumnNotExists
	ErrorClassDuplicateKey
	ErrorClassDuplicateEntry
	ErrorClassKeyNotExists
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTableExists:
		return "table exists"
	case ErrorClassDuplicateColumn:
		return "duplicate column"
	case ErrorClassColumnNotExists:
		return "column not exists"
	case ErrorClassDuplicateKey:
		return "duplicate key"
	case ErrorClassDuplicateEntry:
		return "duplicate entry"
	case ErrorClassKeyNotExists:
		return "key not exists"
	}
	return fmt.Sprintf("error class %d", int(c))
}

// Ignores reports whether the operation tolerates errors of the class.
func Ignores(op DBOperation, class ErrorClass) bool {
	for _, c := range op.IgnoredErrors() {
		if c == class {
			return true
		}
	}
	return false
}

// PluginOperation activates, deactivates or uninstalls a plugin.
type PluginOperation struct {
	kind   Kind
	Plugin string
}

// Kind returns one of KindActivatePlugin, KindDeactivatePlugin or KindUninstallPlugin.
func (o *PluginOperation) Kind() Kind {
	return o.kind
}

func (o *PluginOperation) String() string {
	switch o.kind {
	case KindActivatePlugin:
		return "activate plugin " + o.Plugin
	case KindDeactivatePlugin:
		return "deactivate plugin " + o.Plugin
	case KindUninstallPlugin:
		return "uninstall plugin " + o.Plugin
	}
	return string(o.kind) + " " + o.Plugin
}

// ConfigOperation sets a value of the installation config.
type ConfigOperation struct {
	Section string
	Key     string
	Value   string
}

// Kind returns KindSetConfig.
func (o *ConfigOperation) Kind() Kind {
	return KindSetConfig
}

func (o *ConfigOperation) String() string {
	return fmt.Sprintf("set config %s.%s = %q", o.Section, o.Key, o.Value)
}
