/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"fmt"
	"strings"

	"github.com/acronis/go-analyticsdb"
)

// Column is a column name with its definition (type, nullability, default).
type Column struct {
	Name string
	Type string
}

// Row maps column names to values of an inserted row.
type Row map[string]interface{}

// Statement is a rendered SQL statement with placeholder arguments.
type Statement struct {
	Query string
	Args  []interface{}
}

func statements(query string) []Statement {
	if query == "" {
		return nil
	}
	return []Statement{{Query: query}}
}

// Builder produces a statement with placeholder arguments (e.g. a goqu dataset).
type Builder interface {
	ToSQL() (string, []interface{}, error)
}

type dbOperation struct {
	prefix  analyticsdb.TablePrefix
	dialect analyticsdb.Dialect
	ignored []ErrorClass
}

// IgnoredErrors returns the error classes meaning that the target state is already reached.
func (o dbOperation) IgnoredErrors() []ErrorClass {
	return o.ignored
}

func (o dbOperation) table(name string) string {
	return o.prefix.Prefix(name)
}

// ChangeColumnType is an operation changing the definition of a column.
type ChangeColumnType struct {
	dbOperation
	Table  string
	Column string
	Type   string
}

// Kind returns KindChangeColumnType.
func (o *ChangeColumnType) Kind() Kind { return KindChangeColumnType }

func (o *ChangeColumnType) String() string {
	return fmt.Sprintf("change type of %s.%s to %s", o.table(o.Table), o.Column, o.Type)
}

// Render renders the statement.
func (o *ChangeColumnType) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table, o.Column); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.Type) == "" {
		return nil, fmt.Errorf("%w: empty type of column %s", ErrInvalidOperation, o.Column)
	}
	return r.changeColumnType(o.table(o.Table), o.Column, strings.TrimSpace(o.Type)), nil
}

// DropColumn is an operation dropping a column.
type DropColumn struct {
	dbOperation
	Table  string
	Column string
}

// Kind returns KindDropColumn.
func (o *DropColumn) Kind() Kind { return KindDropColumn }

func (o *DropColumn) String() string {
	return fmt.Sprintf("drop column %s.%s", o.table(o.Table), o.Column)
}

// Render renders the statement.
func (o *DropColumn) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table, o.Column); err != nil {
		return nil, err
	}
	return r.dropColumn(o.table(o.Table), o.Column), nil
}

// ChangeColumn is an operation renaming a column and changing its definition.
type ChangeColumn struct {
	dbOperation
	Table   string
	OldName string
	NewName string
	Type    string
}

// Kind returns KindChangeColumn.
func (o *ChangeColumn) Kind() Kind { return KindChangeColumn }

func (o *ChangeColumn) String() string {
	return fmt.Sprintf("rename column %s.%s to %s %s", o.table(o.Table), o.OldName, o.NewName, o.Type)
}

// Render renders the statement.
func (o *ChangeColumn) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table, o.OldName, o.NewName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.Type) == "" {
		return nil, fmt.Errorf("%w: empty type of column %s", ErrInvalidOperation, o.NewName)
	}
	return r.changeColumn(o.table(o.Table), o.OldName, o.NewName, strings.TrimSpace(o.Type)), nil
}

// CreateTable is an operation creating a table.
type CreateTable struct {
	dbOperation
	Table      string
	Columns    []Column
	PrimaryKey []string
}

// Kind returns KindCreateTable.
func (o *CreateTable) Kind() Kind { return KindCreateTable }

func (o *CreateTable) String() string {
	return fmt.Sprintf("create table %s", o.table(o.Table))
}

// Render renders the statement.
func (o *CreateTable) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table); err != nil {
		return nil, err
	}
	if len(o.Columns) == 0 {
		return nil, fmt.Errorf("%w: table %s has no columns", ErrInvalidOperation, o.Table)
	}
	if err = requireColumns(o.Columns); err != nil {
		return nil, err
	}
	if err = requireIdents(o.PrimaryKey...); err != nil {
		return nil, err
	}
	return r.createTable(o.table(o.Table), o.Columns, o.PrimaryKey), nil
}

// AddUniqueKey is an operation adding a unique key.
type AddUniqueKey struct {
	dbOperation
	Table   string
	Columns []string
	KeyName string
}

// Kind returns KindAddUniqueKey.
func (o *AddUniqueKey) Kind() Kind { return KindAddUniqueKey }

func (o *AddUniqueKey) String() string {
	return fmt.Sprintf("add unique key %s on %s(%s)", o.KeyName, o.table(o.Table), strings.Join(o.Columns, ", "))
}

// Render renders the statement.
func (o *AddUniqueKey) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if len(o.Columns) == 0 {
		return nil, fmt.Errorf("%w: unique key %s has no columns", ErrInvalidOperation, o.KeyName)
	}
	if err = requireIdents(append([]string{o.Table, o.KeyName}, o.Columns...)...); err != nil {
		return nil, err
	}
	return r.addUniqueKey(o.table(o.Table), o.Columns, o.KeyName), nil
}

// DropIndex is an operation dropping an index.
type DropIndex struct {
	dbOperation
	Table   string
	KeyName string
}

// Kind returns KindDropIndex.
func (o *DropIndex) Kind() Kind { return KindDropIndex }

func (o *DropIndex) String() string {
	return fmt.Sprintf("drop index %s on %s", o.KeyName, o.table(o.Table))
}

// Render renders the statement.
func (o *DropIndex) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table, o.KeyName); err != nil {
		return nil, err
	}
	return r.dropIndex(o.table(o.Table), o.KeyName), nil
}

// Insert is an operation inserting a single row.
type Insert struct {
	dbOperation
	Table string
	Row   Row
}

// Kind returns KindInsert.
func (o *Insert) Kind() Kind { return KindInsert }

func (o *Insert) String() string {
	return fmt.Sprintf("insert into %s", o.table(o.Table))
}

// Render renders the statement.
func (o *Insert) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table); err != nil {
		return nil, err
	}
	if len(o.Row) == 0 {
		return nil, fmt.Errorf("%w: empty row for table %s", ErrInvalidOperation, o.Table)
	}
	return r.insert(o.table(o.Table), o.Row)
}

// SQL is an operation executing a raw statement.
type SQL struct {
	dbOperation
	Query    string
	Args     []interface{}
	buildErr string
}

// Kind returns KindSQL.
func (o *SQL) Kind() Kind { return KindSQL }

func (o *SQL) String() string {
	return o.Query
}

// Render returns the statement as is.
func (o *SQL) Render() ([]Statement, error) {
	if o.buildErr != "" {
		return nil, fmt.Errorf("%w: build statement: %s", ErrInvalidOperation, o.buildErr)
	}
	if strings.TrimSpace(o.Query) == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrInvalidOperation)
	}
	return []Statement{{Query: o.Query, Args: o.Args}}, nil
}

// AddColumns is an operation adding one or more columns.
type AddColumns struct {
	dbOperation
	Table   string
	Columns []Column
}

// Kind returns KindAddColumns.
func (o *AddColumns) Kind() Kind { return KindAddColumns }

func (o *AddColumns) String() string {
	names := make([]string, 0, len(o.Columns))
	for _, c := range o.Columns {
		names = append(names, c.Name)
	}
	return fmt.Sprintf("add columns %s to %s", strings.Join(names, ", "), o.table(o.Table))
}

// Render renders the statement.
func (o *AddColumns) Render() ([]Statement, error) {
	r, err := rendererFor(o.dialect)
	if err != nil {
		return nil, err
	}
	if err = requireIdents(o.Table); err != nil {
		return nil, err
	}
	if len(o.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns to add to %s", ErrInvalidOperation, o.Table)
	}
	if err = requireColumns(o.Columns); err != nil {
		return nil, err
	}
	return r.addColumns(o.table(o.Table), o.Columns), nil
}

func requireIdents(idents ...string) error {
	for _, ident := range idents {
		if ident == "" || strings.ContainsAny(ident, "`\"'; \t\n") {
			return fmt.Errorf("%w: bad identifier %q", ErrInvalidOperation, ident)
		}
	}
	return nil
}

func requireColumns(columns []Column) error {
	for _, c := range columns {
		if err := requireIdents(c.Name); err != nil {
			return err
		}
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("%w: empty type of column %s", ErrInvalidOperation, c.Name)
		}
	}
	return nil
}
