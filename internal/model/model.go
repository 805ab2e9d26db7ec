// Package model holds the in-memory definition a query function is
// generated from: the target table, its optional detail relation and the
// function's parameters and messages.
//
// Definitions are assembled with the builders in builder.go. A built
// *Function is immutable; accessors hand out copies.
package model

import "github.com/markb/pgfngen/internal/types"

// Kind names the function archetype a definition is generated as.
type Kind string

const (
	KindList                Kind = "list"
	KindSingleRowWithDetail Kind = "single"
)

// Reserved output column names.
const (
	StatusColumn        = "status"
	MessageColumn       = "msg"
	CreatedByColumn     = "created_by"
	UpdatedByColumn     = "updated_by"
	CreatedByNameColumn = "created_by_name"
	UpdatedByNameColumn = "updated_by_name"
)

// Default status messages.
const (
	DefaultSuccessMessage  = "Data found"
	DefaultNotFoundMessage = "No data found"
)

// Column is a table column exposed by the generated function.
type Column struct {
	Name    string
	Type    types.Type
	Ordinal int // 1-based, unique within the owning table
}

// Param is a function input parameter filtering on Column by equality.
type Param struct {
	Name   string
	Type   types.Type
	Column string
}

// Table is a resolved header table.
type Table struct {
	name       QualifiedName
	columns    []Column
	primaryKey string
	sortColumn string
	createdBy  bool
	updatedBy  bool
}

// Name returns the schema-qualified table name.
func (t *Table) Name() QualifiedName { return t.name }

// Columns returns the exposed columns in ordinal order.
func (t *Table) Columns() []Column { return append([]Column(nil), t.columns...) }

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	return findColumn(t.columns, name)
}

// PrimaryKey returns the key column detail rows refer to.
func (t *Table) PrimaryKey() string { return t.primaryKey }

// SortColumn returns the column list results are ordered by.
func (t *Table) SortColumn() string { return t.sortColumn }

// Audit reports which audit columns the table carries.
func (t *Table) Audit() (createdBy, updatedBy bool) { return t.createdBy, t.updatedBy }

// Detail is a resolved detail relation aggregated into one JSON column.
type Detail struct {
	table      QualifiedName
	alias      string
	foreignKey string
	sortColumn string
	columns    []Column
	wildcard   bool
	createdBy  bool
	updatedBy  bool
}

// Table returns the schema-qualified detail table name.
func (d *Detail) Table() QualifiedName { return d.table }

// Alias returns the name of the aggregated JSON output column.
func (d *Detail) Alias() string { return d.alias }

// ForeignKey returns the detail column referencing the header key.
func (d *Detail) ForeignKey() string { return d.foreignKey }

// SortColumn returns the column detail rows are aggregated in order of.
func (d *Detail) SortColumn() string { return d.sortColumn }

// Columns returns the explicitly named detail columns in ordinal order.
func (d *Detail) Columns() []Column { return append([]Column(nil), d.columns...) }

// Wildcard reports whether the relation asked for every column of the row.
func (d *Detail) Wildcard() bool { return d.wildcard }

// Audit reports which audit columns the detail table carries.
func (d *Detail) Audit() (createdBy, updatedBy bool) { return d.createdBy, d.updatedBy }

// Function is a fully resolved function definition.
type Function struct {
	kind     Kind
	name     QualifiedName
	table    *Table
	detail   *Detail
	params   []Param
	success  string
	notFound string
}

// Kind returns the requested archetype.
func (f *Function) Kind() Kind { return f.kind }

// Name returns the schema-qualified function name.
func (f *Function) Name() QualifiedName { return f.name }

// Table returns the header table.
func (f *Function) Table() *Table { return f.table }

// Detail returns the detail relation, or nil.
func (f *Function) Detail() *Detail { return f.detail }

// Params returns the input parameters in declaration order.
func (f *Function) Params() []Param { return append([]Param(nil), f.params...) }

// SuccessMessage returns the message text of the found branch.
func (f *Function) SuccessMessage() string { return f.success }

// NotFoundMessage returns the message text of the not-found branch.
func (f *Function) NotFoundMessage() string { return f.notFound }

// ColumnCount returns the number of table and detail columns the
// definition exposes.
func (f *Function) ColumnCount() int {
	n := len(f.table.columns)
	if f.detail != nil {
		n += len(f.detail.columns)
	}
	return n
}

func findColumn(columns []Column, name string) (Column, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
