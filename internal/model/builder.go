package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/markb/pgfngen/internal/types"
)

// maxIdentifierLen mirrors PostgreSQL's NAMEDATALEN-1.
const maxIdentifierLen = 63

type rawColumn struct {
	name    string
	typ     string
	ordinal int
}

// TableBuilder assembles a header table.
type TableBuilder struct {
	name       string
	columns    []rawColumn
	primaryKey string
	sortColumn string
	createdBy  bool
	updatedBy  bool
}

// NewTable starts a table definition. The name may be schema-qualified.
func NewTable(name string) *TableBuilder {
	return &TableBuilder{name: name, primaryKey: "id"}
}

// Column appends a column; its ordinal is its position in the builder.
func (b *TableBuilder) Column(name, typ string) *TableBuilder {
	return b.ColumnAt(name, typ, len(b.columns)+1)
}

// ColumnAt appends a column with an explicit ordinal.
func (b *TableBuilder) ColumnAt(name, typ string, ordinal int) *TableBuilder {
	b.columns = append(b.columns, rawColumn{name: name, typ: typ, ordinal: ordinal})
	return b
}

// PrimaryKey sets the key column. Defaults to "id".
func (b *TableBuilder) PrimaryKey(column string) *TableBuilder {
	b.primaryKey = column
	return b
}

// SortBy sets the ordering column. Defaults to the primary key.
func (b *TableBuilder) SortBy(column string) *TableBuilder {
	b.sortColumn = column
	return b
}

// Audit declares the created_by / updated_by audit columns.
func (b *TableBuilder) Audit(createdBy, updatedBy bool) *TableBuilder {
	b.createdBy, b.updatedBy = createdBy, updatedBy
	return b
}

// Build resolves the table, reporting every problem found.
func (b *TableBuilder) Build() (*Table, error) {
	return b.build("table")
}

func (b *TableBuilder) build(field string) (*Table, error) {
	var errs []error

	t := &Table{
		name:       ParseQualifiedName(b.name),
		primaryKey: b.primaryKey,
		sortColumn: b.sortColumn,
		createdBy:  b.createdBy,
		updatedBy:  b.updatedBy,
	}
	if t.sortColumn == "" {
		t.sortColumn = t.primaryKey
	}

	errs = append(errs, checkName(field+".name", t.name)...)

	columns, colErrs := resolveColumns(field+".columns", b.columns)
	t.columns = columns
	errs = append(errs, colErrs...)

	if len(b.columns) > 0 {
		if _, ok := findColumn(columns, t.primaryKey); !ok {
			errs = append(errs, invalid(field+".primary_key", "column %q is not declared", t.primaryKey))
		}
		if _, ok := findColumn(columns, t.sortColumn); !ok && t.sortColumn != t.primaryKey {
			errs = append(errs, invalid(field+".sort", "column %q is not declared", t.sortColumn))
		}
	}

	for _, name := range t.derivedOutputs() {
		if _, ok := findColumn(columns, name); ok {
			errs = append(errs, invalid(field+".columns", "column %q collides with a generated output column", name))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// derivedOutputs lists the output columns generated alongside the table
// columns: the status pair and the audit display names.
func (t *Table) derivedOutputs() []string {
	names := []string{StatusColumn, MessageColumn}
	if t.createdBy {
		names = append(names, CreatedByNameColumn)
	}
	if t.updatedBy {
		names = append(names, UpdatedByNameColumn)
	}
	return names
}

// outputNames is the set of every RETURNS column name of a function over
// t and d. d may be nil.
func outputNames(t *Table, d *Detail) map[string]bool {
	names := make(map[string]bool)
	for _, name := range t.derivedOutputs() {
		names[name] = true
	}
	for _, c := range t.columns {
		names[c.Name] = true
	}
	if d != nil {
		names[d.alias] = true
	}
	return names
}

// DetailBuilder assembles a detail relation.
type DetailBuilder struct {
	table      string
	alias      string
	foreignKey string
	sortColumn string
	columns    []rawColumn
	wildcard   bool
	createdBy  bool
	updatedBy  bool
}

// NewDetail starts a detail relation on the given (optionally
// schema-qualified) table.
func NewDetail(table string) *DetailBuilder {
	return &DetailBuilder{table: table}
}

// ForeignKey sets the detail column referencing the header key.
func (b *DetailBuilder) ForeignKey(column string) *DetailBuilder {
	b.foreignKey = column
	return b
}

// SortBy sets the column detail rows are aggregated in order of.
func (b *DetailBuilder) SortBy(column string) *DetailBuilder {
	b.sortColumn = column
	return b
}

// Column exposes a detail column; its ordinal is its position in the
// builder.
func (b *DetailBuilder) Column(name, typ string) *DetailBuilder {
	return b.ColumnAt(name, typ, len(b.columns)+1)
}

// ColumnAt exposes a detail column with an explicit ordinal, which fixes
// its position among the JSON members.
func (b *DetailBuilder) ColumnAt(name, typ string, ordinal int) *DetailBuilder {
	b.columns = append(b.columns, rawColumn{name: name, typ: typ, ordinal: ordinal})
	return b
}

// AllColumns asks for every column of the detail row. Such a relation
// builds, but never passes conformance.
func (b *DetailBuilder) AllColumns() *DetailBuilder {
	b.wildcard = true
	return b
}

// Audit declares the detail table's created_by / updated_by columns.
func (b *DetailBuilder) Audit(createdBy, updatedBy bool) *DetailBuilder {
	b.createdBy, b.updatedBy = createdBy, updatedBy
	return b
}

// As names the aggregated JSON output column. Defaults to the bare
// detail table name.
func (b *DetailBuilder) As(alias string) *DetailBuilder {
	b.alias = alias
	return b
}

func (b *DetailBuilder) build(field string) (*Detail, error) {
	var errs []error

	d := &Detail{
		table:      ParseQualifiedName(b.table),
		alias:      b.alias,
		foreignKey: b.foreignKey,
		sortColumn: b.sortColumn,
		wildcard:   b.wildcard,
		createdBy:  b.createdBy,
		updatedBy:  b.updatedBy,
	}
	if d.alias == "" {
		d.alias = d.table.Name
	}

	errs = append(errs, checkName(field+".table", d.table)...)
	errs = append(errs, checkIdentifier(field+".alias", d.alias)...)

	if b.wildcard && len(b.columns) > 0 {
		errs = append(errs, invalid(field+".columns", "explicit columns cannot be combined with all columns"))
	}
	if !b.wildcard {
		columns, colErrs := resolveColumns(field+".columns", b.columns)
		d.columns = columns
		errs = append(errs, colErrs...)
	}

	if d.foreignKey == "" {
		errs = append(errs, invalid(field+".foreign_key", "foreign key column is required"))
	} else if !b.wildcard {
		if _, ok := findColumn(d.columns, d.foreignKey); !ok {
			errs = append(errs, invalid(field+".foreign_key", "column %q is not among the detail columns", d.foreignKey))
		}
	}

	if d.sortColumn == "" {
		d.sortColumn = d.foreignKey
	} else if !b.wildcard {
		if _, ok := findColumn(d.columns, d.sortColumn); !ok {
			errs = append(errs, invalid(field+".sort", "column %q is not among the detail columns", d.sortColumn))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

type rawParam struct {
	name   string
	typ    string
	column string
}

// FunctionBuilder assembles a function definition.
type FunctionBuilder struct {
	kind     Kind
	name     string
	table    *TableBuilder
	detail   *DetailBuilder
	params   []rawParam
	success  string
	notFound string
}

// NewFunction starts a function definition of the given archetype.
func NewFunction(kind Kind) *FunctionBuilder {
	return &FunctionBuilder{
		kind:     kind,
		success:  DefaultSuccessMessage,
		notFound: DefaultNotFoundMessage,
	}
}

// Name sets the (optionally schema-qualified) function name. Defaults to
// "<table>_list" or "<table>_get" in the table's schema.
func (b *FunctionBuilder) Name(name string) *FunctionBuilder {
	b.name = name
	return b
}

// On sets the header table.
func (b *FunctionBuilder) On(table *TableBuilder) *FunctionBuilder {
	b.table = table
	return b
}

// WithDetail attaches a detail relation.
func (b *FunctionBuilder) WithDetail(detail *DetailBuilder) *FunctionBuilder {
	b.detail = detail
	return b
}

// Param appends an input parameter filtering on column by equality. An
// empty name defaults to "p_<column>", an empty type to the column's type.
func (b *FunctionBuilder) Param(name, typ, column string) *FunctionBuilder {
	b.params = append(b.params, rawParam{name: name, typ: typ, column: column})
	return b
}

// Messages sets the success and not-found status messages.
func (b *FunctionBuilder) Messages(success, notFound string) *FunctionBuilder {
	b.success, b.notFound = success, notFound
	return b
}

// Build resolves the whole definition. Every problem found is reported,
// joined; each is an *InvalidDefinitionError or a
// *types.UnsupportedTypeError.
func (b *FunctionBuilder) Build() (*Function, error) {
	var errs []error

	f := &Function{kind: b.kind, success: b.success, notFound: b.notFound}

	if b.table == nil {
		return nil, invalid("table", "a table is required")
	}
	table, err := b.table.build("table")
	if err != nil {
		errs = append(errs, err)
	}
	f.table = table

	switch {
	case b.kind == KindList && b.detail != nil:
		errs = append(errs, invalid("detail", "the %s archetype takes no detail relation", KindList))
	case b.kind == KindSingleRowWithDetail && b.detail == nil:
		errs = append(errs, invalid("detail", "the %s archetype requires a detail relation", KindSingleRowWithDetail))
	}
	if b.detail != nil {
		detail, err := b.detail.build("detail")
		if err != nil {
			errs = append(errs, err)
		}
		f.detail = detail
		if detail != nil && table != nil {
			if _, ok := table.Column(detail.alias); ok {
				errs = append(errs, invalid("detail.alias", "%q collides with a table column", detail.alias))
			}
			for _, name := range table.derivedOutputs() {
				if detail.alias == name {
					errs = append(errs, invalid("detail.alias", "%q collides with a generated output column", detail.alias))
				}
			}
		}
	}

	// Parameters share a namespace with the RETURNS TABLE columns.
	var outputs map[string]bool
	if table != nil {
		outputs = outputNames(table, f.detail)
	}

	seen := make(map[string]bool, len(b.params))
	for i, p := range b.params {
		field := fmt.Sprintf("params[%d]", i)

		col, declared := Column{}, false
		if table != nil {
			col, declared = table.Column(p.column)
			if !declared {
				errs = append(errs, invalid(field+".column", "column %q is not declared on %s", p.column, table.name))
			}
		}

		if p.name == "" && p.column != "" {
			p.name = "p_" + p.column
		}
		errs = append(errs, checkIdentifier(field+".name", p.name)...)
		if seen[p.name] {
			errs = append(errs, invalid(field+".name", "duplicate parameter %q", p.name))
		}
		seen[p.name] = true
		if outputs[p.name] {
			errs = append(errs, invalid(field+".name", "%q collides with an output column of the same name", p.name))
		}

		var typ types.Type
		switch {
		case p.typ != "":
			var err error
			if typ, err = types.Map(p.name, p.typ); err != nil {
				errs = append(errs, err)
			}
		case declared:
			typ = col.Type
		default:
			errs = append(errs, invalid(field+".type", "type is required when the column is unknown"))
		}
		f.params = append(f.params, Param{Name: p.name, Type: typ, Column: p.column})
	}

	if b.success == "" {
		errs = append(errs, invalid("messages.success", "message text is required"))
	}
	if b.notFound == "" {
		errs = append(errs, invalid("messages.not_found", "message text is required"))
	}

	if b.name != "" {
		f.name = ParseQualifiedName(b.name)
	} else if table != nil {
		suffix := "_list"
		if b.kind == KindSingleRowWithDetail {
			suffix = "_get"
		}
		f.name = QualifiedName{Schema: table.name.Schema, Name: table.name.Name + suffix}
	}
	errs = append(errs, checkName("name", f.name)...)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f, nil
}

// resolveColumns maps column types and orders columns by ordinal.
func resolveColumns(field string, raw []rawColumn) ([]Column, []error) {
	var errs []error
	if len(raw) == 0 {
		return nil, []error{invalid(field, "at least one column is required")}
	}

	names := make(map[string]bool, len(raw))
	ordinals := make(map[int]string, len(raw))
	columns := make([]Column, 0, len(raw))

	for i, rc := range raw {
		colField := fmt.Sprintf("%s[%d]", field, i)
		errs = append(errs, checkIdentifier(colField+".name", rc.name)...)
		if names[rc.name] {
			errs = append(errs, invalid(colField+".name", "duplicate column %q", rc.name))
		}
		names[rc.name] = true

		if rc.ordinal < 1 {
			errs = append(errs, invalid(colField+".ordinal", "ordinal must be positive, got %d", rc.ordinal))
		} else if other, dup := ordinals[rc.ordinal]; dup {
			errs = append(errs, invalid(colField+".ordinal", "ordinal %d already used by column %q", rc.ordinal, other))
		} else {
			ordinals[rc.ordinal] = rc.name
		}

		typ, err := types.Map(rc.name, rc.typ)
		if err != nil {
			errs = append(errs, err)
		}
		columns = append(columns, Column{Name: rc.name, Type: typ, Ordinal: rc.ordinal})
	}

	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Ordinal < columns[j].Ordinal })
	return columns, errs
}

func checkName(field string, q QualifiedName) []error {
	errs := checkIdentifier(field, q.Name)
	if q.Name != "" && q.Schema == "" {
		errs = append(errs, invalid(field, "schema must not be empty"))
	}
	return errs
}

func checkIdentifier(field, name string) []error {
	switch {
	case name == "":
		return []error{invalid(field, "name is required")}
	case len(name) > maxIdentifierLen:
		return []error{invalid(field, "%q exceeds %d bytes", name, maxIdentifierLen)}
	}
	return nil
}
