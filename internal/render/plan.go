package render

import (
	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/types"
)

// Table aliases used in generated bodies.
const (
	HeaderAlias = "t"
	DetailAlias = "d"
)

// Settings carries the engine-wide rendering configuration.
type Settings struct {
	Principal string              // owner and grantee of every function
	UserTable model.QualifiedName // audit user lookup table
	UserKey   string              // key column audit columns refer to
	UserName  string              // display name column
}

// Template builds the plan of one archetype. A template whose output is
// embedded in another function rather than created on its own sets
// Plan.Inline; the status pair is then not required. Both built-in
// archetypes plan top-level functions.
type Template interface {
	Kind() model.Kind
	Plan(fn *model.Function, s Settings) (*Plan, error)
}

// Output is one column of the RETURNS shape.
type Output struct {
	Name     string
	Type     types.Type
	Expr     string        // found-branch expression
	Subquery *JSONSubquery // set for aggregated detail columns
}

// FallbackEntry is one value of the not-found branch.
type FallbackEntry struct {
	Column  string // marker naming the output column it stands for
	Literal string
}

// Join is a LEFT JOIN of the found branch.
type Join struct {
	Table model.QualifiedName
	Alias string
	On    string
}

// Filter is a parameter-to-column equality predicate.
type Filter struct {
	Column string
	Param  string
}

// JSONSubquery aggregates detail rows into a JSON array.
type JSONSubquery struct {
	Table      model.QualifiedName
	Alias      string // table alias inside the sub-query
	ForeignKey string
	ParentKey  string // header column the foreign key refers to
	SortColumn string
	Columns    []string // explicitly named columns
	Wildcard   bool     // whole-row selection, never conformant
	Joins      []Join
	Extra      []Output // derived members such as audit names
}

// Plan is the resolved shape of one generated function.
type Plan struct {
	Archetype  model.Kind
	Function   model.QualifiedName
	Params     []model.Param
	Table      model.QualifiedName
	Filters    []Filter
	Joins      []Join
	SortColumn string
	Limit      int // 0 means unlimited

	Outputs  []Output
	Fallback []FallbackEntry

	Owner   string
	Grantee string

	// Inline marks plans of nested sub-queries rather than top-level
	// functions. Only set by templates outside the built-in registry.
	Inline bool
}

// Add appends an output column together with its fallback literal.
func (p *Plan) Add(out Output, fallback string) {
	p.Outputs = append(p.Outputs, out)
	p.Fallback = append(p.Fallback, FallbackEntry{Column: out.Name, Literal: fallback})
}

// ParamTypes returns the parameter type tokens in declaration order.
func (p *Plan) ParamTypes() []string {
	tokens := make([]string, len(p.Params))
	for i, param := range p.Params {
		tokens[i] = param.Type.Token()
	}
	return tokens
}

// BasePlan builds the shape shared by every archetype: the status and
// message pair, the table columns in ordinal order and the derived audit
// names.
func BasePlan(fn *model.Function, s Settings) *Plan {
	table := fn.Table()
	p := &Plan{
		Archetype:  fn.Kind(),
		Function:   fn.Name(),
		Params:     fn.Params(),
		Table:      table.Name(),
		SortColumn: table.SortColumn(),
		Owner:      s.Principal,
		Grantee:    s.Principal,
	}

	for _, param := range p.Params {
		p.Filters = append(p.Filters, Filter{Column: param.Column, Param: param.Name})
	}

	p.Add(Output{Name: model.StatusColumn, Type: types.Boolean, Expr: "true"}, "false")
	p.Add(Output{Name: model.MessageColumn, Type: types.Text, Expr: TextLiteral(fn.SuccessMessage())},
		TextLiteral(fn.NotFoundMessage()))

	for _, col := range table.Columns() {
		p.Add(Output{Name: col.Name, Type: col.Type, Expr: HeaderAlias + "." + Ident(col.Name)}, col.Type.NullLiteral())
	}

	createdBy, updatedBy := table.Audit()
	joins, outputs := AuditJoins(HeaderAlias, createdBy, updatedBy, s)
	p.Joins = append(p.Joins, joins...)
	for _, out := range outputs {
		p.Add(out, out.Type.NullLiteral())
	}
	return p
}
