// Package archetype selects the generation strategy for a function
// definition. Each archetype is a render.Template.
package archetype

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
	"github.com/markb/pgfngen/internal/types"
)

// ErrUnknownArchetype matches every *UnknownArchetypeError via errors.Is.
var ErrUnknownArchetype = errors.New("unknown archetype")

// UnknownArchetypeError reports a request for an archetype that is not
// registered.
type UnknownArchetypeError struct {
	Kind model.Kind
}

// Error implements the error interface.
func (e *UnknownArchetypeError) Error() string {
	return fmt.Sprintf("unknown archetype %q (known: %s)", e.Kind, strings.Join(kindNames(), ", "))
}

// Is reports whether target is ErrUnknownArchetype.
func (e *UnknownArchetypeError) Is(target error) bool {
	return target == ErrUnknownArchetype
}

var registry = map[model.Kind]render.Template{
	model.KindList:                List{},
	model.KindSingleRowWithDetail: SingleRowWithDetail{},
}

// Select returns the template for kind.
func Select(kind model.Kind) (render.Template, error) {
	t, ok := registry[kind]
	if !ok {
		return nil, &UnknownArchetypeError{Kind: kind}
	}
	return t, nil
}

// ParseKind resolves an archetype name as written in definition files.
func ParseKind(s string) (model.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "list":
		return model.KindList, nil
	case "single", "single_row_with_detail", "singlerowwithdetail", "detail":
		return model.KindSingleRowWithDetail, nil
	}
	return "", &UnknownArchetypeError{Kind: model.Kind(s)}
}

// Kinds returns the registered archetypes, sorted.
func Kinds() []model.Kind {
	kinds := make([]model.Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func kindNames() []string {
	var names []string
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return names
}

// List renders every matching row without a detail aggregation column.
type List struct{}

// Kind implements render.Template.
func (List) Kind() model.Kind { return model.KindList }

// Plan implements render.Template.
func (List) Plan(fn *model.Function, s render.Settings) (*render.Plan, error) {
	if fn.Detail() != nil {
		return nil, &model.InvalidDefinitionError{Field: "detail", Reason: "the list archetype takes no detail relation"}
	}
	return render.BasePlan(fn, s), nil
}

// SingleRowWithDetail renders at most one row with its detail rows
// aggregated into one trailing JSON column.
type SingleRowWithDetail struct{}

// Kind implements render.Template.
func (SingleRowWithDetail) Kind() model.Kind { return model.KindSingleRowWithDetail }

// Plan implements render.Template.
func (SingleRowWithDetail) Plan(fn *model.Function, s render.Settings) (*render.Plan, error) {
	d := fn.Detail()
	if d == nil {
		return nil, &model.InvalidDefinitionError{Field: "detail", Reason: "the single archetype requires a detail relation"}
	}

	p := render.BasePlan(fn, s)
	p.Limit = 1

	q := &render.JSONSubquery{
		Table:      d.Table(),
		Alias:      render.DetailAlias,
		ForeignKey: d.ForeignKey(),
		ParentKey:  fn.Table().PrimaryKey(),
		SortColumn: d.SortColumn(),
		Wildcard:   d.Wildcard(),
	}
	for _, col := range d.Columns() {
		q.Columns = append(q.Columns, col.Name)
	}
	createdBy, updatedBy := d.Audit()
	q.Joins, q.Extra = render.AuditJoins(render.DetailAlias, createdBy, updatedBy, s)

	p.Add(render.Output{Name: d.Alias(), Type: types.JSONB, Subquery: q}, types.EmptyJSONArray)
	return p, nil
}
