package conformance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
	"github.com/markb/pgfngen/internal/types"
)

// Context carries engine configuration rules check against.
type Context struct {
	Principal string
}

// Rule is a pure predicate over a plan.
type Rule struct {
	ID    RuleID
	Name  string
	Check func(p *render.Plan, c Context) []Violation
}

// DefaultRules returns the fixed rule set in evaluation order. The
// column-order rules come first since their failures cascade.
func DefaultRules() []Rule {
	return []Rule{
		{ID: RuleStatusPrefix, Name: "status and message prefix", Check: checkStatusPrefix},
		{ID: RuleColumnParity, Name: "fallback column parity", Check: checkColumnParity},
		{ID: RuleFallbackLiterals, Name: "typed fallback literals", Check: checkFallbackLiterals},
		{ID: RuleExplicitColumns, Name: "explicit JSON sub-query columns", Check: checkExplicitColumns},
		{ID: RuleFixedPrincipal, Name: "fixed principal", Check: checkFixedPrincipal},
	}
}

func checkStatusPrefix(p *render.Plan, _ Context) []Violation {
	if p.Inline {
		return nil
	}

	want := []struct {
		name string
		typ  types.Type
	}{
		{model.StatusColumn, types.Boolean},
		{model.MessageColumn, types.Text},
	}

	var vs []Violation
	for i, w := range want {
		if i >= len(p.Outputs) {
			vs = append(vs, Violation{
				Rule:    RuleStatusPrefix,
				Field:   w.name,
				Message: fmt.Sprintf("output column %d must be %s %s, shape has only %d columns", i+1, w.name, w.typ.Token(), len(p.Outputs)),
			})
			continue
		}
		out := p.Outputs[i]
		if out.Name != w.name || out.Type != w.typ {
			vs = append(vs, Violation{
				Rule:    RuleStatusPrefix,
				Field:   out.Name,
				Message: fmt.Sprintf("output column %d must be %s %s, got %s %s", i+1, w.name, w.typ.Token(), out.Name, out.Type.Token()),
			})
		}
	}
	return vs
}

func checkColumnParity(p *render.Plan, _ Context) []Violation {
	var vs []Violation
	if len(p.Outputs) != len(p.Fallback) {
		vs = append(vs, Violation{
			Rule:    RuleColumnParity,
			Message: fmt.Sprintf("RETURNS shape has %d columns, fallback branch has %d", len(p.Outputs), len(p.Fallback)),
		})
	}

	n := min(len(p.Outputs), len(p.Fallback))
	for i := 0; i < n; i++ {
		if p.Outputs[i].Name != p.Fallback[i].Column {
			vs = append(vs, Violation{
				Rule:    RuleColumnParity,
				Field:   p.Outputs[i].Name,
				Message: fmt.Sprintf("position %d is %s in the RETURNS shape but %s in the fallback branch", i+1, p.Outputs[i].Name, p.Fallback[i].Column),
			})
		}
	}
	for i := n; i < len(p.Outputs); i++ {
		vs = append(vs, Violation{
			Rule:    RuleColumnParity,
			Field:   p.Outputs[i].Name,
			Message: "no fallback entry",
		})
	}
	for i := n; i < len(p.Fallback); i++ {
		vs = append(vs, Violation{
			Rule:    RuleColumnParity,
			Field:   p.Fallback[i].Column,
			Message: "fallback entry without a RETURNS column",
		})
	}
	return vs
}

// textLiteral matches the quoted, text-cast failure message.
var textLiteral = regexp.MustCompile(`^(?: E)?'(?:[^']|'')*'::text$`)

func checkFallbackLiterals(p *render.Plan, _ Context) []Violation {
	var vs []Violation
	violate := func(field, format string, args ...any) {
		vs = append(vs, Violation{Rule: RuleFallbackLiterals, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	n := min(len(p.Outputs), len(p.Fallback))
	for i := 0; i < n; i++ {
		out, fb := p.Outputs[i], p.Fallback[i]

		switch {
		case !p.Inline && i == 0 && out.Name == model.StatusColumn:
			if fb.Literal != "false" {
				violate(out.Name, "fallback must be the failure literal false, got %s", fb.Literal)
			}
		case !p.Inline && i == 1 && out.Name == model.MessageColumn:
			if !textLiteral.MatchString(fb.Literal) {
				violate(out.Name, "fallback must be a text failure message, got %s", fb.Literal)
			} else if fb.Literal == out.Expr {
				violate(out.Name, "fallback message repeats the success message")
			}
		case out.Subquery != nil:
			if i != len(p.Outputs)-1 {
				violate(out.Name, "aggregated detail column must be the final output column")
			}
			if fb.Literal != types.EmptyJSONArray {
				violate(out.Name, "fallback must be the empty JSON array %s, got %s", types.EmptyJSONArray, fb.Literal)
			}
		case !out.Type.IsValid():
			violate(out.Name, "type %q has no typed NULL equivalent", out.Type.String())
		default:
			if want := out.Type.NullLiteral(); fb.Literal != want {
				violate(out.Name, "fallback must be %s, got %s", want, fb.Literal)
			}
		}
	}
	return vs
}

func checkExplicitColumns(p *render.Plan, _ Context) []Violation {
	var vs []Violation
	for _, out := range p.Outputs {
		q := out.Subquery
		if q == nil {
			continue
		}
		if q.Wildcard {
			vs = append(vs, Violation{
				Rule:    RuleExplicitColumns,
				Field:   out.Name,
				Message: fmt.Sprintf("sub-query on %s selects the whole row; name every column", q.Table),
			})
			continue
		}
		if len(q.Columns) == 0 {
			vs = append(vs, Violation{
				Rule:    RuleExplicitColumns,
				Field:   out.Name,
				Message: fmt.Sprintf("sub-query on %s selects no columns", q.Table),
			})
		}
		for _, col := range q.Columns {
			if col == "*" || strings.HasSuffix(col, ".*") {
				vs = append(vs, Violation{
					Rule:    RuleExplicitColumns,
					Field:   out.Name,
					Message: fmt.Sprintf("sub-query on %s uses wildcard %q", q.Table, col),
				})
			}
		}
	}
	return vs
}

func checkFixedPrincipal(p *render.Plan, c Context) []Violation {
	var vs []Violation
	if p.Owner != c.Principal {
		vs = append(vs, Violation{
			Rule:    RuleFixedPrincipal,
			Field:   "owner",
			Message: fmt.Sprintf("owner must be %s, got %q", c.Principal, p.Owner),
		})
	}
	if p.Grantee != c.Principal {
		vs = append(vs, Violation{
			Rule:    RuleFixedPrincipal,
			Field:   "grantee",
			Message: fmt.Sprintf("grantee must be %s, got %q", c.Principal, p.Grantee),
		})
	}
	return vs
}
