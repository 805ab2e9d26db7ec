// Package conformance checks generated function shapes against the fixed
// rule set before anything is rendered.
package conformance

import (
	"github.com/markb/pgfngen/internal/archetype"
	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
)

// Validator runs an ordered rule set.
type Validator struct {
	settings render.Settings
	rules    []Rule
}

// New returns a validator with DefaultRules plus any extra rules, which
// run after the defaults.
func New(s render.Settings, extra ...Rule) *Validator {
	return &Validator{
		settings: s,
		rules:    append(DefaultRules(), extra...),
	}
}

// Check runs every rule and returns all violations found. An empty result
// means the plan is conformant.
func (v *Validator) Check(p *render.Plan) []Violation {
	c := Context{Principal: v.settings.Principal}

	var vs []Violation
	for _, r := range v.rules {
		vs = append(vs, r.Check(p, c)...)
	}
	return vs
}

// Validate builds the plan of fn for the given archetype and checks it.
// It returns the plan when conformant, a *ConformanceError carrying every
// violation otherwise. Unknown archetypes and plan construction failures
// are returned as is.
func (v *Validator) Validate(fn *model.Function, kind model.Kind) (*render.Plan, error) {
	tmpl, err := archetype.Select(kind)
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Plan(fn, v.settings)
	if err != nil {
		return nil, err
	}
	if vs := v.Check(p); len(vs) > 0 {
		return nil, &ConformanceError{Violations: vs}
	}
	return p, nil
}
