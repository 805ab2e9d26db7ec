// Package generator runs the generation pipeline: resource limits, then
// conformance, then rendering. A request either yields a complete
// artifact or an error; never partial text.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markb/pgfngen/internal/config"
	"github.com/markb/pgfngen/internal/conformance"
	"github.com/markb/pgfngen/internal/log"
	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
)

// ErrResourceLimit matches every *ResourceLimitError via errors.Is.
var ErrResourceLimit = errors.New("resource limit exceeded")

// ResourceLimitError reports a request larger than the configured limits.
type ResourceLimitError struct {
	Resource string
	Limit    int
	Got      int
}

// Error implements the error interface.
func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %d %s (limit %d)", e.Got, e.Resource, e.Limit)
}

// Is reports whether target is ErrResourceLimit.
func (e *ResourceLimitError) Is(target error) bool {
	return target == ErrResourceLimit
}

// Generator turns resolved definitions into rendered artifacts. It holds
// no per-request state and is safe for concurrent use.
type Generator struct {
	limits    config.Limits
	validator *conformance.Validator
	logger    *slog.Logger
}

// New creates a Generator from engine configuration.
func New(cfg *config.Config) *Generator {
	return &Generator{
		limits:    cfg.Limits,
		validator: conformance.New(cfg.RenderSettings()),
		logger:    log.Logger(),
	}
}

// Generate validates fn against its archetype and renders it.
func (g *Generator) Generate(fn *model.Function) (*render.Artifact, error) {
	logger := g.logger.With(
		"request_id", uuid.NewString(),
		"function", fn.Name().String(),
		"archetype", string(fn.Kind()),
	)
	logger.Debug("generating function", "columns", fn.ColumnCount(), "params", len(fn.Params()))

	if err := g.checkLimits(fn); err != nil {
		logger.Warn("generation rejected", "error", err)
		return nil, err
	}

	plan, err := g.validator.Validate(fn, fn.Kind())
	if err != nil {
		var ce *conformance.ConformanceError
		if errors.As(err, &ce) {
			logger.Warn("generation rejected", "violations", len(ce.Violations))
		} else {
			logger.Warn("generation rejected", "error", err)
		}
		return nil, err
	}

	artifact := render.Render(plan)
	logger.Debug("function rendered", "outputs", len(plan.Outputs))
	return artifact, nil
}

// GenerateDefinition builds the definition assembled by b and generates
// it. Structural and type errors surface before any validation runs.
func (g *Generator) GenerateDefinition(b *model.FunctionBuilder) (*render.Artifact, error) {
	fn, err := b.Build()
	if err != nil {
		g.logger.Warn("definition rejected", "error", err)
		return nil, err
	}
	return g.Generate(fn)
}

// Check validates fn without rendering it.
func (g *Generator) Check(fn *model.Function) error {
	if err := g.checkLimits(fn); err != nil {
		return err
	}
	_, err := g.validator.Validate(fn, fn.Kind())
	return err
}

func (g *Generator) checkLimits(fn *model.Function) error {
	if n := len(fn.Table().Columns()); n > g.limits.Columns {
		return &ResourceLimitError{Resource: "columns", Limit: g.limits.Columns, Got: n}
	}
	if n := len(fn.Params()); n > g.limits.Params {
		return &ResourceLimitError{Resource: "params", Limit: g.limits.Params, Got: n}
	}
	if d := fn.Detail(); d != nil {
		if n := len(d.Columns()); n > g.limits.DetailColumns {
			return &ResourceLimitError{Resource: "detail columns", Limit: g.limits.DetailColumns, Got: n}
		}
	}
	return nil
}

// Result is the outcome of one definition in a batch.
type Result struct {
	Function *model.Function
	Artifact *render.Artifact
	Err      error
}

// GenerateAll generates independent definitions in parallel. Results are
// in input order; one failing definition does not stop the others. The
// returned error is non-nil only if ctx is canceled.
func (g *Generator) GenerateAll(ctx context.Context, fns []*model.Function) ([]Result, error) {
	results := make([]Result, len(fns))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, fn := range fns {
		i, fn := i, fn
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			artifact, err := g.Generate(fn)
			results[i] = Result{Function: fn, Artifact: artifact, Err: err}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
