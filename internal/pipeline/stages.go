package pipeline

import (
	"fmt"
	"os"

	"github.com/funvibe/tsolve/internal/fixture"
)

// ReadProcessor loads the fixture source unless it was supplied in memory.
type ReadProcessor struct{}

func (rp *ReadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Source != nil || len(ctx.Errors) > 0 {
		return ctx
	}
	data, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("reading fixture %s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Source = data
	return ctx
}

// BuildProcessor parses the fixture and builds its types and cases.
type BuildProcessor struct{}

func (bp *BuildProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Source == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	suite, err := fixture.Parse(ctx.Source, ctx.FilePath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Suite = suite
	ctx.Solver = suite.NewSolver().WithLogger(ctx.Logger)
	ctx.Logger.Debug("fixture built",
		"file", ctx.FilePath,
		"cases", len(suite.Cases),
		"types", suite.Interner.Len())
	return ctx
}

// CheckProcessor runs the fixture's cases.
type CheckProcessor struct{}

func (cp *CheckProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Suite == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	outcomes, err := ctx.Suite.Run(ctx.Context, ctx.Solver)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("checking %s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Outcomes = outcomes
	for _, o := range outcomes {
		if o.Exceeded {
			ctx.Logger.Warn("recursion limit reached", "file", ctx.FilePath, "case", o.Case.Name)
		}
	}
	return ctx
}
