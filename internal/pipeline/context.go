package pipeline

import (
	"context"
	"log/slog"

	"github.com/funvibe/tsolve/internal/fixture"
	"github.com/funvibe/tsolve/internal/typesystem"
)

// PipelineContext carries one fixture file through the stages.
type PipelineContext struct {
	Context  context.Context
	FilePath string
	Source   []byte
	Logger   *slog.Logger

	Suite    *fixture.Suite
	Solver   *typesystem.Solver
	Outcomes []fixture.Outcome

	Errors []error
}

func NewPipelineContext(ctx context.Context, path string) *PipelineContext {
	return &PipelineContext{Context: ctx, FilePath: path, Logger: slog.Default()}
}

// Failed reports whether the file could not be checked or a case failed.
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0 || fixture.Failed(c.Outcomes) > 0
}
