package pipeline

// Processor is one stage of a fixture run.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Default is the standard fixture run: read, build, check.
func Default() *Pipeline {
	return New(&ReadProcessor{}, &BuildProcessor{}, &CheckProcessor{})
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Stages skip their work once an earlier stage has failed, so every
		// processor still sees the context.
	}
	return ctx
}
