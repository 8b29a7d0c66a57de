package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/philosophy/internal/model"
)

// ErrSkipRemaining is returned by a step that settled the report on its
// own, such as a rejected start. The pipeline stops without treating it as
// a failure.
var ErrSkipRemaining = errors.New("skip remaining steps")

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the report
// filled in by previous steps.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry configuration state
//  2. It provides a Name() method for logging and the report
//  3. Tests can substitute single steps
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; outcomes of the walk
	// itself, dead ends included, are recorded in the report and return nil.
	Do(ctx context.Context, report *model.WalkReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run later steps even when
// one fails. The failure is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step; steps handle their own timeouts.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete. Errors are always recorded in the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.WalkReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"start", report.Start,
				"reason", err,
			)
			report.SetError(err)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"start", report.Start,
		)

		err := step.Do(ctx, report)
		report.Steps = append(report.Steps, step.Name())

		switch {
		case err == nil:
		case errors.Is(err, ErrSkipRemaining):
			p.logger.Debug("skipping remaining steps",
				"step", step.Name(),
				"start", report.Start,
			)
			return nil
		default:
			p.logger.Error("step failed",
				"step", step.Name(),
				"start", report.Start,
				"error", err,
			)
			report.SetError(err)
			if !p.continueOnError {
				return err
			}
		}
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
