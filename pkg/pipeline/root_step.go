package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// AddRootStep adds a step feeding the pipeline. stepFn pushes items to rootChan, which is closed when
// stepFn returns unless StepKeepOpen is set.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := newStep(model.RootStepType, name, opts...)

	for _, opt := range p.opts {
		err := opt.PrepareStep(model.StartStep, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	p.register(name, func(ctx context.Context) error {
		return stepFn(ctx, step.Output)
	}, func() {
		if !step.KeepOpen {
			close(step.Output)
		}
	})

	return step, nil
}
