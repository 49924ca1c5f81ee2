package pipeline

import (
	"context"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// outputHook runs every time an item is pushed to the output of a step.
type outputHook func(iterationDuration, computationDuration time.Duration) error

func runHooks(hooks []outputHook, iterationDuration, computationDuration time.Duration) error {
	for _, hook := range hooks {
		err := hook(iterationDuration, computationDuration)
		if err != nil {
			return err
		}
	}

	return nil
}

func isZero[O any](out O) bool {
	return reflect.ValueOf(&out).Elem().IsZero()
}

func push[O any](ctx context.Context, goIdx int, output *model.Step[O], out O) error {
	// we check the context again to make sure all go routines currently running
	// stop to add new elements to the pipeline
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
	case output.Output <- out:
		return nil
	}
}

func sequentialOneToOne[I, O any](
	ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error), orZero bool, hooks []outputHook,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "go routine %d", goIdx)
		}

		start := time.Now()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}

			endFn := time.Since(startFn)

			if orZero && isZero(out) {
				continue
			}

			err = push(ctx, goIdx, output, out)
			if err != nil {
				return err
			}

			err = runHooks(hooks, time.Since(start)-endFn, endFn)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
		}
	}
}

func sequentialOneToMany[I, O any](
	ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O],
	oneToManyFn func(context.Context, I) ([]O, error), hooks []outputHook,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "go routine %d", goIdx)
		}

		start := time.Now()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			outs, err := oneToManyFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}

			endFn := time.Since(startFn)

			for _, out := range outs {
				err = push(ctx, goIdx, output, out)
				if err != nil {
					return err
				}

				err = runHooks(hooks, time.Since(start)-endFn, endFn)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}
		}
	}
}

// runWorkers starts output.Details.Concurrent workers. Each worker stops as soon as one of them fails.
func runWorkers[O any](ctx context.Context, output *model.Step[O], worker func(ctx context.Context, goIdx int) error) error {
	concurrent := 1
	if output.Details != nil && output.Details.Concurrent > 1 {
		concurrent = output.Details.Concurrent
	}

	if concurrent == 1 {
		return worker(ctx, 0)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)

	for goIdx := range concurrent {
		errGrp.Go(func() error {
			return worker(dCtx, goIdx)
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I, O any](
	ctx context.Context, input *model.Step[I], output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error), orZero bool, hooks ...outputHook,
) error {
	return runWorkers(ctx, output, func(ctx context.Context, goIdx int) error {
		return sequentialOneToOne(ctx, goIdx, input, output, oneToOneFn, orZero, hooks)
	})
}

func runOneToMany[I, O any](
	ctx context.Context, input *model.Step[I], output *model.Step[O],
	oneToManyFn func(context.Context, I) ([]O, error), hooks ...outputHook,
) error {
	return runWorkers(ctx, output, func(ctx context.Context, goIdx int) error {
		return sequentialOneToMany(ctx, goIdx, input, output, oneToManyFn, hooks)
	})
}

func prepareStep[I, O any](p *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := newStep(model.NormalStepType, name, opts...)

	for _, opt := range p.opts {
		err := opt.PrepareStep(input.Info(), step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	return step, nil
}

func (p *Pipeline) stepHook(parent, step *model.StepInfo) outputHook {
	return func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range p.opts {
			err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run step output function")
			}
		}

		return nil
	}
}

func addStep[I, O any](
	p *Pipeline, name string, input *model.Step[I], opts []StepOption[O],
	run func(ctx context.Context, output *model.Step[O], hook outputHook) error,
) (*model.Step[O], error) {
	step, err := prepareStep(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	hook := p.stepHook(input.Info(), step.Details)
	p.register(name, func(ctx context.Context) error {
		return run(ctx, step, hook)
	}, func() {
		close(step.Output)
	})

	return step, nil
}

// AddStepOneToOne adds a step producing one output for each input.
func AddStepOneToOne[I, O any](
	p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, opts, func(ctx context.Context, output *model.Step[O], hook outputHook) error {
		return runOneToOne(ctx, input, output, oneToOneFn, false, hook)
	})
}

// AddStepOneToOneOrZero is AddStepOneToOne except that zero outputs are dropped.
// It is the way to filter items out of a pipeline.
func AddStepOneToOneOrZero[I, O any](
	p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, opts, func(ctx context.Context, output *model.Step[O], hook outputHook) error {
		return runOneToOne(ctx, input, output, oneToOneFn, true, hook)
	})
}

// AddStepOneToMany adds a step producing any number of outputs for each input.
func AddStepOneToMany[I, O any](
	p *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	return addStep(p, name, input, opts, func(ctx context.Context, output *model.Step[O], hook outputHook) error {
		return runOneToMany(ctx, input, output, oneToManyFn, hook)
	})
}
