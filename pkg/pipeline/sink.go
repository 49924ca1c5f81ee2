package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.StepInfo, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.StepInfo{
		Type:       model.SinkStepType,
		Name:       name,
		Concurrent: 1,
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Info(), step)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before sink function")
		}
	}

	return step, nil
}

func (p *Pipeline) afterSink(step *model.StepInfo) error {
	for _, opt := range p.opts {
		err := opt.AfterSink(step, time.Since(p.startTime))
		if err != nil {
			return errors.Wrap(err, "unable to run after sink function")
		}
	}

	return nil
}

// AddSink consumes the items of input one at a time.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	pipe.register(name, func(ctx context.Context) error {
		for {
			startInputChan := time.Now()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case in, ok := <-input.Output:
				if !ok {
					return pipe.afterSink(step)
				}

				endInputChan := time.Since(startInputChan)
				startFn := time.Now()

				err := sinkFn(ctx, in)
				if err != nil {
					return err
				}

				endFn := time.Since(startFn)

				for _, opt := range pipe.opts {
					err := opt.OnSinkOutput(input.Info(), step, endInputChan, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run sink output function")
					}
				}
			}
		}
	}, nil)

	return nil
}

// AddSinkFromChan hands the whole input channel to stepFn.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I], stepFn func(ctx context.Context, input <-chan I) error) error {
	step, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	pipe.register(name, func(ctx context.Context) error {
		err := stepFn(ctx, input.Output)
		if err != nil {
			return err
		}

		return pipe.afterSink(step)
	}, nil)

	return nil
}
