package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
}

// New creates a new pipeline. Steps only start when Run is called.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run starts every step and waits for the pipeline to finish.
// The first error cancels the remaining steps.
func (p *Pipeline) Run() error {
	defer p.cancel()

	p.startTime = time.Now()

	for _, fn := range p.goFn {
		go fn(p.ctx)
	}

	err := waitForPipeline(p.errcList.list...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

// register adds a step goroutine. Its error channel is closed when fn returns.
func (p *Pipeline) register(name string, fn func(ctx context.Context) error, onDone func()) {
	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))
	p.goFn = append(p.goFn, func(ctx context.Context) {
		defer func() {
			if onDone != nil {
				onDone()
			}
			close(errC)
		}()

		err := fn(ctx)
		if err != nil {
			errC <- err
		}
	})
}
