// Package jobs runs batches of independent file tasks on the step pipeline and reports the outcome.
package jobs

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/pkg/pipeline"
	"github.com/askiada/splatctl/pkg/pipeline/drawer"
	"github.com/askiada/splatctl/pkg/pipeline/measure"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// DefaultConcurrency is used when Options.Concurrency is not set.
const DefaultConcurrency = 4

// Options tune a job run.
type Options struct {
	Concurrency int
	// Graph is a DOT file the job graph is written to when set.
	Graph  string
	Logger *slog.Logger
	// Extra pipeline options, such as telemetry.
	Extra []model.PipelineOption
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

// ForJob returns a copy of o whose Graph path carries the job name before the extension, so
// runs that chain several jobs write one DOT file each.
func (o Options) ForJob(job string) Options {
	if o.Graph == "" {
		return o
	}

	ext := filepath.Ext(o.Graph)
	o.Graph = strings.TrimSuffix(o.Graph, ext) + "-" + job + ext

	return o
}

// Task is one unit of work. Do returns the number of bytes it wrote.
type Task struct {
	Name string
	Do   func(ctx context.Context) (int64, error)
}

type outcome struct {
	name  string
	bytes int64
	err   error
}

// Failure is a task that returned an error.
type Failure struct {
	Item string
	Err  error
}

// Report summarises a job run.
type Report struct {
	Job       string
	Processed int
	Failed    int
	Bytes     int64
	Failures  []Failure
	Duration  time.Duration
	Steps     []measure.StepSummary
}

// Err returns an error when at least one task failed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}

	return errors.Errorf("%s: %d of %d items failed, first: %s: %v",
		r.Job, r.Failed, r.Processed+r.Failed, r.Failures[0].Item, r.Failures[0].Err)
}

// Run executes tasks concurrently. Task failures are collected in the report and do not stop the
// job. Context cancellation does.
func Run(ctx context.Context, job string, tasks []Task, opts Options) (*Report, error) {
	logger := opts.logger().With("job", job)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	m := measure.NewDefaultMeasure()
	pipeOpts := []model.PipelineOption{measure.PipelineMeasure(m)}

	if opts.Graph != "" {
		pipeOpts = append(pipeOpts, drawer.PipelineDrawer(drawer.NewDOTDrawer(opts.Graph), m))
	}

	pipeOpts = append(pipeOpts, opts.Extra...)

	pipe, err := pipeline.New(ctx, pipeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}

	list, err := pipeline.AddRootStep(pipe, "list", func(ctx context.Context, rootChan chan<- Task) error {
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- task:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add list step")
	}

	done, err := pipeline.AddStepOneToOne(pipe, job, list, func(ctx context.Context, task Task) (outcome, error) {
		n, err := task.Do(ctx)
		if err != nil && ctx.Err() != nil {
			return outcome{}, ctx.Err()
		}

		return outcome{name: task.Name, bytes: n, err: err}, nil
	}, pipeline.StepConcurrency[outcome](concurrency))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to add %s step", job)
	}

	report := &Report{Job: job}

	err = pipeline.AddSink(pipe, "report", done, func(_ context.Context, out outcome) error {
		if out.err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{Item: out.name, Err: out.err})
			logger.Warn("task failed", "item", out.name, "error", out.err)

			return nil
		}

		report.Processed++
		report.Bytes += out.bytes
		logger.Debug("task done", "item", out.name, "bytes", out.bytes)

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add report sink")
	}

	start := time.Now()

	err = pipe.Run()
	if err != nil {
		return nil, errors.Wrapf(err, "%s job", job)
	}

	report.Duration = time.Since(start)
	report.Steps = measure.Summary(m)

	for _, step := range report.Steps {
		logger.Debug("step timing", "step", step.Name, "items", step.Items, "avg", step.AVG)
	}

	logger.Info("job finished", "processed", report.Processed, "failed", report.Failed, "duration", report.Duration)

	return report, nil
}
