package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
)

var (
	ErrNoImages     = errors.New("no image files found")
	ErrInvalidStep  = errors.New("sampling step must be at least 1")
	ErrSourceNotDir = errors.New("source is not a directory")
	ErrSameFile     = errors.New("source and destination are the same file")
)

// SampleOptions configure Sample.
type SampleOptions struct {
	Source string
	Target string
	// Step keeps one image out of Step, starting with the first.
	Step int
	jobs.Options
}

// SelectEvery returns names[0], names[step], names[2*step] and so on.
func SelectEvery(names []string, step int) []string {
	if step < 1 {
		return nil
	}

	res := make([]string, 0, (len(names)+step-1)/step)
	for i := 0; i < len(names); i += step {
		res = append(res, names[i])
	}

	return res
}

// Sample copies every Step-th image of Source, in name order, into Target.
func Sample(ctx context.Context, opts SampleOptions) (*jobs.Report, error) {
	if opts.Step < 1 {
		return nil, errors.Wrapf(ErrInvalidStep, "got %d", opts.Step)
	}

	if !isDir(opts.Source) {
		return nil, errors.Wrap(ErrSourceNotDir, opts.Source)
	}

	names, err := listFiles(opts.Source, sampleImages)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, errors.Wrap(ErrNoImages, opts.Source)
	}

	err = os.MkdirAll(opts.Target, 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "creating target directory")
	}

	selected := SelectEvery(names, opts.Step)
	logger := opts.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("sampling images", "found", len(names), "selected", len(selected), "step", opts.Step)

	tasks := make([]jobs.Task, 0, len(selected))
	for _, name := range selected {
		src := filepath.Join(opts.Source, name)
		dst := filepath.Join(opts.Target, name)
		tasks = append(tasks, jobs.Task{Name: name, Do: func(ctx context.Context) (int64, error) {
			return copyFile(ctx, src, dst)
		}})
	}

	return jobs.Run(ctx, "sample", tasks, opts.Options)
}
