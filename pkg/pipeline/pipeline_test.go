package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/pkg/pipeline"
	"github.com/askiada/splatctl/pkg/pipeline/drawer"
	"github.com/askiada/splatctl/pkg/pipeline/measure"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

func rootFn(total int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

func identity(_ context.Context, i int) (int, error) { return i, nil }

func TestNilArguments(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	_, err = pipeline.AddRootStep(nil, "list", rootFn(1))
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.AddStepOneToOne(nil, "copy", &model.Step[int]{}, identity)
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.AddStepOneToOne[int, int](pipe, "copy", nil, identity)
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	_, err = pipeline.AddStepOneToMany[int, int](pipe, "expand", nil, func(context.Context, int) ([]int, error) { return nil, nil })
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	err = pipeline.AddSink[int](pipe, "count", nil, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	_, err = pipeline.AddMerger[int](pipe, "merge")
	require.ErrorIs(t, err, pipeline.ErrMergerInputs)
}

func TestAddRootStep(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", rootFn(10))
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "collect", root, func(_ context.Context, i int) error {
		got = append(got, i)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAddRootStepKeepOpen(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", func(ctx context.Context, rootChan chan<- int) error {
		defer close(rootChan)

		return rootFn(5)(ctx, rootChan)
	}, pipeline.StepKeepOpen[int]())
	require.NoError(t, err)

	var got []int

	err = pipeline.AddSinkFromChan(pipe, "collect", root, func(_ context.Context, input <-chan int) error {
		got = collect(t, input)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestAddRootStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", func(ctx context.Context, rootChan chan<- int) error {
		return assert.AnError
	})
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", root, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "list")
}

func TestStepsAndSink(t *testing.T) {
	t.Parallel()

	for _, concurrent := range []int{1, 4} {
		pipe, err := pipeline.New(t.Context())
		require.NoError(t, err)

		root, err := pipeline.AddRootStep(pipe, "list", rootFn(10))
		require.NoError(t, err)

		odd, err := pipeline.AddStepOneToOneOrZero(pipe, "keep odd", root, func(_ context.Context, i int) (int, error) {
			if i%2 == 0 {
				return 0, nil
			}

			return i, nil
		}, pipeline.StepConcurrency[int](concurrent))
		require.NoError(t, err)

		twice, err := pipeline.AddStepOneToMany(pipe, "twice", odd, func(_ context.Context, i int) ([]int, error) {
			return []int{i, i * 100}, nil
		}, pipeline.StepConcurrency[int](concurrent), pipeline.StepBufferSize[int](4))
		require.NoError(t, err)

		mu := sync.Mutex{}
		got := []int{}
		err = pipeline.AddSink(pipe, "collect", twice, func(_ context.Context, i int) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, i)

			return nil
		})
		require.NoError(t, err)

		require.NoError(t, pipe.Run())
		assert.ElementsMatch(t, []int{1, 100, 3, 300, 5, 500, 7, 700, 9, 900}, got)
	}
}

func TestStepErrorStopsPipeline(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", rootFn(1000))
	require.NoError(t, err)

	step, err := pipeline.AddStepOneToOne(pipe, "copy", root, func(_ context.Context, i int) (int, error) {
		if i == 5 {
			return 0, assert.AnError
		}

		return i, nil
	}, pipeline.StepConcurrency[int](3))
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", step, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "copy")
}

func TestSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", &model.Step[int]{Output: inputChan(t, 10)}, func(_ context.Context, i int) error {
		if i == 5 {
			return assert.AnError
		}

		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, pipe.Run(), assert.AnError)
}

func TestParentContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", func(ctx context.Context, rootChan chan<- int) error {
		cancel()
		<-ctx.Done()

		return ctx.Err()
	})
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "collect", root, func(context.Context, int) error { return nil })
	require.NoError(t, err)
	require.ErrorIs(t, pipe.Run(), context.Canceled)
}

func TestAddMerger(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	train, err := pipeline.AddRootStep(pipe, "train frames", rootFn(5))
	require.NoError(t, err)
	test, err := pipeline.AddRootStep(pipe, "test frames", rootFn(5))
	require.NoError(t, err)

	merged, err := pipeline.AddMerger(pipe, "merge", train, test)
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "collect", merged, func(_ context.Context, i int) error {
		got = append(got, i)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4}, got)
}

func TestMeasureAndDrawer(t *testing.T) {
	t.Parallel()

	graphFile := filepath.Join(t.TempDir(), "job.gv")
	msr := measure.NewDefaultMeasure()
	pipe, err := pipeline.New(t.Context(), drawer.PipelineDrawer(drawer.NewDOTDrawer(graphFile), msr), measure.PipelineMeasure(msr))
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "list", rootFn(10))
	require.NoError(t, err)

	slow, err := pipeline.AddStepOneToOne(pipe, "copy", root, func(_ context.Context, i int) (int, error) {
		time.Sleep(time.Millisecond)

		return i, nil
	}, pipeline.StepConcurrency[int](2))
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "count", slow, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	summary := measure.Summary(msr)
	require.Len(t, summary, 2)
	assert.Equal(t, "copy", summary[0].Name)
	assert.EqualValues(t, 10, summary[0].Items)
	assert.Equal(t, "count", summary[1].Name)
	assert.Positive(t, summary[1].Total)

	data, err := os.ReadFile(graphFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"list" -> "copy"`)
	assert.Contains(t, string(data), `"count" -> "end"`)
}

func TestDuplicateStepNameWithDrawer(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context(), drawer.PipelineDrawer(drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "g.gv")), nil))
	require.NoError(t, err)

	_, err = pipeline.AddRootStep(pipe, "list", rootFn(1))
	require.NoError(t, err)
	_, err = pipeline.AddRootStep(pipe, "list", rootFn(1))
	require.Error(t, err)
}
