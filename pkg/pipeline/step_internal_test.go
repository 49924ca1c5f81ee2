package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/pkg/pipeline/model"
)

var concurrencies = map[string]int{
	"sequential":     1,
	"unset":          0,
	"concurrent 2":   2,
	"concurrent 100": 100,
}

// feed sends 0..total-1 on an unbuffered channel and calls cancel right before sending
// cancelAt. A negative cancelAt never cancels.
func feed(total, cancelAt int, cancel context.CancelFunc) chan int {
	items := make(chan int)

	go func() {
		defer close(items)

		for i := range total {
			if i == cancelAt {
				cancel()
			}

			items <- i
		}
	}()

	return items
}

func drain(items <-chan int) []int {
	var res []int
	for item := range items {
		res = append(res, item)
	}

	return res
}

// runStep feeds 0..9 into run and returns what reached the output together with the step error.
func runStep(t *testing.T, concurrent, cancelAt int, run func(ctx context.Context, cancel context.CancelFunc, input *model.Step[int], output *model.Step[int]) error) ([]int, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	input := &model.Step[int]{Output: feed(10, cancelAt, cancel)}
	output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Concurrent: concurrent}}
	got := make(chan []int, 1)

	go func() {
		got <- drain(output.Output)
	}()

	errC := make(chan error, 1)

	go func() {
		defer close(output.Output)
		errC <- run(ctx, cancel, input, output)
	}()

	return <-got, <-errC
}

func TestOneToOne(t *testing.T) {
	t.Parallel()

	for name, concurrent := range concurrencies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := runStep(t, concurrent, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
				return runOneToOne(ctx, in, out, func(_ context.Context, i int) (int, error) {
					return i, nil
				}, false)
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
		})
	}
}

func TestOneToOneOrZero(t *testing.T) {
	t.Parallel()

	for name, concurrent := range concurrencies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := runStep(t, concurrent, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
				return runOneToOne(ctx, in, out, func(_ context.Context, i int) (int, error) {
					if i%2 == 1 {
						return 0, nil
					}

					return i, nil
				}, true)
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{2, 4, 6, 8}, got)
		})
	}
}

func TestOneToOneFailures(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cancelAt int
		fn       func(cancel context.CancelFunc) func(context.Context, int) (int, error)
	}{
		"cancel input": {
			cancelAt: 5,
			fn: func(context.CancelFunc) func(context.Context, int) (int, error) {
				return func(_ context.Context, i int) (int, error) { return i, nil }
			},
		},
		"cancel in step": {
			cancelAt: -1,
			fn: func(cancel context.CancelFunc) func(context.Context, int) (int, error) {
				return func(_ context.Context, i int) (int, error) {
					if i == 5 {
						cancel()
					}

					return i, nil
				}
			},
		},
		"step error": {
			cancelAt: -1,
			fn: func(context.CancelFunc) func(context.Context, int) (int, error) {
				return func(_ context.Context, i int) (int, error) {
					if i == 5 {
						return 0, assert.AnError
					}

					return i, nil
				}
			},
		},
	}

	for name, tc := range tcs {
		for cname, concurrent := range concurrencies {
			t.Run(name+"/"+cname, func(t *testing.T) {
				t.Parallel()

				_, err := runStep(t, concurrent, tc.cancelAt, func(ctx context.Context, cancel context.CancelFunc, in, out *model.Step[int]) error {
					return runOneToOne(ctx, in, out, tc.fn(cancel), false)
				})
				require.Error(t, err)
			})
		}
	}
}

func TestOneToMany(t *testing.T) {
	t.Parallel()

	for name, concurrent := range concurrencies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := runStep(t, concurrent, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
				return runOneToMany(ctx, in, out, func(_ context.Context, i int) ([]int, error) {
					return []int{i, i * 10}, nil
				})
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{0, 0, 1, 10, 2, 20, 3, 30, 4, 40, 5, 50, 6, 60, 7, 70, 8, 80, 9, 90}, got)
		})
	}
}

func TestOneToManyError(t *testing.T) {
	t.Parallel()

	for name, concurrent := range concurrencies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := runStep(t, concurrent, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
				return runOneToMany(ctx, in, out, func(_ context.Context, i int) ([]int, error) {
					if i == 3 {
						return nil, assert.AnError
					}

					return []int{i}, nil
				})
			})
			require.ErrorIs(t, err, assert.AnError)
		})
	}
}

func TestOneToOneHooks(t *testing.T) {
	t.Parallel()

	calls := make(chan time.Duration, 10)
	hook := func(_, computation time.Duration) error {
		calls <- computation

		return nil
	}

	got, err := runStep(t, 1, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
		return runOneToOne(ctx, in, out, func(_ context.Context, i int) (int, error) {
			return i, nil
		}, false, hook)
	})
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Len(t, calls, 10)
}

func TestOneToOneHookError(t *testing.T) {
	t.Parallel()

	_, err := runStep(t, 2, -1, func(ctx context.Context, _ context.CancelFunc, in, out *model.Step[int]) error {
		return runOneToOne(ctx, in, out, func(_ context.Context, i int) (int, error) {
			return i, nil
		}, false, func(_, _ time.Duration) error {
			return assert.AnError
		})
	})
	require.ErrorIs(t, err, assert.AnError)
}
