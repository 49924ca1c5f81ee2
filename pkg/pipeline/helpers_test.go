package pipeline_test

import (
	"testing"
)

func inputChan(t *testing.T, total int) chan int {
	t.Helper()

	c := make(chan int)

	go func() {
		defer close(c)

		for i := range total {
			c <- i
		}
	}()

	return c
}

func collect(t *testing.T, output <-chan int) []int {
	t.Helper()

	res := []int{}

	for out := range output {
		res = append(res, out)
	}

	return res
}
