package imagegen

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// generationOutcome is the result of one request of a fan-out. Index is 1-based.
type generationOutcome struct {
	index int
	data  []byte
	err   error
}

// fanOut issues count calls concurrently and waits for all of them.
// A failed call never cancels its siblings. Outcomes are returned in index
// order regardless of completion order.
func fanOut(ctx context.Context, count int, call func(ctx context.Context, index int) ([]byte, error)) []generationOutcome {
	outcomes := make([]generationOutcome, count)

	var g errgroup.Group
	for i := 0; i < count; i++ {
		g.Go(func() error {
			data, err := call(ctx, i+1)
			outcomes[i] = generationOutcome{index: i + 1, data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// succeeded reports how many outcomes carry data.
func succeeded(outcomes []generationOutcome) int {
	n := 0
	for _, oc := range outcomes {
		if oc.err == nil {
			n++
		}
	}
	return n
}
