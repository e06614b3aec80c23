// Package fanout calls a function for every item of a slice on a bounded
// number of goroutines. The health registry runs readiness checks with it.
package fanout

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Result is the outcome for one item.
type Result[R any] struct {
	Value R
	Err   error
}

// Run calls fn for each item with at most maxWorkers calls in flight and
// returns the results in item order. maxWorkers below 1 means 1.
//
// Items are started in order. After ctx is done the remaining items are not
// started and get ctx.Err() as their result; calls already running are
// waited for.
func Run[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	slots := semaphore.NewWeighted(int64(max(maxWorkers, 1)))

	var wg sync.WaitGroup
	defer wg.Wait()

	for i, item := range items {
		err := ctx.Err()
		if err == nil {
			err = slots.Acquire(ctx, 1)
		}
		if err != nil {
			for j := range results[i:] {
				results[i+j].Err = err
			}
			return results
		}
		wg.Go(func() {
			defer slots.Release(1)
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
		})
	}
	return results
}
