package fanout_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/todo-service/internal/platform/fanout"
)

// peakTracker records the highest number of overlapping calls.
type peakTracker struct {
	running, peak atomic.Int32
}

func (p *peakTracker) enter() func() {
	cur := p.running.Add(1)
	for {
		old := p.peak.Load()
		if cur <= old || p.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	return func() { p.running.Add(-1) }
}

func TestRun_ResultsFollowInputOrder(t *testing.T) {
	t.Parallel()

	errMissing := errors.New("todo not found")
	ids := []int64{5, 1, 4, 2, 3}

	results := fanout.Run(context.Background(), 3, ids, func(_ context.Context, id int64) (string, error) {
		// Later items finish first.
		time.Sleep(time.Duration(6-id) * time.Millisecond)
		if id == 4 {
			return "", errMissing
		}
		return fmt.Sprintf("todo-%d", id), nil
	})

	require.Len(t, results, len(ids))
	for i, id := range ids {
		if id == 4 {
			assert.ErrorIs(t, results[i].Err, errMissing)
			continue
		}
		assert.NoError(t, results[i].Err)
		assert.Equal(t, fmt.Sprintf("todo-%d", id), results[i].Value)
	}
}

func TestRun_NoItems(t *testing.T) {
	t.Parallel()

	results := fanout.Run(context.Background(), 2, nil, func(context.Context, string) (int, error) {
		t.Error("fn called without items")
		return 0, nil
	})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRun_WorkerLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		maxWorkers int
		items      int
		wantPeak   int32
	}{
		{name: "limit below item count", maxWorkers: 3, items: 12, wantPeak: 3},
		{name: "limit above item count", maxWorkers: 10, items: 4, wantPeak: 4},
		{name: "zero means one", maxWorkers: 0, items: 3, wantPeak: 1},
		{name: "negative means one", maxWorkers: -2, items: 3, wantPeak: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var p peakTracker
			release := make(chan struct{})
			go func() {
				// Hold the first wave until it has filled every slot.
				for p.running.Load() < tt.wantPeak {
					time.Sleep(time.Millisecond)
				}
				close(release)
			}()

			results := fanout.Run(context.Background(), tt.maxWorkers, make([]int, tt.items),
				func(context.Context, int) (struct{}, error) {
					defer p.enter()()
					<-release
					time.Sleep(2 * time.Millisecond)
					return struct{}{}, nil
				})

			assert.Len(t, results, tt.items)
			assert.Equal(t, tt.wantPeak, p.peak.Load())
		})
	}
}

func TestRun_CancellationStopsUnstartedItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	results := fanout.Run(ctx, 1, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if n == 1 {
			cancel()
		}
		return n, nil
	})

	assert.Equal(t, int32(1), calls.Load())
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Value)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
	assert.ErrorIs(t, results[2].Err, context.Canceled)
}

func TestRun_AlreadyCanceledStartsNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := fanout.Run(ctx, 4, []string{"sqlite", "redis"}, func(context.Context, string) (bool, error) {
		t.Error("fn called after cancellation")
		return true, nil
	})

	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRun_FnSeesContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "req-1")

	results := fanout.Run(ctx, 2, []int{1, 2}, func(ctx context.Context, _ int) (string, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})

	for _, r := range results {
		assert.Equal(t, "req-1", r.Value)
	}
}
