// Package health holds the dependency checkers behind GET /health/ready.
package health

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jsamuelsen11/todo-service/internal/platform/fanout"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// maxConcurrentChecks bounds how many dependency checks run at once.
const maxConcurrentChecks = 4

var _ ports.HealthRegistry = (*Registry)(nil)

// Registry is safe for concurrent use. Checkers are keyed by Name, so
// registering a second checker under a name replaces the first.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]ports.HealthChecker
}

func New() *Registry {
	return &Registry{checkers: make(map[string]ports.HealthChecker)}
}

func (r *Registry) Register(checker ports.HealthChecker) {
	name := checker.Name()
	r.mu.Lock()
	r.checkers[name] = checker
	r.mu.Unlock()
}

// CheckAll runs every checker in parallel, at most maxConcurrentChecks at a
// time, and waits for all of them. Checks run without the registry lock held.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	names := slices.Sorted(maps.Keys(r.checkers))
	checkers := make([]ports.HealthChecker, len(names))
	for i, name := range names {
		checkers[i] = r.checkers[name]
	}
	r.mu.RUnlock()

	outcomes := fanout.Run(ctx, maxConcurrentChecks, checkers,
		func(ctx context.Context, c ports.HealthChecker) (struct{}, error) {
			return struct{}{}, c.HealthCheck(ctx)
		},
	)

	results := make(map[string]error, len(names))
	for i, name := range names {
		results[name] = outcomes[i].Err
	}
	return results
}
