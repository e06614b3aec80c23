// Package cache provides a Redis read-through cache that decorates a
// ports.TodoRepository. The full todo list is cached under a single key;
// writes invalidate it. Redis failures are logged and never surface to
// callers: the wrapped repository stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// ListKey is the Redis key holding the serialized todo list.
const ListKey = "todos:all"

// loadTimeout bounds a shared list load. The load is detached from the
// caller that started it, so it needs its own deadline.
const loadTimeout = 10 * time.Second

// Compile-time interface check.
var _ ports.TodoRepository = (*Repository)(nil)

// cachedTodo is the JSON form stored in Redis.
type cachedTodo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Repository wraps another repository with a Redis-backed list cache.
type Repository struct {
	next    ports.TodoRepository
	rdb     *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *telemetry.Metrics
	logger  *slog.Logger

	// mu orders write-backs against invalidations. gen counts
	// invalidations; a load only writes back if gen has not moved since
	// the load began.
	mu  sync.Mutex
	gen uint64
}

// NewClient builds a Redis client from cfg. The client connects lazily.
func NewClient(cfg *config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New wraps next with a list cache stored in rdb for ttl. If metrics is nil,
// lookup counting is skipped.
func New(next ports.TodoRepository, rdb *redis.Client, ttl time.Duration,
	metrics *telemetry.Metrics, logger *slog.Logger,
) *Repository {
	return &Repository{
		next:    next,
		rdb:     rdb,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// Save delegates to the wrapped repository and invalidates the list.
func (r *Repository) Save(ctx context.Context, item *todo.Todo) (*todo.Todo, error) {
	saved, err := r.next.Save(ctx, item)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return saved, nil
}

// DeleteByID delegates to the wrapped repository and invalidates the list.
func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// FindAll serves the list from Redis when present. On a miss, concurrent
// callers share one load from the wrapped repository, and the result is
// written back with the configured TTL unless a write landed meanwhile.
// Each caller stops waiting when its own ctx is done.
func (r *Repository) FindAll(ctx context.Context) ([]todo.Todo, error) {
	if list, ok := r.lookup(ctx); ok {
		return list, nil
	}

	ch := r.group.DoChan(ListKey, func() (any, error) {
		return r.load(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers sharing a load must not alias each other's backing array.
		shared := res.Val.([]todo.Todo)
		out := make([]todo.Todo, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (r *Repository) load(ctx context.Context) ([]todo.Todo, error) {
	gen := r.generation()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	list, err := r.next.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, gen, list)
	return list, nil
}

func (r *Repository) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Name identifies the cache in readiness results.
func (r *Repository) Name() string {
	return "redis"
}

// HealthCheck pings Redis. An unhealthy cache degrades latency only.
func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *Repository) Close() error {
	return r.rdb.Close()
}

func (r *Repository) lookup(ctx context.Context) ([]todo.Todo, bool) {
	b, err := r.rdb.Get(ctx, ListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		r.count(ctx, "miss")
		return nil, false
	}
	if err != nil {
		r.count(ctx, "error")
		r.logger.WarnContext(ctx, "todo cache read failed",
			slog.String("operation", "FindAll"),
			slog.String("key", ListKey),
			slog.Any("error", err),
		)
		return nil, false
	}

	var cached []cachedTodo
	if err := json.Unmarshal(b, &cached); err != nil {
		r.count(ctx, "error")
		r.logger.WarnContext(ctx, "todo cache entry corrupt",
			slog.String("key", ListKey),
			slog.Any("error", err),
		)
		return nil, false
	}

	r.count(ctx, "hit")
	list := make([]todo.Todo, len(cached))
	for i, c := range cached {
		list[i] = todo.Todo{ID: c.ID, Title: c.Title, Completed: c.Completed}
	}
	return list, true
}

// store writes list back under ListKey if no invalidation happened since
// generation gen was observed.
func (r *Repository) store(ctx context.Context, gen uint64, list []todo.Todo) {
	cached := make([]cachedTodo, len(list))
	for i, t := range list {
		cached[i] = cachedTodo{ID: t.ID, Title: t.Title, Completed: t.Completed}
	}

	b, err := json.Marshal(cached)
	if err != nil {
		r.logger.WarnContext(ctx, "encoding todo cache entry failed", slog.Any("error", err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen {
		r.logger.DebugContext(ctx, "discarding todo list loaded before a write",
			slog.String("key", ListKey),
		)
		return
	}
	if err := r.rdb.Set(ctx, ListKey, b, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "todo cache write failed",
			slog.String("key", ListKey),
			slog.Any("error", err),
		)
	}
}

// invalidate drops the cached list. Bumping the generation first means a
// load already in flight cannot write its older list back after the Del.
func (r *Repository) invalidate(ctx context.Context) {
	r.mu.Lock()
	r.gen++
	r.mu.Unlock()

	r.group.Forget(ListKey)
	if err := r.rdb.Del(ctx, ListKey).Err(); err != nil {
		r.logger.WarnContext(ctx, "todo cache invalidation failed",
			slog.String("key", ListKey),
			slog.Any("error", err),
		)
	}
}

func (r *Repository) count(ctx context.Context, result string) {
	if r.metrics == nil {
		return
	}
	r.metrics.CacheLookupTotal.Add(ctx, 1, metric.WithAttributes(telemetry.AttrResult.String(result)))
}
