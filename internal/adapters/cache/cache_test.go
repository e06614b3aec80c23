package cache_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jsamuelsen11/todo-service/internal/adapters/cache"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/storagetest"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/internal/ports"
	"github.com/jsamuelsen11/todo-service/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// unreachableClient points at a port nothing listens on, with retries off so
// every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// liveClient connects to APP_TEST_REDIS_ADDR and skips the test when unset.
// The selected database is flushed before the test.
func liveClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("APP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APP_TEST_REDIS_ADDR not set; skipping redis cache tests")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return rdb
}

// fakeRedis starts an in-process Redis server for the test.
func fakeRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// gatedRepository reads from the wrapped repository, then holds the first
// FindAll until release is closed. Later calls pass straight through.
type gatedRepository struct {
	ports.TodoRepository

	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepository() *gatedRepository {
	return &gatedRepository{
		TodoRepository: memory.New(),
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedRepository) FindAll(ctx context.Context) ([]todo.Todo, error) {
	list, err := g.TodoRepository.FindAll(ctx)
	g.once.Do(func() {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return list, err
}

func TestRepository_FallsThroughWhenRedisDown(t *testing.T) {
	t.Parallel()

	next := mocks.NewMockTodoRepository(t)
	repo := cache.New(next, unreachableClient(t), time.Minute, nil, discardLogger())
	ctx := context.Background()

	want := []todo.Todo{{ID: 1, Title: "a"}, {ID: 2, Title: "b", Completed: true}}
	next.EXPECT().FindAll(mock.Anything).Return(want, nil).Twice()

	for range 2 {
		got, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRepository_WritesSucceedWhenInvalidationFails(t *testing.T) {
	t.Parallel()

	next := mocks.NewMockTodoRepository(t)
	repo := cache.New(next, unreachableClient(t), time.Minute, nil, discardLogger())
	ctx := context.Background()

	in := &todo.Todo{Title: "x"}
	next.EXPECT().Save(mock.Anything, in).Return(&todo.Todo{ID: 5, Title: "x"}, nil)
	next.EXPECT().DeleteByID(mock.Anything, int64(5)).Return(nil)

	saved, err := repo.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.ID)

	require.NoError(t, repo.DeleteByID(ctx, 5))
}

func TestRepository_PropagatesRepositoryErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	next := mocks.NewMockTodoRepository(t)
	repo := cache.New(next, unreachableClient(t), time.Minute, nil, discardLogger())
	ctx := context.Background()

	next.EXPECT().Save(mock.Anything, mock.Anything).Return(nil, boom)
	next.EXPECT().FindAll(mock.Anything).Return(nil, boom)
	next.EXPECT().DeleteByID(mock.Anything, int64(1)).Return(boom)

	_, err := repo.Save(ctx, &todo.Todo{Title: "x"})
	assert.ErrorIs(t, err, boom)
	_, err = repo.FindAll(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, repo.DeleteByID(ctx, 1), boom)
}

func TestRepository_HealthCheckUnreachable(t *testing.T) {
	t.Parallel()

	repo := cache.New(memory.New(), unreachableClient(t), time.Minute, nil, discardLogger())

	assert.Equal(t, "redis", repo.Name())
	assert.Error(t, repo.HealthCheck(context.Background()))
}

func TestRepository_CountsLookupErrors(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewMetrics(mp, "cache-test")
	require.NoError(t, err)

	repo := cache.New(memory.New(), unreachableClient(t), time.Minute, metrics, discardLogger())
	_, err = repo.FindAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), lookupCount(t, reader, "error"))
}

func TestRepository_ServesHitsFromRedis(t *testing.T) {
	t.Parallel()

	mr, rdb := fakeRedis(t)
	next := mocks.NewMockTodoRepository(t)
	repo := cache.New(next, rdb, time.Minute, nil, discardLogger())
	ctx := context.Background()

	want := []todo.Todo{{ID: 1, Title: "cached"}}
	next.EXPECT().FindAll(mock.Anything).Return(want, nil).Once()

	for range 3 {
		got, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.True(t, mr.Exists(cache.ListKey))
	assert.Equal(t, time.Minute, mr.TTL(cache.ListKey))
}

func TestRepository_WriteInvalidatesList(t *testing.T) {
	t.Parallel()

	mr, rdb := fakeRedis(t)
	repo := cache.New(memory.New(), rdb, time.Minute, nil, discardLogger())
	ctx := context.Background()

	_, err := repo.Save(ctx, &todo.Todo{Title: "one"})
	require.NoError(t, err)
	first, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = repo.Save(ctx, &todo.Todo{Title: "two"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ListKey))

	second, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)

	require.NoError(t, repo.DeleteByID(ctx, second[0].ID))
	third, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestRepository_LoadStartedBeforeWriteIsNotCached(t *testing.T) {
	t.Parallel()

	mr, rdb := fakeRedis(t)
	next := newGatedRepository()
	repo := cache.New(next, rdb, time.Minute, nil, discardLogger())
	ctx := context.Background()

	loaded := make(chan []todo.Todo, 1)
	go func() {
		list, err := repo.FindAll(ctx)
		assert.NoError(t, err)
		loaded <- list
	}()

	<-next.started
	_, err := repo.Save(ctx, &todo.Todo{Title: "new"})
	require.NoError(t, err)
	close(next.release)

	assert.Empty(t, <-loaded)
	assert.False(t, mr.Exists(cache.ListKey), "list loaded before the write must not be cached")

	got, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Title)
}

func TestRepository_SharedLoadOutlivesCanceledCaller(t *testing.T) {
	t.Parallel()

	_, rdb := fakeRedis(t)
	next := newGatedRepository()
	_, err := next.Save(context.Background(), &todo.Todo{Title: "a"})
	require.NoError(t, err)
	repo := cache.New(next, rdb, time.Minute, nil, discardLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := repo.FindAll(firstCtx)
		firstErr <- err
	}()
	<-next.started

	secondCtx, cancelSecond := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSecond()
	second := make(chan []todo.Todo, 1)
	go func() {
		list, err := repo.FindAll(secondCtx)
		assert.NoError(t, err)
		second <- list
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(next.release)
	list := <-second
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Title)
}

func TestRepository_Contract(t *testing.T) {
	rdb := liveClient(t)

	storagetest.Run(t, func(t *testing.T) ports.TodoRepository {
		require.NoError(t, rdb.FlushDB(context.Background()).Err())
		return cache.New(memory.New(), rdb, time.Minute, nil, discardLogger())
	})
}

func lookupCount(t *testing.T, reader *sdkmetric.ManualReader, result string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "todo.cache.lookup.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(telemetry.AttrResult); ok && v.AsString() == result {
					return dp.Value
				}
			}
		}
	}
	return 0
}
