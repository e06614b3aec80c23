package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/storagetest"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(t *testing.T) ports.TodoRepository {
		return openStore(t, ":memory:")
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "todos.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	saved, err := first.Save(ctx, &todo.Todo{Title: "survives restart", Completed: true})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening reruns migrations, which must be a no-op on an existing schema.
	second := openStore(t, path)
	all, err := second.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []todo.Todo{*saved}, all)
}

func TestStore_HealthCheck(t *testing.T) {
	t.Parallel()

	store := openStore(t, ":memory:")

	assert.Equal(t, "sqlite", store.Name())
	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestStore_HealthCheckAfterClose(t *testing.T) {
	t.Parallel()

	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestOpen_InvalidPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing-dir", "todos.db")

	_, err := sqlite.Open(context.Background(), path)
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	store := openStore(t, ":memory:")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
