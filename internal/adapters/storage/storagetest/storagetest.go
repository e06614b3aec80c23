// Package storagetest holds behavioral checks shared by every
// ports.TodoRepository implementation. Adapter tests call Run with a factory
// that returns an empty repository.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Factory returns an empty repository. Cleanup should be registered on t.
type Factory func(t *testing.T) ports.TodoRepository

// Run executes the repository contract against repositories built by newRepo.
// Subtests are sequential so factories may share one database.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("insert assigns increasing ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Save(ctx, &todo.Todo{Title: "first"})
		require.NoError(t, err)
		second, err := repo.Save(ctx, &todo.Todo{Title: "second", Completed: true})
		require.NoError(t, err)

		assert.Positive(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
		assert.Equal(t, "second", second.Title)
		assert.True(t, second.Completed)
	})

	t.Run("save does not modify its argument", func(t *testing.T) {
		repo := newRepo(t)

		in := &todo.Todo{Title: "untouched"}
		saved, err := repo.Save(context.Background(), in)
		require.NoError(t, err)

		assert.Zero(t, in.ID)
		assert.NotSame(t, in, saved)
	})

	t.Run("save with existing id updates in place", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Save(ctx, &todo.Todo{Title: "draft"})
		require.NoError(t, err)

		updated, err := repo.Save(ctx, &todo.Todo{ID: created.ID, Title: "final", Completed: true})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, todo.Todo{ID: created.ID, Title: "final", Completed: true}, all[0])
	})

	t.Run("save with unknown id inserts with a new id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		saved, err := repo.Save(ctx, &todo.Todo{ID: 987654, Title: "orphan"})
		require.NoError(t, err)
		assert.NotEqual(t, int64(987654), saved.ID)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, saved.ID, all[0].ID)
	})

	t.Run("find all on empty store returns empty slice", func(t *testing.T) {
		repo := newRepo(t)

		all, err := repo.FindAll(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("find all is ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var want []todo.Todo
		for _, title := range []string{"a", "b", "c", "d"} {
			saved, err := repo.Save(ctx, &todo.Todo{Title: title})
			require.NoError(t, err)
			want = append(want, *saved)
		}

		// Updating the first entry must not move it to the end.
		_, err := repo.Save(ctx, &todo.Todo{ID: want[0].ID, Title: "a2"})
		require.NoError(t, err)
		want[0].Title = "a2"

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, all)
	})

	t.Run("delete removes only the given id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		keep, err := repo.Save(ctx, &todo.Todo{Title: "keep"})
		require.NoError(t, err)
		drop, err := repo.Save(ctx, &todo.Todo{Title: "drop"})
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, drop.ID))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []todo.Todo{*keep}, all)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		saved, err := repo.Save(ctx, &todo.Todo{Title: "once"})
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, saved.ID))
		require.NoError(t, repo.DeleteByID(ctx, saved.ID))
		require.NoError(t, repo.DeleteByID(ctx, 424242))
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Save(ctx, &todo.Todo{Title: "first"})
		require.NoError(t, err)
		require.NoError(t, repo.DeleteByID(ctx, first.ID))

		second, err := repo.Save(ctx, &todo.Todo{Title: "second"})
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("concurrent inserts get distinct ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const writers = 20
		ids := make(chan int64, writers)
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				saved, err := repo.Save(ctx, &todo.Todo{Title: "concurrent"})
				if assert.NoError(t, err) {
					ids <- saved.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool, writers)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, writers)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, writers)
	})
}
