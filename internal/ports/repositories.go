package ports

import (
	"context"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoRepository defines the persistence port for todos.
// Implemented by the storage adapters (memory, sqlite, postgres), the redis
// cache decorator, and the remote ACL client; called by the application layer.
type TodoRepository interface {
	// Save inserts or updates a todo. When item.ID is non-zero and a record
	// with that ID exists, the record is updated. Otherwise a new record is
	// inserted and the returned todo carries the newly assigned ID. The input
	// is not modified, and a nil error always comes with a non-nil todo.
	Save(ctx context.Context, item *todo.Todo) (*todo.Todo, error)

	// FindAll returns all todos in repository order: ascending ID for the
	// local stores, the upstream's order for the remote client. An empty
	// store returns an empty, non-nil slice.
	FindAll(ctx context.Context) ([]todo.Todo, error)

	// DeleteByID removes the todo with the given ID. A missing ID is a no-op.
	DeleteByID(ctx context.Context, id int64) error
}
