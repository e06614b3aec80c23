package ports

import (
	"context"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoService defines the service port for todo operations.
// Implemented by the application layer; called by inbound adapters (handlers).
// Handlers forward requests unchanged and return whatever the service returns.
type TodoService interface {
	// SaveTodo persists the todo and returns the stored entity. A todo whose
	// ID matches an existing record replaces it; otherwise a new record is
	// created with a server-assigned ID. When err is nil the returned todo
	// is non-nil.
	SaveTodo(ctx context.Context, item *todo.Todo) (*todo.Todo, error)

	// GetAllTodos returns every stored todo in repository order.
	GetAllTodos(ctx context.Context) ([]todo.Todo, error)

	// DeleteTodo removes the todo with the given ID. Deleting an ID that does
	// not exist is not an error.
	DeleteTodo(ctx context.Context, id int64) error
}
