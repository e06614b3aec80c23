package dto

import (
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoRequest is the JSON body of POST /api/todos. The route forwards the
// body to the service without validation; a present, known id means update.
type TodoRequest struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ToDomain converts the request body to a domain Todo entity.
func (r *TodoRequest) ToDomain() *todo.Todo {
	return &todo.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
	}
}
