// Package todo implements the Anti-Corruption Layer translators for the
// upstream todo API's resources.
package todo

// TodoDTO matches the upstream Todo representation returned by
// GET /api/todos and POST /api/todos.
type TodoDTO struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// SaveTodoRequestDTO is the body of POST /api/todos. The upstream updates the
// todo when id is present and known and creates one otherwise, so id is
// omitted for new todos.
type SaveTodoRequestDTO struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
