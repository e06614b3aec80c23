// Package dto defines the JSON request and response shapes of the inbound
// HTTP adapter and the RFC 9457 error envelope.
package dto

import (
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoResponse is the JSON representation of a todo.
type TodoResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// HealthResponse is the body of the liveness and readiness endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ToTodoResponse converts a domain Todo entity to its JSON representation.
func ToTodoResponse(t *todo.Todo) TodoResponse {
	return TodoResponse{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
	}
}

// ToTodoListResponse converts domain todos to a JSON array, preserving order.
// The result is never nil so an empty list encodes as [] rather than null.
func ToTodoListResponse(todos []todo.Todo) []TodoResponse {
	items := make([]TodoResponse, len(todos))
	for i := range todos {
		items[i] = ToTodoResponse(&todos[i])
	}
	return items
}
