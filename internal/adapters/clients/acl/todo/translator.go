package todo

import (
	domtodo "github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// ToDomainTodo converts an upstream TodoDTO to a domain Todo entity.
func ToDomainTodo(dto *TodoDTO) domtodo.Todo {
	return domtodo.Todo{
		ID:        dto.ID,
		Title:     dto.Title,
		Completed: dto.Completed,
	}
}

// ToDomainTodoList converts the upstream list response to domain entities,
// preserving order. A nil or empty input yields an empty, non-nil slice.
func ToDomainTodoList(dtos []TodoDTO) []domtodo.Todo {
	todos := make([]domtodo.Todo, len(dtos))
	for i := range dtos {
		todos[i] = ToDomainTodo(&dtos[i])
	}
	return todos
}

// ToSaveTodoRequest converts a domain Todo entity to the upstream save body.
func ToSaveTodoRequest(t *domtodo.Todo) SaveTodoRequestDTO {
	return SaveTodoRequestDTO{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
	}
}
