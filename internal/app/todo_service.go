// Package app provides application services that orchestrate use cases by
// coordinating between domain logic and infrastructure through port interfaces.
package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time check that TodoService implements ports.TodoService.
var _ ports.TodoService = (*TodoService)(nil)

// TodoService implements ports.TodoService by delegating to a TodoRepository.
// It adds structured logging around each call but contains no business logic;
// upsert and idempotent delete semantics belong to the repository.
type TodoService struct {
	repo   ports.TodoRepository
	logger *slog.Logger
}

// NewTodoService creates a TodoService backed by repo. A nil logger is
// replaced with one that discards all output.
func NewTodoService(repo ports.TodoRepository, logger *slog.Logger) *TodoService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TodoService{
		repo:   repo,
		logger: logger,
	}
}

// SaveTodo persists item and returns the stored representation, including the
// ID assigned on insert.
func (s *TodoService) SaveTodo(ctx context.Context, item *todo.Todo) (*todo.Todo, error) {
	s.logger.InfoContext(ctx, "saving todo",
		slog.Int64("id", item.ID),
		slog.Bool("new", item.IsNew()),
	)

	saved, err := s.repo.Save(ctx, item)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save todo",
			slog.String("operation", "SaveTodo"),
			slog.Int64("id", item.ID),
			slog.Any("error", err),
		)
		return nil, err
	}

	return saved, nil
}

// GetAllTodos returns every stored todo in repository order.
func (s *TodoService) GetAllTodos(ctx context.Context) ([]todo.Todo, error) {
	s.logger.InfoContext(ctx, "listing todos")

	todos, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list todos",
			slog.String("operation", "GetAllTodos"),
			slog.Any("error", err),
		)
		return nil, err
	}

	if todos == nil {
		todos = []todo.Todo{}
	}
	return todos, nil
}

// DeleteTodo removes the todo with the given ID.
func (s *TodoService) DeleteTodo(ctx context.Context, id int64) error {
	s.logger.InfoContext(ctx, "deleting todo", slog.Int64("id", id))

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete todo",
			slog.String("operation", "DeleteTodo"),
			slog.Int64("id", id),
			slog.Any("error", err),
		)
		return err
	}

	return nil
}
