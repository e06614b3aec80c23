package acl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	acltodo "github.com/jsamuelsen11/todo-service/internal/adapters/clients/acl/todo"
	"github.com/jsamuelsen11/todo-service/internal/domain"
	domtodo "github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/httpclient"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// todosPath is the upstream collection resource.
const todosPath = "/api/todos"

// Compile-time interface check.
var _ ports.TodoRepository = (*TodoClient)(nil)

// TodoClient is the outbound adapter for an upstream todo API. It implements
// [ports.TodoRepository] so the service can run as a facade in front of an
// existing backend.
//
// All methods translate between domain types and the upstream's wire
// representation via the translators in sub-package [acltodo]. HTTP errors
// are mapped to domain errors (ErrNotFound, ErrValidation, etc.) by
// [TranslateHTTPError].
//
// The underlying [httpclient.Client] provides circuit breaking, rate
// limiting, retry with exponential backoff, and OpenTelemetry tracing for
// every outbound call.
type TodoClient struct {
	upstream *requester
	client   *httpclient.Client
	logger   *slog.Logger
}

// NewTodoClient creates a TodoClient that sends requests through the given
// [httpclient.Client]. The client's BaseURL should point to the upstream root
// (e.g. "http://legacy-todo:8080"); paths under /api/todos are appended.
func NewTodoClient(client *httpclient.Client, logger *slog.Logger) *TodoClient {
	return &TodoClient{
		upstream: &requester{client: client, logger: logger},
		client:   client,
		logger:   logger,
	}
}

// Save sends POST /api/todos and returns the upstream's stored todo.
func (c *TodoClient) Save(ctx context.Context, t *domtodo.Todo) (*domtodo.Todo, error) {
	reqDTO := acltodo.ToSaveTodoRequest(t)

	var respDTO acltodo.TodoDTO
	if err := c.upstream.call(ctx, http.MethodPost, todosPath, reqDTO, &respDTO); err != nil {
		return nil, err
	}
	result := acltodo.ToDomainTodo(&respDTO)
	return &result, nil
}

// FindAll fetches GET /api/todos, preserving the upstream's order.
func (c *TodoClient) FindAll(ctx context.Context) ([]domtodo.Todo, error) {
	var dtos []acltodo.TodoDTO
	if err := c.upstream.call(ctx, http.MethodGet, todosPath, nil, &dtos); err != nil {
		return nil, err
	}
	return acltodo.ToDomainTodoList(dtos), nil
}

// DeleteByID sends DELETE /api/todos/{id}. An upstream 404 is treated as
// success so deletes stay idempotent across backends.
func (c *TodoClient) DeleteByID(ctx context.Context, id int64) error {
	path := fmt.Sprintf("%s/%d", todosPath, id)

	err := c.upstream.call(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.DebugContext(ctx, "upstream todo already absent", slog.Int64("id", id))
		return nil
	}
	return err
}
