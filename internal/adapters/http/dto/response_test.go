package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

func TestToTodoResponse(t *testing.T) {
	t.Parallel()

	got := dto.ToTodoResponse(&todo.Todo{ID: 3, Title: "Buy groceries", Completed: true})

	want := dto.TodoResponse{ID: 3, Title: "Buy groceries", Completed: true}
	if got != want {
		t.Errorf("ToTodoResponse() = %+v, want %+v", got, want)
	}
}

func TestTodoResponse_WireShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(dto.TodoResponse{ID: 1, Title: "Buy groceries"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"id":1,"title":"Buy groceries","completed":false}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestToTodoListResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		todos    []todo.Todo
		wantJSON string
	}{
		{
			name:     "nil encodes as empty array",
			todos:    nil,
			wantJSON: `[]`,
		},
		{
			name:     "empty encodes as empty array",
			todos:    []todo.Todo{},
			wantJSON: `[]`,
		},
		{
			name: "order is preserved",
			todos: []todo.Todo{
				{ID: 5, Title: "e"},
				{ID: 2, Title: "b", Completed: true},
			},
			wantJSON: `[{"id":5,"title":"e","completed":false},{"id":2,"title":"b","completed":true}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(dto.ToTodoListResponse(tt.todos))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.wantJSON {
				t.Errorf("json = %s, want %s", data, tt.wantJSON)
			}
		})
	}
}

func TestHealthResponse_OmitsEmptyChecks(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(dto.HealthResponse{Status: "ok"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"status":"ok"}` {
		t.Errorf("json = %s, want %s", data, `{"status":"ok"}`)
	}
}
