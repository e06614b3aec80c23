package acl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	domtodo "github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/httpclient"
)

// newTestClient creates an httpclient.Client pointing at the given test server
// with circuit breaker and retry configured for fast test execution.
func newTestClient(t *testing.T, baseURL string) *httpclient.Client {
	t.Helper()

	cfg := &config.ClientConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      1,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 1,
		},
	}

	return httpclient.New(cfg, UpstreamName, nil, testLogger())
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// writeJSON encodes v as JSON to the response writer, failing the test on error.
func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestTodoClient_FindAll(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/todos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		writeJSON(t, w, []map[string]any{
			{"id": 2, "title": "Walk dog", "completed": true},
			{"id": 1, "title": "Buy milk", "completed": false},
		})
	}))
	defer ts.Close()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
	todos, err := client.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("len(todos) = %d, want 2", len(todos))
	}
	if todos[0] != (domtodo.Todo{ID: 2, Title: "Walk dog", Completed: true}) {
		t.Errorf("todos[0] = %+v, want upstream order preserved", todos[0])
	}
}

func TestTodoClient_FindAll_Empty(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "[]")
	}))
	defer ts.Close()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
	todos, err := client.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if todos == nil || len(todos) != 0 {
		t.Errorf("FindAll() = %#v, want empty non-nil slice", todos)
	}
}

func TestTodoClient_Save(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      domtodo.Todo
		status     int
		wantBodyID bool
	}{
		{name: "create omits id, upstream returns 200", input: domtodo.Todo{Title: "new"}, status: http.StatusOK},
		{name: "create accepts 201", input: domtodo.Todo{Title: "new"}, status: http.StatusCreated},
		{
			name:       "update sends id",
			input:      domtodo.Todo{ID: 5, Title: "done", Completed: true},
			status:     http.StatusOK,
			wantBodyID: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/todos" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}

				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("decoding request body: %v", err)
				}
				if _, ok := body["id"]; ok != tt.wantBodyID {
					t.Errorf("request body id present = %v, want %v", ok, tt.wantBodyID)
				}

				id := int64(77)
				if tt.input.ID != 0 {
					id = tt.input.ID
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				writeJSON(t, w, map[string]any{"id": id, "title": body["title"], "completed": body["completed"]})
			}))
			defer ts.Close()

			client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
			got, err := client.Save(context.Background(), &tt.input)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if got.Title != tt.input.Title || got.Completed != tt.input.Completed {
				t.Errorf("Save() = %+v, want fields of %+v", got, tt.input)
			}
			if got.ID == 0 {
				t.Error("Save() returned zero ID")
			}
		})
	}
}

func TestTodoClient_Save_ValidationError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"invalid","errors":[{"location":"body.title","message":"too long"}]}`)
	}))
	defer ts.Close()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
	_, err := client.Save(context.Background(), &domtodo.Todo{Title: strings.Repeat("x", 10)})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Save() error = %v, want *domain.ValidationError", err)
	}
	if verr.Fields["title"] != "too long" {
		t.Errorf("Fields[title] = %q, want %q", verr.Fields["title"], "too long")
	}
}

func TestTodoClient_DeleteByID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "200 is success", status: http.StatusOK},
		{name: "204 is success", status: http.StatusNoContent},
		{name: "404 is treated as already deleted", status: http.StatusNotFound},
		{name: "403 maps to ErrForbidden", status: http.StatusForbidden, wantErr: domain.ErrForbidden},
		{name: "500 maps to ErrUnavailable", status: http.StatusInternalServerError, wantErr: domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.Method != http.MethodDelete || r.URL.Path != "/api/todos/42" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
			err := client.DeleteByID(context.Background(), 42)

			if tt.wantErr == nil && err != nil {
				t.Fatalf("DeleteByID() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("DeleteByID() error = %v, want %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("upstream calls = %d, want 1", got)
			}
		})
	}
}

func TestTodoClient_MalformedResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"not":"an array"}`)
	}))
	defer ts.Close()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
	if _, err := client.FindAll(context.Background()); err == nil {
		t.Fatal("FindAll() error = nil, want decode error")
	}
}

func TestTodoClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewTodoClient(newTestClient(t, url), testLogger())
	_, err := client.FindAll(context.Background())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("FindAll() error = %v, want ErrUnavailable", err)
	}
}

func TestTodoClient_CallerCancellationIsNotUnavailable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())
	_, err := client.FindAll(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("FindAll() error = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("FindAll() error = %v, must not be ErrUnavailable", err)
	}
}

func TestTodoClient_HealthCheck(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewTodoClient(newTestClient(t, ts.URL), testLogger())

	if client.Name() != UpstreamName {
		t.Errorf("Name() = %q, want %q", client.Name(), UpstreamName)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() on fresh client = %v, want nil", err)
	}

	// MaxFailures is 5 in newTestClient; trip the breaker.
	for range 5 {
		_, _ = client.FindAll(context.Background())
	}

	err := client.HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failing") {
		t.Errorf("HealthCheck() after failures = %v, want failing error", err)
	}
}
