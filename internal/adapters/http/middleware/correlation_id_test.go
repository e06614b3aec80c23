package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/httpclient"
)

func TestCorrelationID_ReachesService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		wantReqID bool
	}{
		{name: "caller supplied", header: "checkout-42"},
		{name: "missing falls back to request ID", header: "", wantReqID: true},
		{name: "malformed falls back to request ID", header: "bad id\r\n", wantReqID: true},
		{name: "oversized falls back to request ID", header: strings.Repeat("c", 200), wantReqID: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api, svc := todoAPI(t, middleware.RequestID(), middleware.CorrelationID())

			var seen string
			svc.EXPECT().GetAllTodos(mock.Anything).
				RunAndReturn(func(ctx context.Context) ([]todo.Todo, error) {
					seen = middleware.CorrelationIDFromContext(ctx)
					return []todo.Todo{}, nil
				})

			req := newRequest(http.MethodGet, "/api/todos")
			if tt.header != "" {
				req.Header.Set("X-Correlation-ID", tt.header)
			}
			rec := serveRequest(api, req)
			require.Equal(t, http.StatusOK, rec.Code)

			want := tt.header
			if tt.wantReqID {
				want = rec.Header().Get("X-Request-ID")
				require.NotEmpty(t, want)
			}
			assert.Equal(t, want, seen)
			assert.Equal(t, want, rec.Header().Get("X-Correlation-ID"))
		})
	}
}

func TestWithCorrelationID_PropagatesToOutboundClient(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(upstream.Close)

	client := httpclient.New(&config.ClientConfig{
		BaseURL: upstream.URL,
		Timeout: time.Second,
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}, "todo-upstream", nil, discardLogger())

	ctx := middleware.WithCorrelationID(context.Background(), "corr-7")
	assert.Equal(t, "corr-7", middleware.CorrelationIDFromContext(ctx))
	assert.Empty(t, middleware.CorrelationIDFromContext(context.Background()))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, upstream.URL+"/api/todos/7", http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(ctx, req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "corr-7", <-got)
}
