package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	adapthttp "github.com/jsamuelsen11/todo-service/internal/adapters/http"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/todo-service/mocks"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// todoAPI mounts the todo routes behind middlewares with a mocked service.
func todoAPI(t *testing.T, middlewares ...func(http.Handler) http.Handler) (http.Handler, *mocks.MockTodoService) {
	t.Helper()
	svc := mocks.NewMockTodoService(t)
	router := adapthttp.NewRouter(
		handlers.NewTodoHandler(svc),
		handlers.NewHealthHandler(mocks.NewMockHealthRegistry(t)),
		middlewares...,
	)
	return router, svc
}

type serviceExpecter = mocks.MockTodoService_Expecter

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, http.NoBody)
}

func serveRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	if body == "" {
		return serveRequest(h, newRequest(method, target))
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serveRequest(h, req)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}
