package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/todo-service/internal/platform/logging"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

const (
	statusOK       = "ok"
	statusReady    = "ready"
	statusDegraded = "degraded"
	statusNotReady = "not_ready"

	// checkUnavailable replaces a failing check's error in the response.
	// Ping errors can name hosts or DSNs, so they only go to the log.
	checkUnavailable = "unavailable"
)

// HealthHandler handles liveness and readiness HTTP endpoints.
type HealthHandler struct {
	registry ports.HealthRegistry
	optional map[string]bool
}

// NewHealthHandler creates a new HealthHandler with the given health registry.
// Checks named in optional are reported but only mark the service degraded
// when failing; any other failing check makes it not ready.
func NewHealthHandler(registry ports.HealthRegistry, optional ...string) *HealthHandler {
	opt := make(map[string]bool, len(optional))
	for _, name := range optional {
		opt[name] = true
	}
	return &HealthHandler{registry: registry, optional: opt}
}

// Liveness handles GET /health/live. Always returns 200 OK.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: statusOK})
}

// Readiness handles GET /health/ready. Returns 200 when every required check
// passes (status "ready", or "degraded" if an optional check fails) and 503
// when a required check fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results := h.registry.CheckAll(ctx)
	logger := logging.FromContext(ctx)

	checks := make(map[string]string, len(results))
	status := statusReady
	code := http.StatusOK
	for name, err := range results {
		if err == nil {
			checks[name] = statusOK
			continue
		}
		checks[name] = checkUnavailable
		logger.WarnContext(ctx, "readiness check failed",
			slog.String("check", name),
			slog.Bool("optional", h.optional[name]),
			slog.Any("error", err),
		)
		if h.optional[name] {
			if status == statusReady {
				status = statusDegraded
			}
			continue
		}
		status = statusNotReady
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, dto.HealthResponse{Status: status, Checks: checks})
}
