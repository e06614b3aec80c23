package dto

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/platform/logging"
)

// ErrorResponse is an RFC 9457 problem document.
type ErrorResponse struct {
	Type     string        `json:"type"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is one invalid input. Location is "body" for the request body
// as a whole, "body.<field>" for a todo field or "path.id" for the URL.
type ErrorDetail struct {
	Location string `json:"location"`
	Message  string `json:"message"`
	Value    any    `json:"value,omitempty"`
}

const internalErrorDetail = "an unexpected error occurred"

// statusFor maps errors to response statuses; the first match wins and
// anything unmatched is a 500.
var statusFor = []struct {
	target error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrUnavailable, http.StatusBadGateway},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// NewErrorResponse builds the problem document for err. Instance is the
// request URI. A 500 never carries err's text; the store or upstream
// message stays in the logs.
func NewErrorResponse(r *http.Request, err error) ErrorResponse {
	status := http.StatusInternalServerError
	for _, m := range statusFor {
		if errors.Is(err, m.target) {
			status = m.status
			break
		}
	}

	resp := ErrorResponse{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Error(),
		Instance: r.RequestURI,
	}
	if status == http.StatusInternalServerError {
		resp.Detail = internalErrorDetail
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = make([]ErrorDetail, 0, len(verr.Fields))
		for field, msg := range verr.Fields {
			resp.Errors = append(resp.Errors, ErrorDetail{Location: location(field), Message: msg})
		}
		slices.SortFunc(resp.Errors, func(a, b ErrorDetail) int {
			return cmp.Compare(a.Location, b.Location)
		})
	}
	return resp
}

// WriteErrorResponse sends the problem document for err as
// application/problem+json. Errors that become a 500 are logged with their
// full text.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	resp := NewErrorResponse(r, err)
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if resp.Status == http.StatusInternalServerError {
		logger.LogAttrs(ctx, slog.LevelError, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(resp.Status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.LogAttrs(ctx, slog.LevelError, "writing problem response", slog.Any("error", encErr))
	}
}

// location qualifies a bare todo field name with "body.".
func location(field string) string {
	if field == "body" || strings.Contains(field, ".") {
		return field
	}
	return "body." + field
}
