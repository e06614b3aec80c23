// Package acl is the anti-corruption layer in front of a remote todo API
// that speaks the same /api/todos contract as this service. TodoClient
// implements ports.TodoRepository over it; the wire shapes and their
// translation to domain.Todo live in acl/todo.
package acl

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jsamuelsen11/todo-service/internal/domain"
)

// maxErrorBodySize caps how much of an error body is read.
const maxErrorBodySize = 1 << 20

// upstreamError is the union of the error bodies upstreams send: RFC 9457
// problem details (detail, errors) and the Spring Boot default
// ({"status":500,"error":"Internal Server Error","message":"..."}).
type upstreamError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Errors  []struct {
		Location string `json:"location"`
		Message  string `json:"message"`
	} `json:"errors"`
}

// TranslateHTTPError turns a non-2xx upstream response into a domain error
// whose text carries the upstream's own explanation when it sent one:
//
//	404           domain.ErrNotFound
//	400, 422      *domain.ValidationError with field errors, else domain.ErrValidation
//	409           domain.ErrConflict
//	401, 403      domain.ErrForbidden
//	5xx           domain.ErrUnavailable
//
// Any other status gives an error matching none of them.
func TranslateHTTPError(resp *http.Response) error {
	body := readUpstreamError(resp)
	detail := firstNonEmpty(body.Detail, body.Message, body.Error, http.StatusText(resp.StatusCode))

	var sentinel error
	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		if len(body.Errors) > 0 {
			fields := make(map[string]string, len(body.Errors))
			for _, e := range body.Errors {
				fields[strings.TrimPrefix(e.Location, "body.")] = e.Message
			}
			return &domain.ValidationError{Fields: fields}
		}
		sentinel = domain.ErrValidation
	case code == http.StatusConflict:
		sentinel = domain.ErrConflict
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case code >= http.StatusInternalServerError:
		sentinel = domain.ErrUnavailable
	default:
		return fmt.Errorf("unexpected upstream status %d: %s", code, detail)
	}
	return fmt.Errorf("%s: %w", detail, sentinel)
}

// readUpstreamError decodes a JSON error body. Other content types and
// undecodable bodies give the zero value.
func readUpstreamError(resp *http.Response) upstreamError {
	var body upstreamError
	if resp.Body == nil {
		return body
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" && mediaType != "application/problem+json" {
		return body
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodySize)).Decode(&body); err != nil {
		return upstreamError{}
	}
	return body
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
