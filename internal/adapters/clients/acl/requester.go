package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/platform/httpclient"
)

// requester sends JSON requests to the upstream and turns its failures into
// domain errors.
type requester struct {
	client *httpclient.Client
	logger *slog.Logger
}

// call sends method path with in as the JSON body (nil sends none) and
// decodes a 2xx body into out (nil, or a 204, skips decoding). Any 2xx
// counts as success since upstreams disagree on 200, 201 and 204 for writes.
//
// Non-2xx responses become domain errors through TranslateHTTPError. A
// transport failure or an open circuit breaker wraps domain.ErrUnavailable;
// the caller's own cancellation or deadline is returned as is.
func (r *requester) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.client.BaseURL()+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(ctx, req)
	if resp != nil {
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			if cerr := resp.Body.Close(); cerr != nil {
				r.logger.WarnContext(ctx, "closing upstream response", slog.Any("error", cerr))
			}
		}()
	}

	switch {
	case resp != nil && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices):
		// Covers both a plain error status and retries that ran out on one.
		r.logger.WarnContext(ctx, "upstream rejected request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return TranslateHTTPError(resp)
	case err != nil && ctx.Err() != nil:
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	case err != nil:
		r.logger.ErrorContext(ctx, "upstream unreachable",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(domain.ErrUnavailable, err))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
