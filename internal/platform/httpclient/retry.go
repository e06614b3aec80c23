package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jsamuelsen11/todo-service/internal/platform/logging"
)

// jitterFraction spreads each backoff delay by up to ±25%.
const jitterFraction = 0.25

// retryConfig is the retry policy copied out of config.RetryConfig.
type retryConfig struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// backoff is the wait before retry number n (1 for the first retry):
// initialInterval·multiplier^(n-1), capped at maxInterval, then jittered.
func (rc retryConfig) backoff(n int) time.Duration {
	d := float64(rc.initialInterval) * math.Pow(rc.multiplier, float64(n-1))
	d = min(d, float64(rc.maxInterval))
	d += d * jitterFraction * (2*rand.Float64() - 1)
	return time.Duration(max(d, 0))
}

// doWithRetry sends req up to maxAttempts times. GET and DELETE are retried
// on transport errors, 429 and 5xx. A POST creating a todo is retried only on
// 429 and 503, where the upstream refused it without doing anything.
//
// When it gives up on a retryable status the last response is stored in resp
// along with the error, so the caller can read the upstream's error body.
// resp is an out parameter to keep the bodyclose linter quiet; the caller
// closes the body.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, resp **http.Response) error {
	if c.retry.maxAttempts < 1 {
		return fmt.Errorf("httpclient: maxAttempts must be >= 1, got %d", c.retry.maxAttempts)
	}
	if err := makeReplayable(req); err != nil {
		return err
	}
	idempotent := isIdempotent(req.Method)

	for attempt := 1; ; attempt++ {
		r, err := c.http.Do(req)

		var failure error
		switch {
		case err != nil:
			failure = err
		case isRetryableStatus(r.StatusCode):
			failure = fmt.Errorf("HTTP %d from %s", r.StatusCode, c.upstream)
		default:
			*resp = r
			return nil
		}

		if attempt == c.retry.maxAttempts || !canRetry(idempotent, r, err) {
			*resp = r
			return failure
		}

		wait := c.retry.backoff(attempt)
		if r != nil {
			if hint := parseRetryAfter(r.Header.Get("Retry-After"), time.Now()); hint > 0 {
				wait = min(hint, c.retry.maxInterval)
			}
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
		}

		logging.FromContext(ctx).LogAttrs(ctx, slog.LevelWarn, "retrying upstream request",
			slog.String("peer_service", c.upstream),
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.retry.maxAttempts),
			slog.Duration("backoff", wait),
			slog.Any("error", failure),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return fmt.Errorf("rewinding request body: %w", err)
			}
		}
	}
}

// makeReplayable buffers a body that net/http cannot rewind by itself so
// every attempt sends the same bytes.
func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	req.ContentLength = int64(len(buf))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func canRetry(idempotent bool, r *http.Response, err error) bool {
	if err != nil {
		return idempotent && isRetryable(err)
	}
	return idempotent || isRefusedStatus(r.StatusCode)
}

// parseRetryAfter reads a Retry-After value given as delay seconds or as an
// HTTP date. Absent, malformed and past values give 0.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// isRetryable is false once the caller's context has ended; any other
// transport failure is worth another attempt.
func isRetryable(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// isRefusedStatus marks statuses where the upstream did not act on the
// request, so even a create can be sent again.
func isRefusedStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
