// Package httpclient is the outbound HTTP client used to reach the remote
// todo upstream. A call passes the circuit breaker, then the rate limiter,
// then gets ID and trace headers and a client span, and finally runs the
// retry loop.
//
//	client := httpclient.New(&cfg.Client, acl.UpstreamName, metrics, logger)
//	resp, err := client.Do(ctx, req)
//
// Inbound middleware stores the request and correlation IDs with
// WithRequestID and WithCorrelationID; Do copies them onto the outbound
// request.
package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
)

const tracerName = "github.com/jsamuelsen11/todo-service/internal/platform/httpclient"

// forwarded maps a context key to the header it is sent as.
var forwarded = []struct {
	key    any
	header string
}{
	{requestIDKey{}, "X-Request-ID"},
	{correlationIDKey{}, "X-Correlation-ID"},
}

type (
	requestIDKey     struct{}
	correlationIDKey struct{}
)

// WithRequestID stores the inbound request ID for outbound propagation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithCorrelationID stores the inbound correlation ID for outbound propagation.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// Client sends requests to a single named upstream.
type Client struct {
	http     *http.Client
	baseURL  string
	upstream string
	breaker  *gobreaker.CircuitBreaker[struct{}]
	limiter  *rate.Limiter
	retry    retryConfig
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New builds a Client for the upstream at cfg.BaseURL. upstream labels the
// breaker, spans and metrics. metrics may be nil. A non-positive
// requests_per_second disables rate limiting.
func New(cfg *config.ClientConfig, upstream string, metrics *telemetry.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		upstream: upstream,
		breaker:  newBreaker(upstream, &cfg.CircuitBreaker, logger),
		retry: retryConfig{
			maxAttempts:     cfg.Retry.MaxAttempts,
			initialInterval: cfg.Retry.InitialInterval,
			maxInterval:     cfg.Retry.MaxInterval,
			multiplier:      cfg.Retry.Multiplier,
		},
		metrics: metrics,
		logger:  logger,
	}
	if rl := cfg.RateLimit; rl.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.BurstSize)
	}
	return c
}

// newBreaker trips after cfg.MaxFailures consecutive failures.
func newBreaker(name string, cfg *config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	threshold := cfg.MaxFailures
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: clampUint32(cfg.HalfOpenLimit),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return int(c.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// Do sends req. On success resp is non-nil and the caller closes its body.
// When retries run out on a retryable status, or a non-idempotent request
// gets a 5xx, both resp and err are non-nil so the caller can still read the
// upstream's error body. Breaker rejections and transport errors return a
// nil resp.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()

	var resp *http.Response
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.send(ctx, req, &resp)
	})

	c.observe(ctx, req.Method, time.Since(start), resp, err)
	return resp, err
}

// send is one breaker-guarded call, retries included.
func (c *Client) send(ctx context.Context, req *http.Request, resp **http.Response) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	for _, f := range forwarded {
		if id, _ := ctx.Value(f.key).(string); id != "" {
			req.Header.Set(f.header, id)
		}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+req.Method+" "+c.upstream,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.upstream),
		),
	)
	defer span.End()
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	err := c.doWithRetry(ctx, req.WithContext(ctx), resp)
	if *resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", (*resp).StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// BaseURL is the upstream root that request paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CircuitBreakerState is "closed", "half-open" or "open".
func (c *Client) CircuitBreakerState() string {
	return c.breaker.State().String()
}

// observe runs outside the breaker so rejected calls are counted too.
func (c *Client) observe(ctx context.Context, method string, elapsed time.Duration, resp *http.Response, err error) {
	if c.metrics == nil {
		return
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	attrs := metric.WithAttributes(
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPStatus.Int(status),
		telemetry.AttrPeerService.String(c.upstream),
		telemetry.AttrResult.String(outcome(status, err)),
	)
	c.metrics.ClientRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
	c.metrics.ClientRequestTotal.Add(ctx, 1, attrs)
}

func outcome(status int, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case status == 0, status >= http.StatusBadRequest:
		return "error"
	default:
		return "success"
	}
}

func clampUint32(v int) uint32 {
	return uint32(max(0, min(v, math.MaxUint32)))
}
