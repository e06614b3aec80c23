package acl

import (
	"context"
	"fmt"
)

// UpstreamName identifies the upstream in health results. Pass the same value
// to [httpclient.New] so traces and metrics agree.
const UpstreamName = "todo-upstream"

// Name returns the identifier used when this component is registered with a
// [ports.HealthRegistry].
func (c *TodoClient) Name() string {
	return UpstreamName
}

// HealthCheck reports the upstream's availability based on the circuit
// breaker state. No network call is made.
//
// This reports upstream status, not service readiness. Tying readiness to an
// open breaker would stop traffic reaching this instance, and the breaker
// could then never observe the upstream recovering.
func (c *TodoClient) HealthCheck(_ context.Context) error {
	state := c.client.CircuitBreakerState()
	switch state {
	case "closed":
		return nil
	case "half-open":
		return fmt.Errorf("%s: degraded (circuit breaker half-open)", UpstreamName)
	case "open":
		return fmt.Errorf("%s: failing (circuit breaker open)", UpstreamName)
	default:
		return fmt.Errorf("%s: unknown circuit breaker state %q", UpstreamName, state)
	}
}
