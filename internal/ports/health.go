package ports

import "context"

// HealthChecker is a dependency that readiness reports on: the todo store
// ("sqlite", "postgres"), the list cache ("redis") or the remote
// upstream ("todo-upstream").
type HealthChecker interface {
	// Name keys the checker's entry in the readiness response.
	Name() string

	// HealthCheck returns nil when the dependency can serve requests. It
	// must return promptly once ctx is done.
	HealthCheck(ctx context.Context) error
}

// HealthRegistry runs every registered checker for the readiness endpoint.
type HealthRegistry interface {
	Register(checker HealthChecker)

	// CheckAll maps each checker's Name to its result; nil means healthy.
	CheckAll(ctx context.Context) map[string]error
}
