package config

import (
	"errors"
	"fmt"
	"slices"
)

// problems collects every failed check so one run reports all of them.
type problems []error

func (p *problems) require(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Errorf(format, args...))
	}
}

func (p *problems) oneOf(key, got string, allowed ...string) {
	p.require(slices.Contains(allowed, got), "%s must be one of %v, got %q", key, allowed, got)
}

// Validate reports every invalid setting, joined with errors.Join. Settings
// of components the config does not enable are not checked: the client only
// for the remote driver, the cache and telemetry only when enabled.
func (c *Config) Validate() error {
	var p problems

	s := c.Server
	p.require(s.Port >= 1 && s.Port <= 65535, "server.port must be between 1 and 65535, got %d", s.Port)
	p.require(s.ReadTimeout > 0, "server.read_timeout must be positive")
	p.require(s.WriteTimeout > 0, "server.write_timeout must be positive")
	p.require(len(s.CORS.AllowedOrigins) > 0, "server.cors.allowed_origins must not be empty")

	p.oneOf("log.level", c.Log.Level, "debug", "info", "warn", "error")
	p.oneOf("log.format", c.Log.Format, "json", "text")

	st := c.Storage
	p.oneOf("storage.driver", st.Driver, DriverMemory, DriverSQLite, DriverPostgres, DriverRemote)
	switch st.Driver {
	case DriverSQLite:
		p.require(st.SQLite.Path != "", "storage.sqlite.path must not be empty for the sqlite driver")
	case DriverPostgres:
		pg := st.Postgres
		p.require(pg.DSN != "", "storage.postgres.dsn must not be empty for the postgres driver")
		p.require(pg.MaxConns >= 1, "storage.postgres.max_conns must be >= 1, got %d", pg.MaxConns)
		p.require(pg.MinConns >= 0 && pg.MinConns <= pg.MaxConns,
			"storage.postgres.min_conns must be between 0 and max_conns, got %d", pg.MinConns)
	case DriverRemote:
		cl := c.Client
		p.require(cl.BaseURL != "", "client.base_url must not be empty for the remote driver")
		p.require(cl.Timeout > 0, "client.timeout must be positive")
		p.require(cl.Retry.MaxAttempts >= 1, "client.retry.max_attempts must be >= 1, got %d", cl.Retry.MaxAttempts)
		p.require(cl.Retry.Multiplier > 0, "client.retry.multiplier must be positive, got %g", cl.Retry.Multiplier)
		p.require(cl.CircuitBreaker.MaxFailures >= 1,
			"client.circuit_breaker.max_failures must be >= 1, got %d", cl.CircuitBreaker.MaxFailures)
		rl := cl.RateLimit
		p.require(rl.RequestsPerSecond >= 0,
			"client.rate_limit.requests_per_second must be >= 0, got %g", rl.RequestsPerSecond)
		p.require(rl.RequestsPerSecond == 0 || rl.BurstSize >= 1,
			"client.rate_limit.burst_size must be >= 1 when rate limiting, got %d", rl.BurstSize)
	}

	if c.Cache.Enabled {
		p.require(c.Cache.Addr != "", "cache.addr must not be empty when the cache is enabled")
		p.require(c.Cache.TTL > 0, "cache.ttl must be positive")
		p.require(c.Cache.DB >= 0, "cache.db must be >= 0, got %d", c.Cache.DB)
	}

	if t := c.Telemetry; t.Enabled {
		p.oneOf("telemetry.exporter", t.Exporter, "stdout", "otlp")
		p.require(t.Exporter != "otlp" || t.Endpoint != "", "telemetry.endpoint must not be empty for the otlp exporter")
	}

	return errors.Join(p...)
}
