package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"

	"github.com/samber/do/v2"

	"github.com/jsamuelsen11/todo-service/internal/adapters/cache"
	"github.com/jsamuelsen11/todo-service/internal/adapters/clients/acl"
	adapthttp "github.com/jsamuelsen11/todo-service/internal/adapters/http"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/postgres"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen11/todo-service/internal/app"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/health"
	"github.com/jsamuelsen11/todo-service/internal/platform/httpclient"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// newInjector registers every provider. Nothing is built until the server is
// invoked. ctx bounds opening storage only.
func newInjector(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, metrics)

	do.Provide(injector, func(i do.Injector) (*storage, error) {
		return openStorage(ctx, do.MustInvoke[*config.Config](i),
			do.MustInvoke[*telemetry.Metrics](i), do.MustInvoke[*slog.Logger](i))
	})
	do.Provide(injector, provideTodoService)
	do.Provide(injector, provideHealthRegistry)
	do.Provide(injector, provideTodoHandler)
	do.Provide(injector, provideHealthHandler)
	do.Provide(injector, provideRouter)
	do.Provide(injector, provideServer)

	return injector
}

func provideTodoService(i do.Injector) (ports.TodoService, error) {
	stack, err := do.Invoke[*storage](i)
	if err != nil {
		return nil, err
	}
	return app.NewTodoService(stack.repo, do.MustInvoke[*slog.Logger](i)), nil
}

// provideHealthRegistry registers the checkers of whichever storage chain
// was opened.
func provideHealthRegistry(i do.Injector) (ports.HealthRegistry, error) {
	stack, err := do.Invoke[*storage](i)
	if err != nil {
		return nil, err
	}
	registry := health.New()
	for _, c := range stack.checkers {
		registry.Register(c)
	}
	return registry, nil
}

func provideTodoHandler(i do.Injector) (*handlers.TodoHandler, error) {
	svc, err := do.Invoke[ports.TodoService](i)
	if err != nil {
		return nil, err
	}
	return handlers.NewTodoHandler(svc), nil
}

func provideHealthHandler(i do.Injector) (*handlers.HealthHandler, error) {
	registry, err := do.Invoke[ports.HealthRegistry](i)
	if err != nil {
		return nil, err
	}
	stack := do.MustInvoke[*storage](i)
	return handlers.NewHealthHandler(registry, stack.optional...), nil
}

func provideRouter(i do.Injector) (nethttp.Handler, error) {
	todoH, err := do.Invoke[*handlers.TodoHandler](i)
	if err != nil {
		return nil, err
	}
	healthH, err := do.Invoke[*handlers.HealthHandler](i)
	if err != nil {
		return nil, err
	}
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	return adapthttp.NewRouter(todoH, healthH,
		middleware.Recovery(logger),
		middleware.CORS(cfg.Server.CORS),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.OpenTelemetry(do.MustInvoke[*telemetry.Metrics](i)),
		middleware.Logging(logger),
		middleware.Timeout(cfg.Server.WriteTimeout),
	), nil
}

func provideServer(i do.Injector) (*adapthttp.Server, error) {
	handler, err := do.Invoke[nethttp.Handler](i)
	if err != nil {
		return nil, err
	}
	cfg := do.MustInvoke[*config.Config](i)
	return adapthttp.NewServer(cfg.Server, handler, do.MustInvoke[*slog.Logger](i)), nil
}

// storage is the repository chain picked by configuration together with the
// checkers and resources it owns.
type storage struct {
	repo     ports.TodoRepository
	checkers []ports.HealthChecker
	optional []string
	closers  []io.Closer
}

// Shutdown closes owned resources, last opened first.
func (s *storage) Shutdown() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

// openStorage builds the repository for cfg.Storage.Driver, wrapped in the
// Redis list cache when it is enabled.
func openStorage(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, logger *slog.Logger) (*storage, error) {
	s := &storage{}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		s.repo = memory.New()

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.own(store)

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, &cfg.Storage.Postgres, logger)
		if err != nil {
			return nil, err
		}
		s.own(store)

	case config.DriverRemote:
		client := httpclient.New(&cfg.Client, acl.UpstreamName, metrics, logger)
		upstream := acl.NewTodoClient(client, logger)
		s.repo = upstream
		s.checkers = append(s.checkers, upstream)
		s.optional = append(s.optional, upstream.Name())

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Cache.Enabled {
		cached := cache.New(s.repo, cache.NewClient(&cfg.Cache), cfg.Cache.TTL, metrics, logger)
		s.own(cached)
		s.optional = append(s.optional, cached.Name())
	}

	logger.Info("storage ready",
		slog.String("driver", cfg.Storage.Driver),
		slog.Bool("cache", cfg.Cache.Enabled),
	)
	return s, nil
}

type ownedRepository interface {
	ports.TodoRepository
	ports.HealthChecker
	io.Closer
}

// own makes repo the head of the chain.
func (s *storage) own(repo ownedRepository) {
	s.repo = repo
	s.checkers = append(s.checkers, repo)
	s.closers = append(s.closers, repo)
}
