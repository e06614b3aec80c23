// Package postgres provides a todo repository backed by PostgreSQL through a
// pgx connection pool. Schema migrations are embedded and applied with goose
// on startup.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Compile-time interface check.
var _ ports.TodoRepository = (*Store)(nil)

// Store implements ports.TodoRepository on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open creates a connection pool from cfg, verifies connectivity, applies
// pending migrations, and returns a ready Store.
func Open(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "postgres store ready",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)

	return &Store{pool: pool, logger: logger}, nil
}

// migrate runs goose over a database/sql view of the pool. Closing that view
// returns its connections to the pool without closing the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Save updates the row when item.ID exists and inserts a new row otherwise.
// Both steps run in one transaction.
func (s *Store) Save(ctx context.Context, item *todo.Todo) (*todo.Todo, error) {
	saved := *item

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if !saved.IsNew() {
			tag, err := tx.Exec(ctx,
				`UPDATE todos SET title = $1, completed = $2 WHERE id = $3`,
				saved.Title, saved.Completed, saved.ID)
			if err != nil {
				return fmt.Errorf("updating todo %d: %w", saved.ID, err)
			}
			if tag.RowsAffected() == 1 {
				return nil
			}
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO todos (title, completed) VALUES ($1, $2) RETURNING id`,
			saved.Title, saved.Completed).Scan(&saved.ID)
		if err != nil {
			return fmt.Errorf("inserting todo: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "todo save transaction failed",
			slog.String("operation", "Save"),
			slog.Int64("id", item.ID),
			slog.Any("error", err),
		)
		return nil, err
	}

	return &saved, nil
}

// FindAll returns every todo ordered by ID.
func (s *Store) FindAll(ctx context.Context) ([]todo.Todo, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, completed FROM todos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (todo.Todo, error) {
		var t todo.Todo
		err := row.Scan(&t.ID, &t.Title, &t.Completed)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning todos: %w", err)
	}
	return out, nil
}

// DeleteByID removes the row with the given ID. A missing row is not an error.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	return nil
}

// Name identifies the store in readiness results.
func (s *Store) Name() string {
	return "postgres"
}

// HealthCheck pings one pooled connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// Close closes all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
