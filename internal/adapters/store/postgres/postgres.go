// Package postgres implements store.Store on PostgreSQL via pgx. It serves
// deployments without MongoDB; the same invariants hold through unique
// constraints and conflict-ignoring inserts.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithURI sets the connection string.
func WithURI(uri string) Option {
	return func(s *Store) {
		if uri != "" {
			s.uri = uri
		}
	}
}

// WithConnectTimeout bounds the initial connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// Store is the PostgreSQL driver.
type Store struct {
	uri            string
	connectTimeout time.Duration

	pool *pgxpool.Pool
}

// New connects a pgx pool and verifies the connection.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	s := &Store{
		uri:            "postgres://localhost:5432/rollcall",
		connectTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	poolCfg, err := pgxpool.ParseConfig(s.uri)
	if err != nil {
		return nil, fmt.Errorf("parse postgres uri: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour

	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s.pool = pool
	return s, nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded migrations in lexical order, each inside
// a transaction, tracked in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	const ensure = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := s.pool.Exec(ctx, ensure); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		version := name[:len(name)-len(".sql")]

		var count int
		if err := s.pool.QueryRow(ctx,
			"SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version,
		).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		sqlBytes, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}

		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", version, err)
		}
		if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}
	}
	return nil
}

// observe records latency and error metrics for one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(op)
	}
}

var _ store.Store = (*Store)(nil)
