// Package store is the schema-adaptive data-access component. It owns the
// resolution caches, runs statements through the candidate iteration
// executor, enforces tenant scoping, and defers to the legacy mapping
// adapter when no physical relation exists for an entity.
package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/therciotr/TrMultichat-sub001/internal/dbexec"
	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/legacy"
	"github.com/therciotr/TrMultichat-sub001/internal/logging"
	"github.com/therciotr/TrMultichat-sub001/internal/observability"
)

// Options configures a Store.
type Options struct {
	// Schema is the catalog schema to introspect. Defaults to "public".
	Schema string
	// Registry holds the legacy mappings; nil installs the default set.
	Registry *legacy.Registry
	// Logger defaults to slog.Default.
	Logger *logging.Logger
	// Metrics may be nil; recording on nil metrics is a no-op.
	Metrics *observability.ResolutionMetrics
}

// Store is constructed once at startup and shared by all requests. All of
// its state is in-memory and rebuilt from scratch on process restart.
type Store struct {
	db      *sql.DB
	exec    dbexec.QueryExecutor
	cache   *introspection.Cache
	schema  string
	legacy  *legacy.Adapter
	logger  *logging.Logger
	metrics *observability.ResolutionMetrics
}

// New creates a Store over the shared connection pool.
func New(db *sql.DB, opts Options) *Store {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.Registry == nil {
		opts.Registry = legacy.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = &logging.Logger{Logger: slog.Default()}
	}

	exec := dbexec.NewStandardExecutor(db)
	return &Store{
		db:      db,
		exec:    exec,
		cache:   introspection.NewCache(),
		schema:  opts.Schema,
		legacy:  legacy.NewAdapter(exec, opts.Registry, opts.Logger.Logger),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Schema returns the catalog schema the store introspects.
func (s *Store) Schema() string {
	return s.schema
}

// Legacy exposes the fallback adapter for callers that need its operations
// directly (diagnostics, backfills).
func (s *Store) Legacy() *legacy.Adapter {
	return s.legacy
}

// Logger returns the store's logger.
func (s *Store) Logger() *logging.Logger {
	return s.logger
}

// Metrics returns the resolution metrics recorder; may be nil.
func (s *Store) Metrics() *observability.ResolutionMetrics {
	return s.metrics
}

// Executor exposes the underlying query executor.
func (s *Store) Executor() dbexec.QueryExecutor {
	return s.exec
}

// Entities returns the descriptors of every logical entity the store serves.
func (s *Store) Entities() []entity.Descriptor {
	return entity.All()
}

// Cache exposes the resolution cache. Intended for diagnostics; normal
// callers never touch it directly.
func (s *Store) Cache() *introspection.Cache {
	return s.cache
}

func (s *Store) log(ctx context.Context) *logging.Logger {
	if id := logging.GetRequestID(ctx); id != "" {
		return s.logger.WithRequestID(id)
	}
	return s.logger
}
