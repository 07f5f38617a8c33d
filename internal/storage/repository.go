// Package storage defines the backend-agnostic destination interface for the
// full-refresh sync, the identifier sanitizer, and the backend registry.
// Concrete backends live in subpackages and register themselves from init().
package storage

import (
	"context"
	"fmt"
	"sync"

	"sheetsync/internal/infer"
)

// Config is the minimal configuration needed to open a destination
// repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
//   - Endpoint and Key are used only by kinds that load rows over a REST
//     surface (supabase); SQL-only kinds ignore them.
type Config struct {
	Kind string
	DSN  string

	Endpoint string
	Key      string
}

// Column is one destination column: its sanitized name plus the resolved
// type level. Backends map the level to their own SQL type names.
type Column struct {
	Name  string
	Level infer.Level
}

// TableSpec describes a destination table to be rebuilt from scratch. The
// generated identity primary key is implicit; Columns holds only the feed
// columns.
type TableSpec struct {
	Name    string
	Columns []Column
}

// Repository is a backend-agnostic interface for full-refresh replication.
//
// IMPORTANT: the interface is intentionally minimal. Each backend implements
// the semantics in its own idiomatic way (Postgres ON CONFLICT, SQLite
// OR IGNORE, PostgREST merge-duplicates, etc).
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// ReplaceTable drops any existing destination table of the given name,
	// recreates it with a generated identity primary key plus one column per
	// spec entry, and signals any schema-cache layer to refresh.
	//
	// The drop/create must be committed per table so a failure on one table
	// never blocks others.
	ReplaceTable(ctx context.Context, spec TableSpec) error

	// UpsertRows applies all rows to the destination table in batched,
	// idempotent statements and reports how many rows were written. Row
	// values must already be normalized; nil means SQL NULL. Rows are keyed
	// by the generated identity, so re-running against a freshly rebuilt
	// table is always safe.
	UpsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a destination backend under a kind (e.g. "postgres",
// "supabase", "sqlite", "mssql").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional: fail fast rather
//     than allow ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// BatchSize returns how many rows fit into one statement given a per-backend
// placeholder budget. Always at least 1 so a very wide table still loads,
// one row at a time.
func BatchSize(columns, maxParams int) int {
	if columns <= 0 {
		return maxParams
	}
	n := maxParams / columns
	if n < 1 {
		return 1
	}
	return n
}
