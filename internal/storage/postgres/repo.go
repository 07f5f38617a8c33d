// Package postgres implements storage.Repository for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"sheetsync/internal/infer"
	"sheetsync/internal/storage"
)

// maxParams is the Postgres extended-protocol bind limit (uint16).
const maxParams = 65535

// Repo implements storage.Repository for Postgres.
//
// Full-refresh semantics:
//   - ReplaceTable drops and recreates the table inside one transaction and
//     then notifies PostgREST-style schema caches.
//   - UpsertRows is a batched INSERT made idempotent on the identity key.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a new Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// ReplaceTable drops and recreates the destination table, committing the
// pair as one transaction so a failed create rolls the drop back and the
// previous table survives. After commit it signals schema-cache consumers.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec) error {
	dropSQL, createSQL, err := buildReplaceSQL(spec)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop table %s: %w", spec.Name, err)
	}
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace %s: %w", spec.Name, err)
	}

	// PostgREST reloads its schema cache on this notification. The refresh
	// is advisory: a failure here must not fail the table, the cache catches
	// up on its own schedule.
	_, _ = r.pool.Exec(ctx, `NOTIFY pgrst, 'reload schema'`)

	return nil
}

// UpsertRows performs batched idempotent inserts.
func (r *Repo) UpsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	batch := storage.BatchSize(len(columns), maxParams)
	total := int64(0)
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		sql, args := buildInsertSQL(table, columns, rows[start:end])
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// buildReplaceSQL constructs the DROP and CREATE statements for a table.
//
// Why this exists:
//   - It is pure and deterministic, so DDL correctness (identity key,
//     quoting, type mapping) is unit-testable without a database.
func buildReplaceSQL(spec storage.TableSpec) (dropSQL, createSQL string, err error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", "", fmt.Errorf("table name is empty")
	}
	if len(spec.Columns) == 0 {
		return "", "", fmt.Errorf("table %s has no columns", spec.Name)
	}

	dropSQL = "DROP TABLE IF EXISTS " + pgIdent(spec.Name) + ";"

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgIdent(spec.Name))
	b.WriteString(" (id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY")
	for _, c := range spec.Columns {
		b.WriteString(", ")
		b.WriteString(pgIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c.Level))
	}
	b.WriteString(");")

	return dropSQL, b.String(), nil
}

// buildInsertSQL constructs a single INSERT statement and its args.
//
// The statement carries ON CONFLICT (id) DO NOTHING: ids are generated, so
// the clause never fires on a fresh table, but it keeps a replayed batch
// from failing the run.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING;")
	return b.String(), args
}

// columnType maps a resolved level to the Postgres column type.
func columnType(l infer.Level) string {
	switch l {
	case infer.LevelInteger:
		return "BIGINT"
	case infer.LevelReal:
		return "FLOAT8"
	case infer.LevelDate:
		return "DATE"
	case infer.LevelTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// pgIdent double-quotes an identifier unless it is already a plain
// lower-case SQL identifier. Quoting preserves the case of sanitized names
// like "Orders" that would otherwise fold to lower case.
func pgIdent(id string) string {
	if plainIdent.MatchString(id) {
		return id
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
