// Package sqlite implements storage.Repository for SQLite via database/sql
// and the modernc driver. It doubles as the local/dev destination and the
// test harness backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"sheetsync/internal/infer"
	"sheetsync/internal/storage"
)

// maxParams mirrors SQLITE_MAX_VARIABLE_NUMBER for modern builds.
const maxParams = 32766

// Repo implements storage.Repository for SQLite.
//
// Key design points vs Postgres:
//   - SQLite has no DATE/TIMESTAMP types; temporal columns get TEXT affinity
//     and store the canonical literal produced by the normalizer, which
//     sorts and compares correctly as text.
//   - There is no schema cache in front of a SQLite file, so ReplaceTable
//     has nothing to notify.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// The sync is strictly sequential, and a single connection keeps
	// ":memory:" databases coherent across statements.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops and recreates the table in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec) error {
	dropSQL, createSQL, err := buildReplaceSQL(spec)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop table %s: %w", spec.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return tx.Commit()
}

// UpsertRows performs batched INSERT OR IGNORE statements. OR IGNORE relies
// on the INTEGER PRIMARY KEY, mirroring the idempotency contract of the
// other backends.
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
		stmt, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := r.db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

func buildReplaceSQL(spec storage.TableSpec) (dropSQL, createSQL string, err error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", "", fmt.Errorf("table name is empty")
	}
	if len(spec.Columns) == 0 {
		return "", "", fmt.Errorf("table %s has no columns", spec.Name)
	}

	dropSQL = "DROP TABLE IF EXISTS " + sqlIdent(spec.Name) + ";"

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(sqlIdent(spec.Name))
	b.WriteString(" (id INTEGER PRIMARY KEY")
	for _, c := range spec.Columns {
		b.WriteString(", ")
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c.Level))
	}
	b.WriteString(");")

	return dropSQL, b.String(), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

// columnType maps a resolved level to a SQLite affinity. Temporal levels
// intentionally store the canonical text literal.
func columnType(l infer.Level) string {
	switch l {
	case infer.LevelInteger:
		return "INTEGER"
	case infer.LevelReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
