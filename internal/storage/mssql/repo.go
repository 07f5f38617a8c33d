// Package mssql implements storage.Repository for Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"sheetsync/internal/infer"
	"sheetsync/internal/storage"
)

// maxParams is the SQL Server per-statement parameter limit.
const maxParams = 2100

// Repo implements storage.Repository for SQL Server.
//
// Notes:
//   - Identifiers use bracket quoting.
//   - DROP TABLE IF EXISTS requires SQL Server 2016+, which matches the
//     go-mssqldb driver baseline.
//   - There is no schema-cache frontend for SQL Server destinations, so
//     ReplaceTable has nothing to notify.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

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

// UpsertRows performs batched inserts. The table was recreated immediately
// before the load and ids are generated, so plain INSERT already satisfies
// the idempotency contract here.
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

	dropSQL = "DROP TABLE IF EXISTS " + msIdent(spec.Name) + ";"

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(msIdent(spec.Name))
	b.WriteString(" (id BIGINT IDENTITY(1,1) PRIMARY KEY")
	for _, c := range spec.Columns {
		b.WriteString(", ")
		b.WriteString(msIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c.Level))
	}
	b.WriteString(");")

	return dropSQL, b.String(), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

// columnType maps a resolved level to the SQL Server column type.
func columnType(l infer.Level) string {
	switch l {
	case infer.LevelInteger:
		return "BIGINT"
	case infer.LevelReal:
		return "FLOAT"
	case infer.LevelDate:
		return "DATE"
	case infer.LevelTimestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
