package postgres

import (
	"reflect"
	"strings"
	"testing"

	"sheetsync/internal/infer"
	"sheetsync/internal/storage"
)

func TestBuildReplaceSQL(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name: "Orders",
		Columns: []storage.Column{
			{Name: "Qty", Level: infer.LevelReal},
			{Name: "Date", Level: infer.LevelTimestamp},
			{Name: "note", Level: infer.LevelText},
		},
	}

	dropSQL, createSQL, err := buildReplaceSQL(spec)
	if err != nil {
		t.Fatalf("buildReplaceSQL: %v", err)
	}

	if dropSQL != `DROP TABLE IF EXISTS "Orders";` {
		t.Fatalf("dropSQL = %q", dropSQL)
	}
	want := `CREATE TABLE "Orders" (id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY, "Qty" FLOAT8, "Date" TIMESTAMP, note TEXT);`
	if createSQL != want {
		t.Fatalf("createSQL = %q, want %q", createSQL, want)
	}
}

func TestBuildReplaceSQLRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, _, err := buildReplaceSQL(storage.TableSpec{Name: ""}); err == nil {
		t.Fatal("expected error for empty table name")
	}
	if _, _, err := buildReplaceSQL(storage.TableSpec{Name: "t"}); err == nil {
		t.Fatal("expected error for table without columns")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("Orders", []string{"Qty", "Date"}, [][]any{
		{"10", "2024-02-01T00:00:00"},
		{"7.5", nil},
	})

	wantSQL := `INSERT INTO "Orders" ("Qty", "Date") VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING;`
	if sql != wantSQL {
		t.Fatalf("sql = %q, want %q", sql, wantSQL)
	}
	wantArgs := []any{"10", "2024-02-01T00:00:00", "7.5", nil}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v, want %#v", args, wantArgs)
	}
}

func TestColumnType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   infer.Level
		want string
	}{
		{infer.LevelInteger, "BIGINT"},
		{infer.LevelReal, "FLOAT8"},
		{infer.LevelDate, "DATE"},
		{infer.LevelTimestamp, "TIMESTAMP"},
		{infer.LevelText, "TEXT"},
		{infer.LevelUnknown, "TEXT"},
	}
	for _, tt := range tests {
		if got := columnType(tt.in); got != tt.want {
			t.Fatalf("columnType(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPgIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"orders", "orders"},
		{"order_lines_2", "order_lines_2"},
		{"Orders", `"Orders"`},
		{"PO_Number", `"PO_Number"`},
		{"2fast", `"2fast"`},
		{`odd"name`, `"odd""name"`},
	}
	for _, tt := range tests {
		if got := pgIdent(tt.in); got != tt.want {
			t.Fatalf("pgIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBatchedStatementsStayUnderParamLimit(t *testing.T) {
	t.Parallel()

	cols := 7
	batch := storage.BatchSize(cols, maxParams)
	if batch*cols > maxParams {
		t.Fatalf("batch %d * cols %d exceeds %d params", batch, cols, maxParams)
	}

	columns := make([]string, cols)
	for i := range columns {
		columns[i] = "c" + strings.Repeat("x", i)
	}
	row := make([]any, cols)
	sql, args := buildInsertSQL("t", columns, [][]any{row})
	if len(args) != cols {
		t.Fatalf("args = %d, want %d", len(args), cols)
	}
	if !strings.Contains(sql, "$7") || strings.Contains(sql, "$8") {
		t.Fatalf("unexpected placeholder numbering: %q", sql)
	}
}
