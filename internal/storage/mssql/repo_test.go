package mssql

import (
	"reflect"
	"testing"

	"sheetsync/internal/infer"
	"sheetsync/internal/storage"
)

func TestBuildReplaceSQL(t *testing.T) {
	t.Parallel()

	dropSQL, createSQL, err := buildReplaceSQL(storage.TableSpec{
		Name: "Orders",
		Columns: []storage.Column{
			{Name: "Qty", Level: infer.LevelInteger},
			{Name: "When", Level: infer.LevelTimestamp},
			{Name: "Note", Level: infer.LevelText},
		},
	})
	if err != nil {
		t.Fatalf("buildReplaceSQL: %v", err)
	}

	if dropSQL != "DROP TABLE IF EXISTS [Orders];" {
		t.Fatalf("dropSQL = %q", dropSQL)
	}
	want := "CREATE TABLE [Orders] (id BIGINT IDENTITY(1,1) PRIMARY KEY, [Qty] BIGINT, [When] DATETIME2, [Note] NVARCHAR(MAX));"
	if createSQL != want {
		t.Fatalf("createSQL = %q, want %q", createSQL, want)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("t", []string{"a", "b"}, [][]any{
		{1, nil},
		{2, "x"},
	})

	wantSQL := "INSERT INTO [t] ([a], [b]) VALUES (@p1, @p2), (@p3, @p4);"
	if sql != wantSQL {
		t.Fatalf("sql = %q, want %q", sql, wantSQL)
	}
	if !reflect.DeepEqual(args, []any{1, nil, 2, "x"}) {
		t.Fatalf("args = %#v", args)
	}
}

func TestMsIdentEscapesClosingBracket(t *testing.T) {
	t.Parallel()

	if got := msIdent("odd]name"); got != "[odd]]name]" {
		t.Fatalf("msIdent = %q", got)
	}
}
