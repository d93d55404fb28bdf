package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func tableColumns(t *testing.T, dbConn *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := dbConn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	return cols
}

// TestInitDBCreatesSchema verifies InitDB creates both tables with the
// columns the store reads and writes, and that running it twice is harmless.
func TestInitDBCreatesSchema(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	for i := 0; i < 2; i++ {
		if err := InitDB(dbConn, SQLite); err != nil {
			t.Fatalf("InitDB run %d failed: %v", i+1, err)
		}
	}

	req := tableColumns(t, dbConn, "translation_request")
	for _, c := range []string{"id", "ip_address", "input_lang", "input_text", "output_lang", "date_time"} {
		if !req[c] {
			t.Fatalf("translation_request missing column %s, got %v", c, req)
		}
	}
	txt := tableColumns(t, dbConn, "translated_text")
	for _, c := range []string{"id", "request_id", "ordinal", "output_text"} {
		if !txt[c] {
			t.Fatalf("translated_text missing column %s, got %v", c, txt)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	if got := rebind(SQLite, q); got != q {
		t.Fatalf("sqlite query changed: %q", got)
	}
	if got, want := rebind(Postgres, q), "INSERT INTO t (a, b) VALUES ($1, $2)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"sqlite3": SQLite, "sqlite": SQLite, "postgres": Postgres, "postgresql": Postgres} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
