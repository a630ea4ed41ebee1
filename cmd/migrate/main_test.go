package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSectionSplitsUpAndDown(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id int);\n-- +migrate Down\nDROP TABLE a;\n"
	up := splitSQL(section(content, false))
	if len(up) != 1 || !strings.Contains(up[0], "CREATE TABLE a") {
		t.Fatalf("unexpected up statements %q", up)
	}
	down := splitSQL(section(content, true))
	if len(down) != 1 || !strings.Contains(down[0], "DROP TABLE a") {
		t.Fatalf("unexpected down statements %q", down)
	}
	if got := section("CREATE TABLE b (id int);", true); got != "" {
		t.Fatalf("expected empty down section, got %q", got)
	}
}

func TestSplitSQLKeepsMultilineStatements(t *testing.T) {
	script := "CREATE TABLE t (\n    id text PRIMARY KEY,\n    note text DEFAULT 'a;b'\n);\nCREATE INDEX t_idx ON t (id);\n"
	statements := splitSQL(script)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
}

func TestInitMigrationParses(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up := splitSQL(section(string(content), false))
	down := splitSQL(section(string(content), true))
	if len(up) < 5 || len(down) != 5 {
		t.Fatalf("unexpected statement counts up=%d down=%d", len(up), len(down))
	}
	for _, stmt := range up {
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement not terminated: %q", stmt)
		}
	}
}
