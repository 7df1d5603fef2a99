package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitSQL(t *testing.T) {
	sql := "-- comment\nCREATE TABLE a (id INT);\n\nCREATE INDEX i ON a (id);\n"
	got := splitSQL(sql)
	want := []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitSQL = %q, want %q", got, want)
	}
}

func TestExtractTablesFromMigration(t *testing.T) {
	tables, err := extractTables(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"booking_events", "fare_rates"}
	if !reflect.DeepEqual(tables, want) {
		t.Errorf("tables = %v, want %v", tables, want)
	}
	if _, err := extractTables(filepath.Join(os.TempDir(), "does-not-exist.sql")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSummary(t *testing.T) {
	sum := summarize([]Result{
		{Status: statusPass}, {Status: statusPass}, {Status: statusPending}, {Status: statusSkip},
	})
	if got := sum.String(); got != "PASS=2 FAIL=0 PENDING=1 SKIP=1" {
		t.Errorf("String() = %q", got)
	}
	if !sum.ok(false) {
		t.Error("pending failed a lenient run")
	}
	if sum.ok(true) {
		t.Error("pending passed a strict run")
	}
	if summarize([]Result{{Status: statusFail}}).ok(false) {
		t.Error("failure passed")
	}
}
