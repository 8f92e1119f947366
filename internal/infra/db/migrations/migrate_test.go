package migrations

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for _, dir := range []string{"mysql", "postgres"} {
		entries, err := fs.ReadDir(migrationFiles, dir)
		if err != nil {
			t.Fatalf("ReadDir(%s): %v", dir, err)
		}
		if len(entries) == 0 {
			t.Fatalf("no migrations for %s", dir)
		}
		body, err := fs.ReadFile(migrationFiles, dir+"/"+entries[0].Name())
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "record_blobs") {
			t.Fatalf("%s migration looks wrong:\n%s", dir, body)
		}
	}
}

func TestRunNilDatabaseIsNoop(t *testing.T) {
	if err := Run(context.Background(), nil, "sqlite3"); err != nil {
		t.Fatalf("nil database should be a no-op, got %v", err)
	}
}
