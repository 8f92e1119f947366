// Package migrations holds the SQL schema for the record stores.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var migrationFiles embed.FS

const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// goose keeps its base FS and dialect in package state.
var mu sync.Mutex

// Run applies the embedded migrations for dialect ("mysql" or "postgres").
// A nil database is a no-op.
func Run(ctx context.Context, database *sql.DB, dialect string) error {
	if database == nil {
		return nil
	}
	switch dialect {
	case DialectMySQL, DialectPostgres:
	default:
		return fmt.Errorf("unsupported migration dialect: %s", dialect)
	}

	mu.Lock()
	defer mu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dialect)
}
