package storage

import (
	"context"
	"database/sql"
)

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// bulk repository methods run either standalone or inside a batch transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
