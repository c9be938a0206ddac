package repositories

import (
	"context"
	"database/sql"
)

// queryExecutor is the subset of sql.DB the repositories need.  sql.Tx
// satisfies it too, so repository helpers can run inside a transaction.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner is satisfied by both sql.Row and sql.Rows, letting scanDocument
// and scanEntry serve single-row and list queries alike.
type scanner interface {
	Scan(dest ...interface{}) error
}
