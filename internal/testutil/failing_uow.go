package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/cronograma/internal/db"
)

// FailOnNthExecUoW is a test UoW that injects an error on the Nth write
// within a transaction, so rollback tests can fail a multi-write operation
// at a precise point.
//
// Writes are counted starting at 1: every ExecContext call plus any
// QueryRowContext whose statement is an INSERT ... RETURNING. Plain reads
// pass through uncounted.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	writes atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, failOn: u.FailOn, err: u.Err}
	fnErr := fn(ctx, wrapped)
	u.writes.Add(wrapped.count.Load())
	if fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

// Writes reports how many writes were attempted across all transactions.
func (u *FailOnNthExecUoW) Writes() int {
	return int(u.writes.Load())
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.tick() {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

func (f *failOnNthExec) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if isInsert(query) && f.tick() {
		// A cancelled context makes the returned row carry an error on Scan.
		cancelled, cancel := context.WithCancelCause(ctx)
		cancel(f.err)
		return f.DBTX.QueryRowContext(cancelled, query, args...)
	}
	return f.DBTX.QueryRowContext(ctx, query, args...)
}

func (f *failOnNthExec) tick() bool {
	return f.count.Add(1) == f.failOn
}

func isInsert(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT")
}
