package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers that mark a transaction as a victim of a transient
// serialization conflict. Both mean the whole operation can be re-run
// from scratch against fresh state.
const (
	mysqlErrLockDeadlock    = 1213 // ER_LOCK_DEADLOCK
	mysqlErrLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
)

// DefaultRetryAttempts bounds how often a conflicting transaction is
// re-executed before the operation gives up with ErrTxConflict.
const DefaultRetryAttempts = 5

const retryBackoffStep = 25 * time.Millisecond

// isRetryable reports whether err is a transient conflict worth a fresh
// attempt. Everything else, including context cancellation, is final.
func isRetryable(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrLockDeadlock || myErr.Number == mysqlErrLockWaitTimeout
}

// WithRetry runs fn inside a transaction and commits it. When the commit
// or any statement fails with a deadlock or lock wait timeout, the whole
// transaction is rolled back and fn is re-executed from scratch with a
// fresh snapshot, up to attempts times with a linearly growing pause in
// between. After exhaustion it returns ErrTxConflict; any non-transient
// error aborts immediately with the transaction rolled back. fn must do
// all of its reads and checks inside the transaction: state observed in
// a previous attempt is stale by definition.
func WithRetry(ctx context.Context, db *sql.DB, attempts int, fn func(tx *sql.Tx) error) error {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoffStep):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := runTx(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return ErrTxConflict
}

// runTx executes fn in a single serializable transaction, rolling back
// on any error. Serializable matters: under InnoDB's default REPEATABLE
// READ a plain COUNT inside the transaction reads from the snapshot
// taken at the first read, so a transaction that waited on a row lock
// would resume counting pre-commit state and pass a check the winner
// already invalidated. At SERIALIZABLE every plain read is a locking
// read against current data; the extra deadlocks that can cause are
// exactly what the retry loop absorbs.
func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
