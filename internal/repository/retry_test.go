package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: mysqlErrLockDeadlock, Message: "Deadlock found when trying to get lock"}
	lockWait := &mysql.MySQLError{Number: mysqlErrLockWaitTimeout, Message: "Lock wait timeout exceeded"}
	duplicate := &mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"}

	assert.True(t, isRetryable(deadlock))
	assert.True(t, isRetryable(lockWait))
	assert.False(t, isRetryable(duplicate))
	assert.False(t, isRetryable(errors.New("plain error")))
	assert.False(t, isRetryable(nil))

	// Wrapped driver errors must still be recognized.
	assert.True(t, isRetryable(fmt.Errorf("book: %w", deadlock)))
}

// stubConnector is a minimal database/sql driver that records the
// isolation level requested for each transaction. The closures under
// test never touch the connection, so statements are unsupported.
type stubConnector struct {
	mu         sync.Mutex
	isolations []driver.IsolationLevel
}

func (c *stubConnector) Connect(context.Context) (driver.Conn, error) { return &stubConn{c: c}, nil }
func (c *stubConnector) Driver() driver.Driver                        { return stubDrv{} }

func (c *stubConnector) recorded() []driver.IsolationLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]driver.IsolationLevel(nil), c.isolations...)
}

type stubDrv struct{}

func (stubDrv) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

type stubConn struct {
	c *stubConnector
}

func (s *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (s *stubConn) Close() error                        { return nil }
func (s *stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

func (s *stubConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	s.c.mu.Lock()
	s.c.isolations = append(s.c.isolations, opts.Isolation)
	s.c.mu.Unlock()
	return stubTx{}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func TestWithRetryExhaustsToTxConflict(t *testing.T) {
	conn := &stubConnector{}
	db := sql.OpenDB(conn)
	defer db.Close()

	calls := 0
	err := WithRetry(context.Background(), db, 3, func(*sql.Tx) error {
		calls++
		return &mysql.MySQLError{Number: mysqlErrLockDeadlock}
	})
	assert.ErrorIs(t, err, ErrTxConflict)
	assert.Equal(t, 3, calls, "every attempt re-runs the closure from scratch")
}

func TestWithRetrySucceedsAfterTransientConflicts(t *testing.T) {
	conn := &stubConnector{}
	db := sql.OpenDB(conn)
	defer db.Close()

	calls := 0
	err := WithRetry(context.Background(), db, 5, func(*sql.Tx) error {
		calls++
		if calls < 3 {
			return &mysql.MySQLError{Number: mysqlErrLockWaitTimeout}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	conn := &stubConnector{}
	db := sql.OpenDB(conn)
	defer db.Close()

	boom := errors.New("constraint violated")
	calls := 0
	err := WithRetry(context.Background(), db, 5, func(*sql.Tx) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-transient errors are final")
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	conn := &stubConnector{}
	db := sql.OpenDB(conn)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, db, 5, func(*sql.Tx) error {
		calls++
		cancel() // abort during the backoff wait before the next attempt
		return &mysql.MySQLError{Number: mysqlErrLockDeadlock}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetryUsesSerializableTransactions(t *testing.T) {
	// Plain COUNT reads inside these transactions are only safe because
	// every attempt runs at SERIALIZABLE, where reads lock and observe
	// committed state instead of the snapshot taken at transaction start.
	conn := &stubConnector{}
	db := sql.OpenDB(conn)
	defer db.Close()

	err := WithRetry(context.Background(), db, 2, func(*sql.Tx) error {
		return &mysql.MySQLError{Number: mysqlErrLockDeadlock}
	})
	assert.ErrorIs(t, err, ErrTxConflict)

	levels := conn.recorded()
	require.Len(t, levels, 2)
	for _, lvl := range levels {
		assert.Equal(t, driver.IsolationLevel(sql.LevelSerializable), lvl)
	}
}
