package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn owns the single database handle shared by every store.
// The handle is opened lazily and pinned to one underlying connection.
type Conn struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewConn returns an unopened connection manager for the database at path.
func NewConn(path string) *Conn {
	return &Conn{path: path}
}

// Path returns the backing file path.
func (c *Conn) Path() string {
	return c.path
}

// IsOpen reports whether a handle is currently held.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db != nil
}

// Open returns the shared handle, creating it on first use. Repeated calls
// return the same handle.
func (c *Conn) Open(ctx context.Context) (*sql.DB, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	if strings.TrimSpace(c.path) == "" {
		return nil, connectionError("open", errors.New("database path is empty"))
	}

	if !c.inMemory() {
		if err := os.MkdirAll(filepath.Dir(c.path), 0750); err != nil {
			return nil, connectionError("open", fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	dsn := c.path + "?_foreign_keys=on&_busy_timeout=5000"
	if !c.inMemory() {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, connectionError("open", fmt.Errorf("failed to open database: %w", err))
	}

	// One logical connection; an in-memory database also lives only as long
	// as its connection, so it must never be recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, connectionError("open", fmt.Errorf("failed to ping database: %w", err))
	}

	c.db = db
	slog.Debug("opened database", "path", c.path)
	return db, nil
}

// Close releases the handle and clears the cached reference. Closing an
// already closed connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	slog.Debug("closed database", "path", c.path)
	return nil
}

// Reset closes the handle and deletes the backing database file together
// with its journal files. Only test and reset flows should call it.
func (c *Conn) Reset() error {
	if err := c.Close(); err != nil {
		return err
	}
	if c.inMemory() {
		return nil
	}

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(c.path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", c.path+suffix, err)
		}
	}
	slog.Info("deleted database", "path", c.path)
	return nil
}

// handle returns the current handle without opening one.
func (c *Conn) handle(op string) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, connectionError(op, errors.New("connection is closed"))
	}
	return c.db, nil
}

// Execute runs one parameterized statement on the open handle. Statements
// that produce rows are queried and their rows collected; all others are
// executed. It never reopens a closed connection.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	db, err := c.handle("execute")
	if err != nil {
		return nil, err
	}

	if returnsRows(query) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapExecErr("execute", err, "run query")
		}
		defer func() { _ = rows.Close() }()
		return collectRows(rows)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapExecErr("execute", err, "execute statement")
	}
	out := &Result{}
	// SQLite reports both; errors only come from drivers that do not.
	out.RowsAffected, _ = res.RowsAffected()
	out.LastInsertID, _ = res.LastInsertId()
	return out, nil
}

// WithTx runs fn inside a database transaction on a lazily opened handle.
// The transaction commits when fn returns nil and rolls back otherwise.
func (c *Conn) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := c.Open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapExecErr("begin", err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapExecErr("commit", err, "commit transaction")
	}
	return nil
}

func (c *Conn) inMemory() bool {
	return c.path == MemoryPath || strings.HasPrefix(c.path, "file::memory:")
}

func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return strings.Contains(q, " RETURNING ")
}
