package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrorKind discriminates the failures a store call can return.
type ErrorKind string

// Error kinds.
const (
	KindValidation ErrorKind = "validation"
	KindConstraint ErrorKind = "constraint"
	KindNotFound   ErrorKind = "not_found"
	KindConnection ErrorKind = "connection"
)

// Error is returned by every store operation that fails for a reason the
// caller can act on. Match it with errors.Is against the Err* sentinels or
// read the kind with KindOf.
type Error struct {
	Err  error
	Kind ErrorKind
	Op   string
	Msg  string
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConstraint = &Error{Kind: KindConstraint}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConnection = &Error{Kind: KindConnection}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a store error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func validationError(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func constraintError(op string, err error, format string, args ...any) error {
	return &Error{Kind: KindConstraint, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func notFoundError(op, entity string, id int64) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf("%s %d not found", entity, id)}
}

func connectionError(op string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Msg: "database connection unavailable", Err: err}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE/PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// wrapExecErr maps driver failures that mean "the handle is gone" to
// connection errors and wraps everything else the way the rest of the
// package does.
func wrapExecErr(op string, err error, what string) error {
	if errors.Is(err, sql.ErrConnDone) {
		return connectionError(op, err)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
