// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/storage"
)

// Configuration errors.
var (
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage renders err for display. Store failures are phrased by kind;
// anything unexpected keeps its full text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var storeErr *storage.Error
	if !errors.As(err, &storeErr) {
		return err.Error()
	}

	switch storeErr.Kind {
	case storage.KindValidation:
		return "Invalid input: " + storeErr.Msg
	case storage.KindConstraint:
		return "Not allowed: " + storeErr.Msg
	case storage.KindNotFound:
		return "Not found: " + storeErr.Msg
	case storage.KindConnection:
		return "The ledger database is unavailable. Check database.path and try again."
	default:
		return err.Error()
	}
}
