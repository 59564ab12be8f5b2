package index

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when the engine is used after Close.
	ErrClosed = errors.New("index engine is closed")
	// ErrNotPrepared is returned when Commit is called without a prior
	// successful PrepareCommit.
	ErrNotPrepared = errors.New("commit without successful prepare")
	// ErrPrepared is returned when writes or a second prepare arrive while
	// a prepared batch is awaiting commit or rollback.
	ErrPrepared = errors.New("writer already prepared")
)

// Error wraps an engine-internal or I/O failure from one index operation.
//
// The underlying error can be accessed via errors.Unwrap.
type Error struct {
	Op    string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("index: %s: %v", e.Op, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func opErr(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Op: op, cause: cause}
}

// Wrap turns a failure from op into an *Error. Returns nil for a nil cause.
func Wrap(op string, cause error) error {
	return opErr(op, cause)
}
