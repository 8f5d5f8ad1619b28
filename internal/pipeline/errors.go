package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies fatal run errors.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTransport     Kind = "transport"
	KindParse         Kind = "parse"
	KindLoad          Kind = "load"
	KindConflict      Kind = "conflict"
	KindLock          Kind = "lock"
)

// ErrLocked is returned by a Locker when another run holds the table.
var ErrLocked = errors.New("another import is already running")

// Error is the failure of one pipeline stage.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
