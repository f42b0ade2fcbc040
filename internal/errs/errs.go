// Package errs defines the error taxonomy surfaced by stores, the switch
// controller and the tool handlers.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and batch reports.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindConnection       Kind = "CONNECTION"
	KindConnectionClosed Kind = "CONNECTION_CLOSED"
	KindMigration        Kind = "MIGRATION"
	KindSwitchFailure    Kind = "SWITCH_FAILURE"
	KindSwitchFatal      Kind = "SWITCH_FATAL"
	KindAlreadySwitching Kind = "ALREADY_SWITCHING"
	KindNotReady         Kind = "NOT_READY"
	KindInternal         Kind = "INTERNAL"
)

// Error is a typed error carrying the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString("[")
	b.WriteString(string(e.Kind))
	b.WriteString("]")
	if e.Msg != "" {
		b.WriteString(" ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, so errors.Is(err, errs.ErrNotFound) holds for
// any NOT_FOUND error in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrConnection       = &Error{Kind: KindConnection}
	ErrConnectionClosed = &Error{Kind: KindConnectionClosed}
	ErrMigration        = &Error{Kind: KindMigration}
	ErrSwitchFailure    = &Error{Kind: KindSwitchFailure}
	ErrSwitchFatal      = &Error{Kind: KindSwitchFatal}
	ErrAlreadySwitching = &Error{Kind: KindAlreadySwitching}
	ErrNotReady         = &Error{Kind: KindNotReady}
)

// E builds an error of the given kind.
func E(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func Validation(op, format string, args ...any) error {
	return E(KindValidation, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return E(KindNotFound, op, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return E(KindConflict, op, format, args...)
}

// KindOf returns the kind of the outermost typed error in the chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// WithCommand tags err with the command that produced it, keeping its kind.
func WithCommand(command string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: command, Err: err}
}
