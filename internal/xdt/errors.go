package xdt

import (
	"errors"
	"fmt"
)

// Kind classifies service errors so callers can map them to exit codes
// or transport statuses without string matching.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindHasDependents Kind = "has_dependents"
	KindInvalidInput  Kind = "invalid_input"
	KindIO            Kind = "io_error"
	KindUnexpected    Kind = "unexpected"
)

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrHasDependents = &Error{Kind: KindHasDependents}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrIO            = &Error{Kind: KindIO}
	ErrUnexpected    = &Error{Kind: KindUnexpected}
)

// ErrAlreadyExists is returned by Store implementations when an insert
// violates a uniqueness constraint.
var ErrAlreadyExists = errors.New("record already exists")

// ErrArtifactNotFound is returned by ArtifactStore implementations when
// the named artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels, so errors.Is(err, ErrNotFound) holds for
// every not-found error regardless of operation or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnexpected if err is not an *Error.
func KindOf(err error) Kind {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return KindUnexpected
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

func notFound(op, format string, args ...any) error {
	return newError(KindNotFound, op, nil, format, args...)
}

func forbidden(op, format string, args ...any) error {
	return newError(KindForbidden, op, nil, format, args...)
}

func invalidInput(op, format string, args ...any) error {
	return newError(KindInvalidInput, op, nil, format, args...)
}

func hasDependents(op, format string, args ...any) error {
	return newError(KindHasDependents, op, nil, format, args...)
}

func ioError(op string, err error, format string, args ...any) error {
	return newError(KindIO, op, err, format, args...)
}
