// Package shellerr defines the stable error taxonomy crossing the façade
// boundary. Every kind carries a single-line human message and nothing else;
// operational detail belongs in the caller's zap logs, not in the error.
package shellerr

import "fmt"

// Kind tags an error with its taxonomy bucket so adapters can switch on it
// without string matching.
type Kind string

const (
	KindEmptyCommand      Kind = "empty_command"
	KindCommandValidation Kind = "command_validation"
	KindDirectory         Kind = "directory"
	KindIORedirection     Kind = "io_redirection"
	KindSpawn             Kind = "spawn"
	KindTimeout           Kind = "timeout"
	KindNotFound          Kind = "not_found"
	KindIllegalState      Kind = "illegal_state"
	KindInternal          Kind = "internal"
)

// Error is the single concrete type for every taxonomy member; Kind
// distinguishes them.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func EmptyCommand(format string, args ...any) *Error {
	return New(KindEmptyCommand, format, args...)
}

func CommandValidation(format string, args ...any) *Error {
	return New(KindCommandValidation, format, args...)
}

func Directory(format string, args ...any) *Error {
	return New(KindDirectory, format, args...)
}

func IORedirection(format string, args ...any) *Error {
	return New(KindIORedirection, format, args...)
}

func Spawn(format string, args ...any) *Error {
	return New(KindSpawn, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func IllegalState(format string, args ...any) *Error {
	return New(KindIllegalState, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}

// Is reports whether err is a shellerr.Error of the given kind. It lets
// callers write `shellerr.Is(err, shellerr.KindNotFound)` instead of a type
// assertion at every call site.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
