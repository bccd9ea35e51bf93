// Package errs provides the unified error type used across all of Mosaic.
//
// Every subsystem (drivers, pools, plugin transport, …) wraps its native
// errors into *errs.Error before returning them to callers. Callers use the
// Is* predicates to handle errors without importing engine-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindStatement, "query failed", sqlErr)
//
//	// In a caller, check error kind:
//	if errs.IsUnsupported(err) {
//	    // hide the UI affordance instead of showing an error dialog
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing engine-specific codes.
// All backends (Postgres, MySQL, SQLite, plugin subprocesses, …) map their
// native errors to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown      ErrKind = iota
	ErrKindConnection           // cannot reach or authenticate to the engine
	ErrKindTransport            // plugin process crashed, pipe closed, bad frame
	ErrKindUnsupported          // optional capability deliberately unimplemented
	ErrKindStatement            // the engine rejected the SQL or its parameters
	ErrKindDecode               // a reply could not be parsed into the expected shape
	ErrKindNotFound             // no such row, table, or driver
	ErrKindInvalidInput         // bad arguments from the caller
	ErrKindTimeout              // context deadline / cancellation
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConnection:
		return "connection"
	case ErrKindTransport:
		return "transport"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindStatement:
		return "statement"
	case ErrKindDecode:
		return "decode"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all Mosaic subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original engine-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Unsupported creates the canonical "capability not supported" error.
// Callers distinguish it from transport and statement failures via
// IsUnsupported, so a missing optional capability never reads as a crash.
func Unsupported(what string) *Error {
	return &Error{Kind: ErrKindUnsupported, Message: what + " not supported by this driver"}
}

// --- Predicates ---

// IsConnection reports whether err is a connectivity or auth failure.
func IsConnection(err error) bool {
	return kindOf(err) == ErrKindConnection
}

// IsTransport reports whether err came from the plugin RPC transport
// (process exit, pipe closed, malformed frame).
func IsTransport(err error) bool {
	return kindOf(err) == ErrKindTransport
}

// IsUnsupported reports whether err signals an optional capability the
// driver deliberately does not implement.
func IsUnsupported(err error) bool {
	return kindOf(err) == ErrKindUnsupported
}

// IsStatement reports whether err is a SQL execution failure.
func IsStatement(err error) bool {
	return kindOf(err) == ErrKindStatement
}

// IsDecode reports whether err was caused by an unparseable reply.
func IsDecode(err error) bool {
	return kindOf(err) == ErrKindDecode
}

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsTimeout reports whether err was caused by a deadline or cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
