// Package failure is the error taxonomy shared by backends, jobs, and the archive facade.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// None is the zero Kind, reported by successful operations.
	None Kind = iota
	// UtilityNotFound means the archiver or unarchiver executable could not be resolved.
	UtilityNotFound
	// ProcessSpawnFailed means the operating system refused to start the child process.
	ProcessSpawnFailed
	// UnknownOrCorruptFormat means no backend claims the file, or the embedded library could not read it.
	UnknownOrCorruptFormat
	// NoDestinationDirectory means extraction was requested without a destination.
	NoDestinationDirectory
	// MalformedListingLine means the listing produced no entries while rejecting lines it could not parse.
	MalformedListingLine
	// PasswordRequired means the tool asked for a password, or rejected the one given.
	PasswordRequired
	// NonZeroExit is the catch-all for a tool that exited with a failure code.
	NonZeroExit
	// Cancelled means the caller cancelled the operation.
	Cancelled
	// Busy means another operation is still in progress on the same archive.
	Busy
	// Unsupported means the backend does not support the requested operation.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case UtilityNotFound:
		return "utility not found"
	case ProcessSpawnFailed:
		return "process spawn failed"
	case UnknownOrCorruptFormat:
		return "unknown or corrupt format"
	case NoDestinationDirectory:
		return "no destination directory"
	case MalformedListingLine:
		return "malformed listing"
	case PasswordRequired:
		return "password required"
	case NonZeroExit:
		return "non-zero exit"
	case Cancelled:
		return "cancelled"
	case Busy:
		return "operation in progress"
	case Unsupported:
		return "unsupported operation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is an error with a Kind.
//
// Two Error values match with errors.Is if their kinds are equal, so callers can test against the sentinel values
// such as ErrPasswordRequired.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error with the given kind and message.
func New(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Wrap creates an Error with the given kind that wraps err.
func Wrap(kind Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinel values for errors.Is.
var (
	ErrUtilityNotFound        = &Error{Kind: UtilityNotFound}
	ErrProcessSpawnFailed     = &Error{Kind: ProcessSpawnFailed}
	ErrUnknownOrCorruptFormat = &Error{Kind: UnknownOrCorruptFormat}
	ErrNoDestinationDirectory = &Error{Kind: NoDestinationDirectory}
	ErrMalformedListingLine   = &Error{Kind: MalformedListingLine}
	ErrPasswordRequired       = &Error{Kind: PasswordRequired}
	ErrNonZeroExit            = &Error{Kind: NonZeroExit}
	ErrCancelled              = &Error{Kind: Cancelled}
	ErrBusy                   = &Error{Kind: Busy}
	ErrUnsupported            = &Error{Kind: Unsupported}
)

// KindOf returns the Kind of the first Error in err's chain, or fallback if there is none.
func KindOf(err error, fallback Kind) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return fallback
}
