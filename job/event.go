package job

import (
	"fmt"
	"time"

	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
)

// Operation is the kind of work a job does.
type Operation int

const (
	List Operation = iota
	Add
	Delete
	Extract
	Test
	Create
)

func (o Operation) String() string {
	switch o {
	case List:
		return "list"
	case Add:
		return "add"
	case Delete:
		return "delete"
	case Extract:
		return "extract"
	case Test:
		return "test"
	case Create:
		return "create"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// EventKind tells an entry apart from the terminal event.
type EventKind int

const (
	// EntryDiscovered carries one Entry.
	EntryDiscovered EventKind = iota
	// OperationFinished is the terminal event. It is always the last event of a job.
	OperationFinished
)

func (k EventKind) String() string {
	switch k {
	case EntryDiscovered:
		return "entry discovered"
	case OperationFinished:
		return "operation finished"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to the listener of a job, in the order the entries were produced.
type Event struct {
	Kind EventKind
	// Entry is set for EntryDiscovered.
	Entry entry.Entry
	// Result is set for OperationFinished.
	Result Result
}

// Result is the outcome of a job.
type Result struct {
	Operation Operation
	Success   bool
	// Kind is failure.None on success.
	Kind failure.Kind
	// Message is human-readable, derived from the accumulated stderr when nothing more specific is known.
	Message string
	// ExitCode is the exit code of the process, or -1 if there was none.
	ExitCode int
	// Stderr is the accumulated stderr of the process, verbatim.
	Stderr string
	// Entries is the number of EntryDiscovered events.
	Entries  int
	Duration time.Duration
	// Err is the underlying error, if any.
	Err error
}

// Error returns the result as an error, or nil on success.
func (r Result) Error() error {
	if r.Success {
		return nil
	}

	return &failure.Error{Kind: r.Kind, Message: r.Message, Err: r.Err}
}

func succeeded(op Operation) Result {
	return Result{Operation: op, Success: true, ExitCode: -1}
}

func failed(op Operation, kind failure.Kind, message string, err error) Result {
	return Result{Operation: op, Kind: kind, Message: message, ExitCode: -1, Err: err}
}
