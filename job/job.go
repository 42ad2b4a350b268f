// Package job runs one archive operation at a time, as a subprocess or as an in-process worker, and reports its
// progress as an ordered stream of events that always ends with exactly one OperationFinished.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/listing"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Job.
type State int32

const (
	Idle State = iota
	Spawning
	Streaming
	ExitPending
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spawning:
		return "spawning"
	case Streaming:
		return "streaming"
	case ExitPending:
		return "exit pending"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Worker is the in-process variant of a subprocess.
//
// It must call post once per entry, in order, from any goroutine but never concurrently, and must return promptly
// once ctx is done.
type Worker func(ctx context.Context, post func(entry.Entry)) error

// Spec describes the work of one Job.
//
// Exactly one of Command and Worker is used: Worker if it is non-nil.
type Spec struct {
	Operation Operation

	// Command is the subprocess to run.
	Command backend.Command
	// Columns parses stdout into entries. Nil means stdout is only logged.
	Columns *listing.Spec
	// ParserOptions customise the parser created from Columns.
	ParserOptions []func(*listing.ParserOptions)
	// DetectPasswordRequired inspects the accumulated stderr after the process exits.
	DetectPasswordRequired func(stderr string) bool
	// IsWarning returns true for non-zero exit codes that still mean success.
	IsWarning func(code int) bool

	// Worker runs the operation in-process instead.
	Worker Worker

	// Listener receives every event synchronously on the goroutine of the job. If nil, events are delivered through
	// Job.Events instead.
	Listener func(Event)
	// Logger defaults to zap.NewNop.
	Logger *zap.Logger
}

var lastID atomic.Int64

// Job is one in-flight operation.
type Job struct {
	id     int64
	spec   Spec
	logger *zap.Logger

	state   atomic.Int32
	mailbox *Mailbox[Event]

	// seen is the set of paths posted so far. Only the goroutine producing entries touches it.
	seen map[string]struct{}

	// mu guards cancel and cancelled.
	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool

	done   chan struct{}
	result Result
}

// New creates an Idle job.
func New(spec Spec) *Job {
	j := &Job{
		id:   lastID.Add(1),
		spec: spec,
		done: make(chan struct{}),
		seen: make(map[string]struct{}),
	}

	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	j.logger = logger.With(zap.String("op", spec.Operation.String()), zap.Int64("job", j.id))

	if spec.Listener == nil {
		j.mailbox = NewMailbox[Event]()
	}

	return j
}

// ID returns the process-unique identifier of the job.
func (j *Job) ID() int64 {
	return j.id
}

// Operation returns the operation of the job.
func (j *Job) Operation() Operation {
	return j.spec.Operation
}

// State returns the current state.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Start moves the job from Idle to Spawning and runs it on a new goroutine.
//
// Start never blocks on the operation itself. Failures to start the operation are reported through the terminal
// event, so the only error returned is for a job that was already started.
func (j *Job) Start(ctx context.Context) error {
	if !j.state.CompareAndSwap(int32(Idle), int32(Spawning)) {
		return failure.New(failure.Busy, "job %d was already started", j.id)
	}

	ctx, cancel := context.WithCancel(ctx)

	j.mu.Lock()
	j.cancel = cancel
	cancelled := j.cancelled
	j.mu.Unlock()

	if cancelled {
		cancel()
	}

	go func() {
		defer cancel()

		start := time.Now()

		var r Result
		if j.spec.Worker != nil {
			r = j.runWorker(ctx)
		} else {
			r = j.runCommand(ctx)
		}

		r.Operation = j.spec.Operation
		r.Duration = time.Since(start)
		j.finish(r)
	}()

	return nil
}

// Events returns the channel of events of a job created without a Listener.
//
// The channel is closed after the OperationFinished event. Returns nil if the job has a Listener.
func (j *Job) Events() <-chan Event {
	if j.mailbox == nil {
		return nil
	}

	return j.mailbox.C()
}

// Done is closed once the job reached Terminal.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job reached Terminal and returns its result.
func (j *Job) Wait() Result {
	<-j.done
	return j.result
}

// Cancel asks the job to stop.
//
// The job still produces exactly one terminal event, of kind failure.Cancelled unless it managed to complete first.
// Cancel is rejected once the operation has exited, in which case the terminal event is already decided.
func (j *Job) Cancel() error {
	if s := j.State(); s >= ExitPending {
		return failure.New(failure.Busy, "job %d is already %s", j.id, s)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.cancelled = true
	if j.cancel != nil {
		j.cancel()
	}

	return nil
}

func (j *Job) setState(s State) {
	j.state.Store(int32(s))
	j.logger.Debug("state changed", zap.Stringer("state", s))
}

func (j *Job) emit(e Event) {
	if j.spec.Listener != nil {
		j.spec.Listener(e)
		return
	}

	j.mailbox.Put(e)
}

// post emits e unless an entry with the same path was already posted, in which case the first one stands.
//
// Returns false if e was dropped.
func (j *Job) post(logger *zap.Logger, e entry.Entry) bool {
	if _, ok := j.seen[e.Path]; ok {
		logger.Warn("skipping duplicate entry", zap.String("path", e.Path))
		return false
	}

	j.seen[e.Path] = struct{}{}
	j.emit(Event{Kind: EntryDiscovered, Entry: e})
	return true
}

func (j *Job) finish(r Result) {
	j.result = r
	j.setState(Terminal)

	if r.Success {
		j.logger.Debug("operation succeeded",
			zap.Int("entries", r.Entries),
			zap.Duration("duration", r.Duration))
	} else {
		j.logger.Debug("operation failed",
			zap.Stringer("kind", r.Kind),
			zap.String("message", r.Message),
			zap.Int("exitCode", r.ExitCode),
			zap.Duration("duration", r.Duration))
	}

	j.emit(Event{Kind: OperationFinished, Result: r})
	if j.mailbox != nil {
		j.mailbox.Close()
	}

	close(j.done)
}

// runWorker runs the in-process variant.
func (j *Job) runWorker(ctx context.Context) Result {
	j.setState(Streaming)

	var (
		mu      sync.Mutex
		entries int
	)
	err := j.spec.Worker(ctx, func(e entry.Entry) {
		mu.Lock()
		defer mu.Unlock()

		// a worker that has been asked to stop may still be mid-post.
		if ctx.Err() != nil {
			return
		}

		if j.post(j.logger, e) {
			entries++
		}
	})

	j.setState(ExitPending)

	mu.Lock()
	defer mu.Unlock()

	var r Result
	switch {
	case ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled) || errors.Is(err, failure.ErrCancelled)):
		r = failed(j.spec.Operation, failure.Cancelled, "operation was cancelled", ctx.Err())
	case err != nil:
		r = failed(j.spec.Operation, failure.KindOf(err, failure.UnknownOrCorruptFormat), err.Error(), err)
	default:
		r = succeeded(j.spec.Operation)
	}

	r.Entries = entries
	return r
}

// Controller allows at most one job at a time.
//
// A caller that needs several jobs in a row without another caller sneaking in between, such as deleting members
// before adding them again, reserves the controller for the whole sequence.
type Controller struct {
	mu       sync.Mutex
	reserved *Reservation
}

// Reservation is the exclusive right to start jobs on a Controller.
type Reservation struct {
	c *Controller

	// guarded by c.mu.
	current   *Job
	cancelled bool
	released  bool
}

// Reserve claims the controller.
//
// Returns an error of kind failure.Busy if the controller is already reserved.
func (c *Controller) Reserve() (*Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reserved != nil {
		return nil, failure.New(failure.Busy, "another operation is in progress")
	}

	c.reserved = &Reservation{c: c}
	return c.reserved, nil
}

// InProgress returns true if the controller is reserved.
func (c *Controller) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reserved != nil
}

// Cancel cancels the current job of the reservation, and any job it would start afterwards.
//
// Returns false if there was nothing to cancel.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	r := c.reserved
	if r == nil {
		c.mu.Unlock()
		return false
	}

	r.cancelled = true
	current := r.current
	c.mu.Unlock()

	if current != nil {
		_ = current.Cancel()
	}

	return true
}

// Start creates and starts a job from the given spec.
//
// Returns an error of kind failure.Cancelled if the reservation was cancelled, or failure.Busy if the previous job
// of this reservation has not finished yet.
func (r *Reservation) Start(ctx context.Context, spec Spec) (*Job, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	switch {
	case r.released:
		return nil, failure.New(failure.Busy, "reservation was already released")
	case r.cancelled:
		return nil, failure.New(failure.Cancelled, "operation was cancelled")
	case r.current != nil && r.current.State() != Terminal:
		return nil, failure.New(failure.Busy, "job %d is still %s", r.current.id, r.current.State())
	}

	j := New(spec)
	if err := j.Start(ctx); err != nil {
		return nil, err
	}

	r.current = j
	return j, nil
}

// Cancelled returns true if Controller.Cancel was called during the reservation.
func (r *Reservation) Cancelled() bool {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	return r.cancelled
}

// Release gives up the reservation. It is safe to call more than once.
func (r *Reservation) Release() {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	if r.released {
		return
	}

	r.released = true
	if r.c.reserved == r {
		r.c.reserved = nil
	}
}

// Run reserves the controller, runs one job to completion, then releases the controller.
func (c *Controller) Run(ctx context.Context, spec Spec) (Result, error) {
	r, err := c.Reserve()
	if err != nil {
		return Result{}, err
	}
	defer r.Release()

	j, err := r.Start(ctx, spec)
	if err != nil {
		return Result{}, err
	}

	if j.mailbox != nil {
		for range j.Events() {
		}
	}

	return j.Wait(), nil
}
