// Package executor runs tasks on a bounded pool of goroutines.
package executor

import (
	"io"
	"sync"
)

// Executor is inspired by Java Executor that abstracts submitting a task and executing it.
type Executor interface {
	// Execute executes the given command.
	Execute(func())
}

// ExecuteCloser adds io.Closer to Executor.
//
// Close waits for every submitted task to return.
type ExecuteCloser interface {
	Executor
	io.Closer
}

// NewCallerRunOnRejectExecutor returns a new Executor that will execute the command on same goroutine as caller if the
// pool is full.
//
// With n <= 1, every command runs on the caller goroutine.
func NewCallerRunOnRejectExecutor(n int) ExecuteCloser {
	if n <= 1 {
		return &callerRunExecutor{}
	}

	ex := &callerRunOnRejectExecutor{inputs: make(chan func())}

	for range n {
		go func() {
			for f := range ex.inputs {
				f()
				ex.wg.Done()
			}
		}()
	}

	return ex
}

type callerRunOnRejectExecutor struct {
	inputs chan func()
	wg     sync.WaitGroup

	// mu guards closed.
	mu     sync.Mutex
	closed bool
}

func (ex *callerRunOnRejectExecutor) Execute(f func()) {
	ex.mu.Lock()
	if ex.closed {
		ex.mu.Unlock()
		f()
		return
	}

	ex.wg.Add(1)
	select {
	case ex.inputs <- f:
		ex.mu.Unlock()
	default:
		ex.mu.Unlock()
		ex.wg.Done()
		f()
	}
}

func (ex *callerRunOnRejectExecutor) Close() error {
	ex.mu.Lock()
	if !ex.closed {
		ex.closed = true
		close(ex.inputs)
	}
	ex.mu.Unlock()

	ex.wg.Wait()
	return nil
}

type callerRunExecutor struct {
}

func (ex callerRunExecutor) Execute(f func()) {
	f()
}

func (ex callerRunExecutor) Close() error {
	return nil
}
