package arkive

import (
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/job"
)

// Operation is one facade operation, which may run several jobs in a row.
//
// Adding files to some tar archives for example first deletes the existing members of the same name, then adds the
// files, then lists the archive again. The caller sees one ordered stream of events that ends with exactly one
// job.OperationFinished, regardless of how many jobs ran.
type Operation struct {
	kind    job.Operation
	mailbox *job.Mailbox[job.Event]
	done    chan struct{}
	result  job.Result
}

func newOperation(kind job.Operation) *Operation {
	return &Operation{
		kind:    kind,
		mailbox: job.NewMailbox[job.Event](),
		done:    make(chan struct{}),
	}
}

// Kind returns the kind of the operation.
func (o *Operation) Kind() job.Operation {
	return o.kind
}

// Events returns the ordered events of the operation.
//
// The channel is closed after the job.OperationFinished event. Events are buffered without bound. A caller that only
// needs the result may use Wait and never call Events, but once Events has been called the channel must be drained.
func (o *Operation) Events() <-chan job.Event {
	return o.mailbox.C()
}

// Done is closed when the operation finishes.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finishes and returns its result.
func (o *Operation) Wait() job.Result {
	<-o.done
	return o.result
}

// Err is a convenient method to Wait and return the result as an error.
func (o *Operation) Err() error {
	return o.Wait().Error()
}

func (o *Operation) post(e entry.Entry) {
	o.mailbox.Put(job.Event{Kind: job.EntryDiscovered, Entry: e})
}

func (o *Operation) finish(r job.Result) {
	r.Operation = o.kind
	o.result = r
	o.mailbox.Put(job.Event{Kind: job.OperationFinished, Result: r})
	o.mailbox.Close()
	close(o.done)
}

// resultOf turns an error that stopped an operation before its job could run into a result.
func resultOf(op job.Operation, err error) job.Result {
	return job.Result{
		Operation: op,
		Kind:      failure.KindOf(err, failure.NonZeroExit),
		Message:   err.Error(),
		ExitCode:  -1,
		Err:       err,
	}
}
