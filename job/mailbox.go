package job

import (
	"sync"
)

// Mailbox is an unbounded FIFO queue drained into a channel by its own goroutine.
//
// Put never blocks, so a slow consumer never stalls the producer. The channel returned by C is closed once Close has
// been called and every queued value has been delivered.
//
// The delivery goroutine only starts on the first call to C. A Mailbox whose channel is never asked for holds on to
// its values until it is garbage collected, while a caller that asks for the channel must drain it.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	out    chan T
	once   sync.Once
}

// NewMailbox creates an empty Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{out: make(chan T)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put enqueues v. Values put after Close are dropped.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.queue = append(m.queue, v)
	m.cond.Signal()
}

// Close stops accepting values. Values already queued are still delivered.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Signal()
}

// C returns the delivery channel, starting the delivery goroutine if needed.
func (m *Mailbox[T]) C() <-chan T {
	m.once.Do(func() {
		go m.pump()
	})

	return m.out
}

func (m *Mailbox[T]) pump() {
	defer close(m.out)

	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}

		v := m.queue[0]
		var zero T
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.out <- v
	}
}
