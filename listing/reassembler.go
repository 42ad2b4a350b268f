package listing

import (
	"bytes"
)

// Reassembler turns arbitrary chunks of a stream into complete lines.
//
// Any partial trailing line is kept until a later Feed completes it or Flush is called at end of stream. The zero
// value is ready to use. A Reassembler is not safe for concurrent use; use one per stream.
type Reassembler struct {
	pending []byte
}

// Feed appends chunk to the pending buffer and returns every complete line in order, without the terminating "\n".
func (r *Reassembler) Feed(chunk []byte) []string {
	r.pending = append(r.pending, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(r.pending[start:], '\n')
		if i == -1 {
			break
		}

		lines = append(lines, string(r.pending[start:start+i]))
		start += i + 1
	}

	if start > 0 {
		// shift the partial line to the front so the buffer does not grow without bound.
		n := copy(r.pending, r.pending[start:])
		r.pending = r.pending[:n]
	}

	return lines
}

// Flush returns the pending partial line, if any, and resets the buffer.
//
// The boolean is false if nothing was pending.
func (r *Reassembler) Flush() (string, bool) {
	if len(r.pending) == 0 {
		return "", false
	}

	line := string(r.pending)
	r.pending = r.pending[:0]
	return line, true
}

// Pending returns the number of buffered bytes that do not yet form a complete line.
func (r *Reassembler) Pending() int {
	return len(r.pending)
}
