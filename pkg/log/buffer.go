package log

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultBufferLines is the capacity used when [NewCircularBuffer] is given a
// non-positive capacity.
const DefaultBufferLines = 100

// CircularBuffer is a thread-safe, line-oriented ring buffer that implements
// [io.Writer]. It keeps the most recent lines written to it and drops the
// oldest once full. Bytes after the last newline are held as a pending line
// until more data arrives.
type CircularBuffer struct {
	lines    []string
	pending  []byte
	capacity int
	head     int
	size     int
	dropped  int
	mu       sync.Mutex
}

// NewCircularBuffer creates a new [CircularBuffer] holding up to capacity lines.
func NewCircularBuffer(capacity int) *CircularBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferLines
	}

	return &CircularBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Write implements [io.Writer]. It never fails.
func (cb *CircularBuffer) Write(p []byte) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	data := p
	if len(cb.pending) > 0 {
		data = append(cb.pending, p...)
		cb.pending = nil
	}

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}

		cb.push(string(bytes.TrimSuffix(data[:idx], []byte("\r"))))
		data = data[idx+1:]
	}

	if len(data) > 0 {
		cb.pending = append([]byte(nil), data...)
	}

	return len(p), nil
}

func (cb *CircularBuffer) push(line string) {
	cb.lines[cb.head] = line
	cb.head = (cb.head + 1) % cb.capacity

	if cb.size < cb.capacity {
		cb.size++
	} else {
		cb.dropped++
	}
}

// Lines returns the buffered lines oldest first, including a trailing
// unterminated line if there is one.
func (cb *CircularBuffer) Lines() []string {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	result := make([]string, 0, cb.size+1)

	start := 0
	if cb.size == cb.capacity {
		start = cb.head
	}

	for i := range cb.size {
		result = append(result, cb.lines[(start+i)%cb.capacity])
	}

	if len(cb.pending) > 0 {
		result = append(result, string(cb.pending))
	}

	return result
}

// String returns the buffered lines joined by newlines.
func (cb *CircularBuffer) String() string {
	return strings.Join(cb.Lines(), "\n")
}

// Len returns the number of complete lines currently buffered.
func (cb *CircularBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.size
}

// Capacity returns the maximum number of lines the buffer holds.
func (cb *CircularBuffer) Capacity() int {
	return cb.capacity
}

// Dropped returns how many lines were overwritten since the last [CircularBuffer.Reset].
func (cb *CircularBuffer) Dropped() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.dropped
}

// Reset discards all buffered data.
func (cb *CircularBuffer) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	clear(cb.lines)
	cb.pending = nil
	cb.head = 0
	cb.size = 0
	cb.dropped = 0
}

// WriteTo writes the buffered lines to w, each terminated by a newline.
// It implements [io.WriterTo].
func (cb *CircularBuffer) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, line := range cb.Lines() {
		n, err := io.WriteString(w, line+"\n")
		total += int64(n)

		if err != nil {
			return total, fmt.Errorf("write line: %w", err)
		}
	}

	return total, nil
}
