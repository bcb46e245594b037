package domain

import (
	"sync"
	"time"
)

type StreamLine struct {
	At   time.Time
	Text string
}

// StreamBuffer is a bounded ring of captured output lines. The stream
// capturer is the only writer; snapshots are safe to take from any
// goroutine.
type StreamBuffer struct {
	mu       sync.Mutex
	capacity int
	lines    []StreamLine
}

const DefaultBufferCapacity = 30

func NewStreamBuffer(capacity int) *StreamBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}

	return &StreamBuffer{capacity: capacity}
}

func (b *StreamBuffer) Append(line StreamLine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if len(b.lines) > b.capacity {
		b.lines = b.lines[len(b.lines)-b.capacity:]
	}
}

func (b *StreamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.lines)
}

// Snapshot returns a copy of the buffered lines, oldest first.
func (b *StreamBuffer) Snapshot() []StreamLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]StreamLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Tail returns the last n buffered lines, oldest first.
func (b *StreamBuffer) Tail(n int) []StreamLine {
	snapshot := b.Snapshot()
	if n <= 0 || len(snapshot) <= n {
		return snapshot
	}

	return snapshot[len(snapshot)-n:]
}
