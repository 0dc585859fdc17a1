package eventlog

import "sync"

// DefaultBufferSize is the number of entries kept when Config.BufferSize is unset.
const DefaultBufferSize = 1000

// Buffer is an ordered, capacity-bounded sequence of entries. When full, the
// oldest entries are evicted first. It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	entries  []LogEntry
	capacity int
	evicted  uint64
}

// NewBuffer creates a buffer holding at most capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{
		entries:  make([]LogEntry, 0, capacity),
		capacity: capacity,
	}
}

// Append adds an entry at the tail and reports how many entries were evicted.
func (b *Buffer) Append(entry LogEntry) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, entry)
		return 0
	}

	copy(b.entries, b.entries[1:])
	b.entries[len(b.entries)-1] = entry
	b.evicted++
	return 1
}

// Drain returns every buffered entry in order and empties the buffer.
func (b *Buffer) Drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return nil
	}

	snapshot := b.entries
	b.entries = make([]LogEntry, 0, b.capacity)
	return snapshot
}

// Restore puts entries back in front of whatever is buffered, preserving
// order. If the result exceeds capacity the oldest entries are evicted and
// their count is returned.
func (b *Buffer) Restore(entries []LogEntry) int {
	if len(entries) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	combined := make([]LogEntry, 0, len(entries)+len(b.entries))
	combined = append(combined, entries...)
	combined = append(combined, b.entries...)

	dropped := 0
	if len(combined) > b.capacity {
		dropped = len(combined) - b.capacity
		combined = combined[dropped:]
		b.evicted += uint64(dropped)
	}

	b.entries = make([]LogEntry, len(combined), b.capacity)
	copy(b.entries, combined)
	return dropped
}

// Entries returns clones of the buffered entries in order.
func (b *Buffer) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]LogEntry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Evicted returns the number of entries dropped because the buffer was full.
func (b *Buffer) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}
