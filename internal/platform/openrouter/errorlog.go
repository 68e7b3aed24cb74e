package openrouter

import (
	"sync"
	"time"
)

// ErrorLog collects client failures for inspection. Implementations must be safe for concurrent use.
type ErrorLog interface {
	Record(err error)
	Entries() []ErrorEntry
}

type ErrorEntry struct {
	At      time.Time
	Message string
}

// RingErrorLog keeps the most recent failures, oldest first.
type RingErrorLog struct {
	mu      sync.Mutex
	entries []ErrorEntry
	next    int
	full    bool
	now     func() time.Time
}

func NewRingErrorLog(size int) *RingErrorLog {
	if size <= 0 {
		size = 100
	}
	return &RingErrorLog{entries: make([]ErrorEntry, size), now: time.Now}
}

func (r *RingErrorLog) Record(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = ErrorEntry{At: r.now(), Message: err.Error()}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

func (r *RingErrorLog) Entries() []ErrorEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]ErrorEntry(nil), r.entries[:r.next]...)
	}
	out := make([]ErrorEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}
