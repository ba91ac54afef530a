package asyncio

import (
	"fmt"
	"sync"
)

// postEntry is a single queued callable. svc doubles as the entry's valid
// bit: nilling it marks the entry consumed without popping it, so that
// popping the consumed prefix can happen lazily from the front while the
// slice underneath is still being appended to.
type postEntry struct {
	svc *Service
	fn  func(*Service)
}

// postQueue is the thread-safe FIFO of pending posts. It is manipulated
// only at well-defined boundaries: Push takes the lock just
// long enough to append; dispatchOne takes the lock to move the front
// callable out, drops it to invoke the callable without holding the lock
// (so a callable may itself call Push without deadlocking or requiring a
// reentrant mutex), then reacquires the lock to mark the slot consumed and
// compact the consumed prefix.
//
// This follows the same unlock-during-dispatch discipline as a chunked
// ingress queue would, but backed by a single growable slice with
// lazy nil-out-then-compact cleanup instead of a chunked linked list.
type postQueue struct {
	mu      sync.Mutex
	entries []postEntry
	head    int // index of the first not-yet-consumed entry
}

// push enqueues fn for execution on the owning goroutine. Safe to call from
// any goroutine, including the owner itself (e.g. from within a dispatched
// callable).
func (q *postQueue) push(svc *Service, fn func(*Service)) {
	q.mu.Lock()
	q.entries = append(q.entries, postEntry{svc: svc, fn: fn})
	q.mu.Unlock()
}

// dispatchOne pops and runs exactly one pending callable, returning
// (false, nil) if the queue was empty. Must only be called from the owning
// goroutine. If the callable panics, the panic is recovered and converted
// to an error returned as (true, err) — the slot is still nilled and
// compacted exactly as on a normal return, so a panicking callable never
// leaves the queue in an inconsistent state for the next dispatchOne.
func (q *postQueue) dispatchOne() (bool, error) {
	q.mu.Lock()
	q.compactLocked()
	if q.head >= len(q.entries) {
		q.mu.Unlock()
		return false, nil
	}
	entry := q.entries[q.head]
	q.mu.Unlock()

	err := safeInvokePost(entry)

	q.mu.Lock()
	// Only the owner ever advances head or nils slots, so the slot we just
	// dispatched is still exactly at q.head.
	q.entries[q.head].svc = nil
	q.entries[q.head].fn = nil
	q.compactLocked()
	q.mu.Unlock()
	return true, err
}

// safeInvokePost runs entry.fn with panic recovery, converting a panic into
// an error instead of the teacher's own safeExecute, which only logs and
// swallows it — see DESIGN.md's Open Question (a): a post panic must
// propagate out of RunUntil once the queue is left in a consistent state.
func safeInvokePost(entry postEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asyncio: post callable panicked: %v", r)
		}
	}()
	entry.fn(entry.svc)
	return nil
}

// compactLocked advances head past consumed (nil svc) entries and
// periodically reslices the backing array so it doesn't grow unbounded
// under sustained load. Caller must hold mu.
func (q *postQueue) compactLocked() {
	for q.head < len(q.entries) && q.entries[q.head].svc == nil && q.entries[q.head].fn == nil {
		q.head++
	}
	if q.head > 0 && q.head == len(q.entries) {
		q.entries = q.entries[:0]
		q.head = 0
	} else if q.head > 256 && q.head > len(q.entries)/2 {
		rest := len(q.entries) - q.head
		copy(q.entries, q.entries[q.head:])
		q.entries = q.entries[:rest]
		q.head = 0
	}
}

// length reports the number of not-yet-dispatched entries. Safe from any
// goroutine; used only for diagnostics/metrics, never for control flow,
// since it is stale the instant it's read from a non-owner goroutine.
func (q *postQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i := q.head; i < len(q.entries); i++ {
		if q.entries[i].fn != nil {
			n++
		}
	}
	return n
}
