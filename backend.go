package asyncio

import (
	"sync/atomic"
	"time"
)

// opKind distinguishes the two asynchronous operations a handle can submit.
type opKind uint8

const (
	opRead opKind = iota
	opWrite
)

// ioRequest is one in-flight I/O request: owned by the submitting handle,
// not the service, pinned for the duration of the kernel operation, and
// destroyed only after completion is observed. The service backend holds
// only a non-owning reference to it while it is in flight.
type ioRequest struct {
	kind   opKind
	fd     uintptr
	offset int64
	buf    []byte

	// onComplete is invoked exactly once, from the owning goroutine, with
	// the number of bytes transferred and a non-nil err on failure
	// (ErrCancelled included). Set by the submitting handle.
	onComplete func(n int, err error)

	// cancelled is set by cancel() before the backend has a chance to
	// observe it; backends consult it to decide whether to report
	// ErrCancelled instead of a successful result. atomic.Bool because
	// cancel() runs on an arbitrary caller goroutine while the backend
	// reads it from its own waiting goroutine(s).
	cancelled atomic.Bool
}

// completionBackend is the platform completion backend contract: submit an
// I/O, cancel an in-flight I/O, and wait for the next completion up to a
// deadline. Each Service holds exactly one implementation, chosen by
// selectBackend at construction: backend_windows.go on Windows,
// backend_posix.go on Linux, and on Darwin backend_kqueue.go unless kqueues
// are disabled, in which case backend_posix.go.
type completionBackend interface {
	// submit registers req with the backend and starts the operation.
	submit(req *ioRequest) error

	// cancel best-effort cancels req. The completion hook still fires
	// exactly once, either with ErrCancelled or the operation's outcome,
	// depending on how far the operation had progressed.
	cancel(req *ioRequest) error

	// waitOne blocks for at most the duration remaining until deadline,
	// dispatching exactly one request's completion hook if one becomes
	// ready. Returns (true, nil) on a dispatched completion, (false,
	// ErrTimedOut) on deadline expiry, (false, nil) on a wake-only return
	// (e.g. a post was enqueued) — callers handle the latter by checking the
	// work queue before retrying — or (false, err) on a backend failure.
	waitOne(remaining time.Duration) (bool, error)

	// wake interrupts a goroutine currently blocked in waitOne, causing it
	// to return promptly regardless of remaining time. Safe from any
	// goroutine.
	wake() error

	// close releases backend resources. Called once, from the owning
	// goroutine, when the Service is discarded.
	close() error
}
