//go:build windows

package asyncio

import (
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// windowsOp pairs a pinned windows.Overlapped with the ioRequest it belongs
// to, so that the completion key/overlapped pointer returned by
// GetQueuedCompletionStatus can be mapped back to the request.
type windowsOp struct {
	ov  windows.Overlapped
	req *ioRequest
}

// iocpBackend is the Windows I/O Completion Port backend. One per Service,
// created by New on construction.
type iocpBackend struct {
	iocp windows.Handle

	mu      sync.Mutex
	inFlight map[*windows.Overlapped]*windowsOp
	closed  bool
}

// wakeCompletionKey is the sentinel completion key posted by wake() to
// signal "a post is pending" rather than a real I/O completion; the
// overlapped pointer posted alongside it is always nil, and waitOne tells a
// wake from a completion by that nil pointer alone; it does not inspect the
// key.
const wakeCompletionKey = ^uintptr(0)

// selectBackend always returns the IOCP backend on Windows; kqueues are a
// POSIX-only concept.
func selectBackend(opts *options) (completionBackend, error) {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, wrapOSError("CreateIoCompletionPort", err)
	}
	return &iocpBackend{
		iocp:     iocp,
		inFlight: make(map[*windows.Overlapped]*windowsOp),
	}, nil
}

func platformUsingKqueues(svc *Service) bool    { return false }
func platformDisableKqueues(svc *Service) error { return nil }

// attachFD associates a raw Windows file handle with this backend's
// completion port. Handles must call this once, at open time, before
// submitting any request against the fd.
func (b *iocpBackend) attachFD(fd uintptr) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd), b.iocp, 0, 0)
	if err != nil {
		return wrapOSError("CreateIoCompletionPort(attach)", err)
	}
	return nil
}

func (b *iocpBackend) submit(req *ioRequest) error {
	op := &windowsOp{req: req}
	op.ov.Offset = uint32(req.offset)
	op.ov.OffsetHigh = uint32(req.offset >> 32)

	b.mu.Lock()
	b.inFlight[&op.ov] = op
	b.mu.Unlock()

	var err error
	var done uint32
	h := windows.Handle(req.fd)
	switch req.kind {
	case opRead:
		err = windows.ReadFile(h, req.buf, &done, &op.ov)
	case opWrite:
		err = windows.WriteFile(h, req.buf, &done, &op.ov)
	}
	if err != nil && err != windows.ERROR_IO_PENDING {
		b.mu.Lock()
		delete(b.inFlight, &op.ov)
		b.mu.Unlock()
		return wrapOSError("ReadFile/WriteFile", err)
	}
	return nil
}

func (b *iocpBackend) cancel(req *ioRequest) error {
	req.cancelled.Store(true)
	b.mu.Lock()
	var ov *windows.Overlapped
	for k, op := range b.inFlight {
		if op.req == req {
			ov = k
			break
		}
	}
	b.mu.Unlock()
	if ov == nil {
		return nil
	}
	if err := windows.CancelIoEx(windows.Handle(req.fd), ov); err != nil {
		return wrapOSError("CancelIoEx", err)
	}
	return nil
}

func (b *iocpBackend) waitOne(remaining time.Duration) (bool, error) {
	timeoutMs := millis(remaining)
	var timeout *uint32
	t := uint32(timeoutMs)
	timeout = &t

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(b.iocp, &bytes, &key, &overlapped, timeout)
	if overlapped == nil {
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok && errno == windows.WAIT_TIMEOUT {
				return false, ErrTimedOut
			}
			return false, wrapOSError("GetQueuedCompletionStatus", err)
		}
		// Wake-only notification (posted by wake()); no completion to
		// dispatch this call.
		return false, nil
	}

	b.mu.Lock()
	op := b.inFlight[overlapped]
	delete(b.inFlight, overlapped)
	b.mu.Unlock()
	if op == nil {
		return false, nil
	}

	if op.req.cancelled.Load() {
		op.req.onComplete(int(bytes), ErrCancelled)
		return true, nil
	}
	if err != nil {
		op.req.onComplete(int(bytes), wrapOSError("GetQueuedCompletionStatus", err))
		return true, nil
	}
	op.req.onComplete(int(bytes), nil)
	return true, nil
}

func (b *iocpBackend) wake() error {
	if err := windows.PostQueuedCompletionStatus(b.iocp, 0, wakeCompletionKey, nil); err != nil {
		return wrapOSError("PostQueuedCompletionStatus", err)
	}
	return nil
}

func (b *iocpBackend) close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return windows.CloseHandle(b.iocp)
}
