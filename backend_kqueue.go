//go:build darwin

package asyncio

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// wakeIdent is the identifier of the EVFILT_USER event kqueueBackend
// registers at construction purely to drive wakeups, avoiding a self-pipe.
const wakeIdent = 1

// kqueueBackend is the optional BSD kqueue completion backend, reserved for
// platforms where it outperforms the worker-pool backend but not required
// for correctness. Each registered fd corresponds to exactly one in-flight
// ioRequest; on readiness the backend performs the pread/pwrite itself,
// once, on the owning goroutine, instead of handing the request back to a
// worker pool, and reports whatever that single syscall returned.
type kqueueBackend struct {
	kq int32

	mu      sync.Mutex
	byFD    map[int]*ioRequest
	pending map[*ioRequest]struct{}
}

func newKqueueBackend() (*kqueueBackend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, wrapOSError("kqueue", err)
	}
	unix.CloseOnExec(kq)

	b := &kqueueBackend{
		kq:      int32(kq),
		byFD:    make(map[int]*ioRequest),
		pending: make(map[*ioRequest]struct{}),
	}

	_, err = unix.Kevent(int(b.kq), []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}, nil, nil)
	if err != nil {
		_ = unix.Close(int(b.kq))
		return nil, wrapOSError("kevent(EVFILT_USER add)", err)
	}
	return b, nil
}

func (b *kqueueBackend) submit(req *ioRequest) error {
	filter := int16(unix.EVFILT_READ)
	if req.kind == opWrite {
		filter = unix.EVFILT_WRITE
	}

	b.mu.Lock()
	b.byFD[int(req.fd)] = req
	b.pending[req] = struct{}{}
	b.mu.Unlock()

	_, err := unix.Kevent(int(b.kq), []unix.Kevent_t{{
		Ident:  uint64(req.fd),
		Filter: filter,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
	}}, nil, nil)
	if err != nil {
		b.mu.Lock()
		delete(b.byFD, int(req.fd))
		delete(b.pending, req)
		b.mu.Unlock()
		return wrapOSError("kevent(add)", err)
	}
	return nil
}

func (b *kqueueBackend) cancel(req *ioRequest) error {
	req.cancelled.Store(true)
	return nil
}

func (b *kqueueBackend) waitOne(remaining time.Duration) (bool, error) {
	ts := &unix.Timespec{
		Sec:  int64(remaining / time.Second),
		Nsec: int64(remaining % time.Second),
	}
	var buf [8]unix.Kevent_t
	n, err := unix.Kevent(int(b.kq), nil, buf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, wrapOSError("kevent(wait)", err)
	}
	if n == 0 {
		return false, ErrTimedOut
	}

	for i := 0; i < n; i++ {
		ev := buf[i]
		if ev.Filter == unix.EVFILT_USER {
			continue
		}
		fd := int(ev.Ident)
		b.mu.Lock()
		req := b.byFD[fd]
		if req != nil {
			delete(b.byFD, fd)
			delete(b.pending, req)
		}
		b.mu.Unlock()
		if req == nil {
			continue
		}

		if req.cancelled.Load() {
			req.onComplete(0, ErrCancelled)
			return true, nil
		}

		var got int
		var opErr error
		switch req.kind {
		case opRead:
			got, opErr = unix.Pread(int(req.fd), req.buf, req.offset)
		case opWrite:
			got, opErr = unix.Pwrite(int(req.fd), req.buf, req.offset)
		}
		if opErr != nil {
			opErr = wrapOSError("pread/pwrite", opErr)
		}
		req.onComplete(got, opErr)
		return true, nil
	}
	return false, nil
}

func (b *kqueueBackend) wake() error {
	_, err := unix.Kevent(int(b.kq), []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}, nil, nil)
	if err != nil {
		return wrapOSError("kevent(trigger)", err)
	}
	return nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(int(b.kq))
}

// selectBackend defaults to the kqueue variant on Darwin; callers that want
// the worker-pool variant instead call Service.DisableKqueues before
// submitting any I/O.
func selectBackend(opts *options) (completionBackend, error) {
	if opts.disableKqueues {
		return newPosixBackendSize(opts.workerPoolSize)
	}
	return newKqueueBackend()
}

// platformUsingKqueues reports whether svc's current backend is the
// kqueue variant.
func platformUsingKqueues(svc *Service) bool {
	_, ok := svc.backend.(*kqueueBackend)
	return ok
}

// platformDisableKqueues swaps svc's backend to the worker-pool POSIX-AIO
// variant. Must be called before any I/O is submitted against svc.
func platformDisableKqueues(svc *Service) error {
	if _, ok := svc.backend.(*kqueueBackend); !ok {
		return nil
	}
	b, err := newPosixBackendSize(svc.opts.workerPoolSize)
	if err != nil {
		return err
	}
	_ = svc.backend.close()
	svc.backend = b
	return nil
}
