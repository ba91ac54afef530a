//go:build linux || darwin

package asyncio

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// posixResult is what a worker reports back to the owning goroutine after
// performing a blocking read or write.
type posixResult struct {
	req *ioRequest
	n   int
	err error
}

// posixBackend implements the POSIX-AIO-equivalent completion backend as a
// bounded worker-goroutine pool performing blocking unix.Pread/Pwrite,
// since true POSIX aio_read/aio_suspend requires glibc/librt via cgo. This
// is functionally equivalent to glibc's own internal strategy for
// regular-file AIO, which also farms aio_read out to a thread pool.
type posixBackend struct {
	submitCh chan *ioRequest
	doneCh   chan posixResult
	wakeCh   chan struct{}
	closeCh  chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending map[*ioRequest]struct{}
}

func newPosixBackendSize(poolSize int) (*posixBackend, error) {
	if poolSize <= 0 {
		poolSize = defaultWorkerPoolSize
	}
	b := &posixBackend{
		submitCh: make(chan *ioRequest, poolSize*4),
		doneCh:   make(chan posixResult, poolSize*4),
		wakeCh:   make(chan struct{}, 1),
		closeCh:  make(chan struct{}),
		pending:  make(map[*ioRequest]struct{}),
	}
	for i := 0; i < poolSize; i++ {
		go b.worker()
	}
	return b, nil
}

func (b *posixBackend) worker() {
	for {
		select {
		case <-b.closeCh:
			return
		case req, ok := <-b.submitCh:
			if !ok {
				return
			}
			var n int
			var err error
			if req.cancelled.Load() {
				err = ErrCancelled
			} else {
				switch req.kind {
				case opRead:
					n, err = unix.Pread(int(req.fd), req.buf, req.offset)
				case opWrite:
					n, err = unix.Pwrite(int(req.fd), req.buf, req.offset)
				}
				if err != nil {
					err = wrapOSError("pread/pwrite", err)
				}
			}
			select {
			case b.doneCh <- posixResult{req: req, n: n, err: err}:
			case <-b.closeCh:
				return
			}
		}
	}
}

func (b *posixBackend) submit(req *ioRequest) error {
	b.mu.Lock()
	b.pending[req] = struct{}{}
	b.mu.Unlock()

	select {
	case b.submitCh <- req:
		return nil
	case <-b.closeCh:
		return wrapOSError("submit", unix.EBADF)
	}
}

// cancel marks req cancelled. If the worker hasn't dequeued it yet, it will
// observe the flag and report ErrCancelled without performing the syscall;
// otherwise the in-flight syscall is allowed to finish and its real result
// is delivered instead — cancellation here is best-effort only.
func (b *posixBackend) cancel(req *ioRequest) error {
	req.cancelled.Store(true)
	return nil
}

func (b *posixBackend) waitOne(remaining time.Duration) (bool, error) {
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case res := <-b.doneCh:
		b.mu.Lock()
		delete(b.pending, res.req)
		b.mu.Unlock()
		res.req.onComplete(res.n, res.err)
		return true, nil
	case <-b.wakeCh:
		return false, nil
	case <-timer.C:
		return false, ErrTimedOut
	case <-b.closeCh:
		return false, nil
	}
}

func (b *posixBackend) wake() error {
	select {
	case b.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

func (b *posixBackend) close() error {
	b.closeOnce.Do(func() {
		close(b.closeCh)
	})
	return nil
}
