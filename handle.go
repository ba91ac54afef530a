// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncio

import "os"

// Handle is an async file handle: an I/O-capable object that, at open
// time, receives a reference to a Service and registers itself with it. On
// Windows this associates the underlying file handle with the Service's
// completion port; on POSIX no per-handle registration happens, since the
// association to the worker pool (or kqueue) is purely logical.
//
// The Handle, not the Service, owns the memory of every in-flight request:
// ReadAt/WriteAt pin the caller's buffer inside an ioRequest for the
// duration of the operation and release it only once the completion
// callback has run.
type Handle struct {
	svc  *Service
	fd   uintptr
	file *os.File
}

// Attach binds f to svc, returning a Handle through which f's contents can
// be read and written asynchronously. On Windows this registers f's file
// handle with svc's completion port; see backend_windows.go's attachFD.
func Attach(svc *Service, f *os.File) (*Handle, error) {
	if svc == nil || f == nil {
		return nil, ErrInvalidArgument
	}
	fd := f.Fd()
	if registrar, ok := svc.backend.(interface{ attachFD(uintptr) error }); ok {
		if err := registrar.attachFD(fd); err != nil {
			return nil, err
		}
	}
	return &Handle{svc: svc, fd: fd, file: f}, nil
}

// ReadAt submits an asynchronous read of len(buf) bytes starting at offset.
// done is invoked exactly once, from svc's owning goroutine (from within
// RunUntil), with the number of bytes read and a non-nil error on failure
// (ErrCancelled included, see Cancel). buf must not be touched by the
// caller until done has run — the Handle, not the Service, owns it for the
// duration of the operation.
func (h *Handle) ReadAt(buf []byte, offset int64, done func(n int, err error)) (*Request, error) {
	return h.submit(opRead, buf, offset, done)
}

// WriteAt submits an asynchronous write of buf starting at offset. See
// ReadAt for the completion contract.
func (h *Handle) WriteAt(buf []byte, offset int64, done func(n int, err error)) (*Request, error) {
	return h.submit(opWrite, buf, offset, done)
}

func (h *Handle) submit(kind opKind, buf []byte, offset int64, done func(n int, err error)) (*Request, error) {
	if len(buf) == 0 {
		return nil, ErrInvalidArgument
	}
	req := &ioRequest{
		kind:   kind,
		fd:     h.fd,
		offset: offset,
		buf:    buf,
	}
	req.onComplete = func(n int, err error) {
		h.svc.opts.logger.logCompletionDispatched(req, n, err)
		if done != nil {
			done(n, err)
		}
	}
	if err := h.svc.submitRequest(req); err != nil {
		return nil, err
	}
	return &Request{svc: h.svc, req: req}, nil
}

// Close detaches the handle's underlying file from the service. It does not
// cancel any in-flight requests; callers should Cancel those explicitly
// first if a race with a pending completion must be avoided.
func (h *Handle) Close() error {
	if registrar, ok := h.svc.backend.(interface{ detachFD(uintptr) error }); ok {
		if err := registrar.detachFD(h.fd); err != nil {
			return err
		}
	}
	return h.file.Close()
}

// Request is a handle to an in-flight asynchronous operation, returned by
// ReadAt/WriteAt so the caller may Cancel it before completion.
type Request struct {
	svc *Service
	req *ioRequest
}

// Cancel best-effort cancels the request via the backend (CancelIoEx /
// aio_cancel equivalents). The completion callback still fires exactly
// once, with either ErrCancelled or the operation's true outcome, depending
// on how far it had progressed when the cancellation was observed.
func (r *Request) Cancel() error {
	return r.svc.cancelRequest(r.req)
}
