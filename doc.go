// Package asyncio provides a single-owner, goroutine-affine asynchronous
// file I/O multiplexer, bridging Windows I/O Completion Ports and a
// POSIX-AIO-equivalent worker pool (with an optional BSD kqueue backend on
// Darwin) behind one cross-platform [Service] type.
//
// # Architecture
//
// A [Service] is constructed with [New] and is bound for its lifetime to
// the goroutine that constructed it: only that goroutine may call [Service.Run]
// or [Service.RunUntil]. Any goroutine may call [Service.Post] to enqueue a
// callable for execution on the owner. [Attach] binds an [*os.File] to a
// Service, returning a [Handle] whose [Handle.ReadAt]/[Handle.WriteAt]
// submit asynchronous operations routed through the Service's completion
// backend.
//
// # Platform Support
//
// The completion backend is selected once, at construction:
//   - Windows: I/O Completion Ports ([Service.RunUntil] waits on
//     GetQueuedCompletionStatus)
//   - Linux: a bounded worker-goroutine pool performing blocking
//     pread/pwrite, functionally equivalent to glibc's own AIO
//     implementation for regular files
//   - Darwin: a kqueue-based backend by default, or the same worker-pool
//     backend as Linux once kqueues are disabled (see [Service.UsingKqueues],
//     [Service.DisableKqueues], [WithDisableKqueues])
//
// # Thread Safety
//
// A Service has exactly one owner goroutine, captured at construction:
//   - [Service.Run] and [Service.RunUntil] may only be called by the owner
//   - [Service.Post] is safe from any goroutine, including the owner itself
//     from within a dispatched callable or completion callback
//   - [Handle.ReadAt], [Handle.WriteAt], and [Request.Cancel] are safe from
//     any goroutine; completion callbacks always run on the owner
//
// # Execution Model
//
// Each call to [Service.RunUntil] makes at most one unit of progress:
// dispatching one pending post, or blocking in the completion backend for
// at most the time remaining until the deadline and dispatching at most one
// completion. [Service.Run] is RunUntil with [DeadlineNever]: it also makes
// at most one unit of progress per call, so callers that want to drain all
// outstanding work call it in a loop until it reports false.
//
// # Usage
//
//	svc, err := asyncio.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	f, err := os.Open("data.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h, err := asyncio.Attach(svc, f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	buf := make([]byte, 4096)
//	if _, err := h.ReadAt(buf, 0, func(n int, err error) {
//	    fmt.Println(n, err)
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := svc.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package provides a small sentinel-error taxonomy:
//   - [ErrTimedOut]: a deadline expired before any progress was made
//   - [ErrNotSupported]: the call is not valid from the calling goroutine
//   - [ErrInvalidArgument]: a malformed deadline or argument
//   - [ErrCancelled]: a request's completion after [Request.Cancel]
//   - [ErrResourceExhausted]: the backend could not allocate a resource
//   - [*OSError]: wraps an underlying syscall failure
//
// All error types implement the standard [error] interface and support
// [errors.Is]/[errors.As].
package asyncio
