package asyncio

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Service is the asynchronous file I/O multiplexer: a non-movable,
// single-owner object bound at construction time to the constructing
// goroutine. Only that goroutine may call RunUntil/Run; any goroutine may
// call Post. Copy by value is a programmer error — always hold a Service
// behind a pointer, exactly as returned by New.
type Service struct {
	_ noCopy

	ownerGoroutineID uint64

	posts    postQueue
	work     workCounter
	backend  completionBackend
	state    *serviceState
	metrics  *Metrics
	inFlight atomic.Int64

	// reentryGuard detects a callback (post or completion) reentering
	// RunUntil on the same goroutine, which is never allowed.
	reentryGuard bool

	opts *options
}

// New constructs a Service, capturing the calling goroutine as its owner.
// On POSIX it installs the process-wide interruption signal handler if none
// is installed yet; an existing handler is kept whatever its signal number.
func New(opts ...Option) (*Service, error) {
	cfg := resolveOptions(opts)

	backend, err := selectBackend(cfg)
	if err != nil {
		return nil, ErrResourceExhausted
	}

	svc := &Service{
		ownerGoroutineID: getGoroutineID(),
		backend:          backend,
		state:            newServiceState(),
		opts:             cfg,
	}
	if cfg.metricsEnabled {
		svc.metrics = &Metrics{}
	}

	if err := installPlatformSignal(svc, cfg.signal); err != nil {
		_ = backend.close()
		return nil, err
	}

	cfg.logger.logServiceCreated(svc)
	return svc, nil
}

// isOwner reports whether the calling goroutine is the one that
// constructed svc.
func (s *Service) isOwner() bool {
	return getGoroutineID() == s.ownerGoroutineID
}

// Run is RunUntil(DeadlineNever).
func (s *Service) Run() (bool, error) {
	return s.RunUntil(DeadlineNever)
}

// RunUntil makes at most one unit of progress: it dispatches one pending
// post if any is queued, otherwise it blocks in the completion backend for
// at most the time remaining until deadline and dispatches at most one
// completion. Returns (true, nil) if it made progress, (false, nil) if the
// work counter was already zero or a wake interrupted the wait without
// delivering a completion, or (false, err) on a deadline or backend error.
func (s *Service) RunUntil(deadline Deadline) (bool, error) {
	if !s.isOwner() {
		return false, ErrNotSupported
	}
	if s.reentryGuard {
		return false, ErrNotSupported
	}
	if err := deadline.validate(); err != nil {
		return false, err
	}

	if s.work.load() == 0 {
		return false, nil
	}

	s.reentryGuard = true
	defer func() { s.reentryGuard = false }()

	if dispatched, err := s.posts.dispatchOne(); dispatched {
		s.work.add(-1)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	now := time.Now()
	remain := deadline.remaining(now)

	s.state.tryTransition(phaseIdle, phaseWaiting)
	s.state.tryTransition(phaseRunning, phaseWaiting)
	completed, err := s.backend.waitOne(remain)
	s.state.resumeRunning()

	if err != nil {
		s.opts.logger.logBackendWaitError(s, err)
		return false, err
	}
	if completed {
		s.work.add(-1)
		return true, nil
	}
	// Woken by a post (or a spurious wake); the post is now visible in the
	// queue for the next tick, but this tick reports no progress of its own.
	return false, nil
}

// Post enqueues f for execution on the owning goroutine. Safe to call from
// any goroutine, including the owner itself from within a dispatched
// callable (spec invariant 5, "wake reentrancy").
func (s *Service) Post(f func(*Service)) {
	s.work.add(1)
	s.posts.push(s, f)
	depth := s.posts.length()
	s.opts.logger.logPostDispatched(s, depth)
	if s.metrics != nil {
		s.metrics.Queue.UpdatePost(depth)
	}
	if s.state.load() == phaseWaiting {
		_ = s.backend.wake()
	}
}

// submitRequest is used by handle.go to hand an I/O request to the
// backend, incrementing the work counter before the backend can possibly
// observe (and complete) the request.
func (s *Service) submitRequest(req *ioRequest) error {
	s.work.add(1)
	submittedAt := time.Now()
	inner := req.onComplete
	req.onComplete = func(n int, err error) {
		if s.metrics != nil {
			s.metrics.Latency.Record(time.Since(submittedAt))
			if err == nil {
				s.metrics.recordCompletion()
			}
			s.metrics.Queue.UpdateInFlight(int(s.inFlight.Add(-1)))
		}
		inner(n, err)
	}
	if err := s.backend.submit(req); err != nil {
		s.work.add(-1)
		return err
	}
	if s.metrics != nil {
		s.metrics.Queue.UpdateInFlight(int(s.inFlight.Add(1)))
	}
	return nil
}

// cancelRequest best-effort cancels req via the backend; the completion
// hook still fires exactly once from within RunUntil, which decrements the
// work counter after it runs.
func (s *Service) cancelRequest(req *ioRequest) error {
	return s.backend.cancel(req)
}

// Metrics returns the Service's runtime statistics, or nil if constructed
// without WithMetrics(true).
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// UsingKqueues reports whether this Service currently uses the optional
// BSD kqueue completion backend. Always false on non-Darwin platforms.
func (s *Service) UsingKqueues() bool {
	return platformUsingKqueues(s)
}

// DisableKqueues switches this Service to the POSIX worker-pool backend.
// Must be called before any I/O is submitted; a no-op on platforms that
// never use kqueues.
func (s *Service) DisableKqueues() error {
	if !s.isOwner() {
		return ErrNotSupported
	}
	return platformDisableKqueues(s)
}

// InterruptionSignal returns the POSIX signal number currently installed
// for this process, or 0 if none is installed. Always 0 on Windows.
func (s *Service) InterruptionSignal() int {
	return platformInterruptionSignal()
}

// SetInterruptionSignal installs sig as the process-wide interruption
// signal (0 = uninstall, -1 = choose first free real-time signal). Always
// a no-op returning 0 on Windows.
func (s *Service) SetInterruptionSignal(sig int) (int, error) {
	return platformSetInterruptionSignal(sig)
}

// Close releases backend resources immediately, without draining
// outstanding posts or I/Os. Must be called from the owning goroutine.
func (s *Service) Close() error {
	if !s.isOwner() {
		return ErrNotSupported
	}
	s.state.store(phaseClosed)
	unregisterPlatformSignal(s)
	s.opts.logger.logServiceClosed(s)
	return s.backend.close()
}

// getGoroutineID returns the current goroutine's numeric ID, parsed out of
// runtime.Stack()'s "goroutine N [...]" header, since Go exposes no public
// API for goroutine identity.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// noCopy, embedded by value in Service, makes `go vet -copylocks` flag any
// attempt to copy a Service by value, enforcing its non-movability at the
// tooling level.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
