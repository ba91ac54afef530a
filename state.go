package asyncio

import (
	"sync/atomic"
)

// runPhase is where a Service's owning goroutine currently sits in the
// RunUntil life cycle.
//
//	idle    -> waiting              [RunUntil about to block in backend.waitOne]
//	running -> waiting              [same, on every subsequent tick]
//	waiting -> running              [waitOne returned, a tick is dispatching]
//	idle/running/waiting -> closed  [Close]
//
// idle and running only differ in that idle is the phase before RunUntil has
// ever blocked in waitOne once; both accept the idle->waiting transition
// below so the first tick doesn't need special-casing.
type runPhase uint64

const (
	// phaseIdle is the phase a Service starts in: constructed, but RunUntil
	// has not yet blocked on the completion backend.
	phaseIdle runPhase = iota
	// phaseRunning is the phase while the owner is dispatching a post or
	// completion, between backend waits.
	phaseRunning
	// phaseWaiting is the phase while the owner is blocked in the
	// completion backend's waitOne.
	phaseWaiting
	// phaseClosed is the phase once Close has been called.
	phaseClosed
)

// String returns a human-readable name, used by logging and test failure
// messages.
func (p runPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseRunning:
		return "running"
	case phaseWaiting:
		return "waiting"
	case phaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// serviceState is a Service's run phase, stored lock-free behind an atomic
// so Post (from any goroutine) can check it without contending with the
// owner's own CAS traffic in RunUntil. Padded to its own cache line: it's
// read on every Post and written on every RunUntil tick from two different
// goroutines in the common blocked-owner case, so without padding it would
// false-share with whatever field happens to land next to it.
type serviceState struct { //nolint:govet // padding is intentional, see above
	_ [64]byte
	v atomic.Uint64
	_ [56]byte
}

// newServiceState returns a serviceState starting at phaseIdle.
func newServiceState() *serviceState {
	s := &serviceState{}
	s.v.Store(uint64(phaseIdle))
	return s
}

// load returns the current phase.
func (s *serviceState) load() runPhase {
	return runPhase(s.v.Load())
}

// store unconditionally sets the phase, for the one transition (into
// phaseClosed) that must win regardless of whatever phase the owner was
// last observed in.
func (s *serviceState) store(p runPhase) {
	s.v.Store(uint64(p))
}

// tryTransition CAS-transitions from one phase to another, reporting
// whether it won the race.
func (s *serviceState) tryTransition(from, to runPhase) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// resumeRunning CAS-transitions into phaseRunning after a completed
// backend.waitOne, from either phaseWaiting or phaseIdle. RunUntil always
// moves idle to waiting before it blocks, so through RunUntil the source is
// phaseWaiting; the phaseIdle case only covers a state that never waited.
func (s *serviceState) resumeRunning() bool {
	if s.tryTransition(phaseWaiting, phaseRunning) {
		return true
	}
	return s.tryTransition(phaseIdle, phaseRunning)
}
