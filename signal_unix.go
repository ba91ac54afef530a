//go:build linux || darwin

package asyncio

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// The signal handler is process-global, installed once, and shared by
// every Service in the process; each Service's own state decides whether a
// delivered signal actually causes it to wake. Go gives no equivalent of
// pthread_kill-targeting a specific OS thread from a signal number alone,
// so instead of targeting one owner, every registered Service's state is
// consulted on each delivery — this is a no-op for any service that isn't
// currently blocked in waitOne, avoiding a wake for every post.
var (
	sigMu       sync.Mutex
	sigCh       chan os.Signal
	sigNum      int
	sigServices = map[*Service]struct{}{}
)

// installSignal installs (or reinstalls) the process-wide signal handler.
// sig == 0 uninstalls it; sig == -1 uses defaultRTSignal (Go exposes no
// portable way to probe signal availability, so a fixed default is used:
// SIGRTMIN+2 on Linux, SIGUSR1 on Darwin, which has no real-time signal
// range).
func installSignal(sig int) (int, error) {
	sigMu.Lock()
	defer sigMu.Unlock()

	if sigCh != nil {
		signal.Stop(sigCh)
		sigCh = nil
	}
	if sig == 0 {
		sigNum = 0
		return 0, nil
	}
	if sig == -1 {
		sig = defaultRTSignal()
	}

	ch := make(chan os.Signal, 16)
	signal.Notify(ch, syscall.Signal(sig))
	sigCh = ch
	sigNum = sig
	go dispatchSignals(ch)
	return sig, nil
}

func dispatchSignals(ch <-chan os.Signal) {
	for range ch {
		sigMu.Lock()
		targets := make([]*Service, 0, len(sigServices))
		for svc := range sigServices {
			targets = append(targets, svc)
		}
		sigMu.Unlock()

		for _, svc := range targets {
			if svc.state.load() == phaseWaiting {
				_ = svc.backend.wake()
			}
		}
	}
}

func registerSignalService(svc *Service) {
	sigMu.Lock()
	sigServices[svc] = struct{}{}
	sigMu.Unlock()
}

func unregisterSignalService(svc *Service) {
	sigMu.Lock()
	delete(sigServices, svc)
	sigMu.Unlock()
}

func currentSignal() int {
	sigMu.Lock()
	defer sigMu.Unlock()
	return sigNum
}

// installPlatformSignal is New's POSIX hook: it installs the process-wide
// signal handler only if one isn't already installed, then registers svc to
// be woken by future deliveries.
func installPlatformSignal(svc *Service, sig int) error {
	sigMu.Lock()
	alreadyInstalled := sigCh != nil
	sigMu.Unlock()

	if !alreadyInstalled {
		n, err := installSignal(sig)
		if err != nil {
			return ErrResourceExhausted
		}
		svc.opts.logger.logSignalInstalled(n)
	}
	registerSignalService(svc)
	return nil
}

func unregisterPlatformSignal(svc *Service) {
	unregisterSignalService(svc)
}

func platformInterruptionSignal() int {
	return currentSignal()
}

func platformSetInterruptionSignal(sig int) (int, error) {
	n, err := installSignal(sig)
	if err != nil {
		return 0, ErrResourceExhausted
	}
	return n, nil
}
