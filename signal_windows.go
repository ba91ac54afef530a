//go:build windows

package asyncio

// Windows has no equivalent of a POSIX real-time signal; wake is always
// delivered via PostQueuedCompletionStatus (see backend_windows.go), so
// the signal-related external interface operations are no-ops here.
func installPlatformSignal(svc *Service, sig int) error { return nil }
func unregisterPlatformSignal(svc *Service)              {}
func platformInterruptionSignal() int                    { return 0 }
func platformSetInterruptionSignal(sig int) (int, error) { return 0, nil }
