//go:build linux

package asyncio

import "golang.org/x/sys/unix"

// defaultRTSignal returns the real-time signal used for
// SetInterruptionSignal(-1); it does not probe which signals are free. Go's runtime itself reserves a few low
// SIGRTMIN offsets for its own use on some platforms, so SIGRTMIN+2 is used
// as a conservative default rather than SIGRTMIN itself.
func defaultRTSignal() int {
	return int(unix.SIGRTMIN()) + 2
}
