//go:build darwin

package asyncio

import "golang.org/x/sys/unix"

// defaultRTSignal falls back to SIGUSR1 on Darwin, which has no POSIX.1b
// real-time signal range.
func defaultRTSignal() int {
	return int(unix.SIGUSR1)
}
