//go:build linux

package asyncio

// selectBackend always returns the worker-pool POSIX-AIO-equivalent
// backend on Linux. epoll cannot usefully drive readiness for regular
// files — the kernel always reports them ready — so it has no role here;
// kqueue is likewise unavailable on Linux.
func selectBackend(opts *options) (completionBackend, error) {
	return newPosixBackendSize(opts.workerPoolSize)
}

func platformUsingKqueues(svc *Service) bool    { return false }
func platformDisableKqueues(svc *Service) error { return nil }
