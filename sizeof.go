package asyncio

// Layout and sizing constants shared by the padded atomics and the POSIX
// backend.
const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 64 bytes is standard for x86-64.
	// 128 bytes is standard for Apple Silicon (M1/M2/M3) and other ARM64.
	// We use 128 to satisfy the largest common alignment requirement.
	sizeOfCacheLine = 128

	// sizeOfAtomicUint64 is the size of an atomic.Uint64 variable.
	sizeOfAtomicUint64 = 8

	// defaultWorkerPoolSize is the number of goroutines performing blocking
	// pread/pwrite on behalf of the POSIX-AIO backend when WithWorkerPoolSize
	// is not supplied.
	defaultWorkerPoolSize = 4
)
