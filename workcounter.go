package asyncio

import "sync/atomic"

// workCounter is the atomic outstanding-work counter:
// workQueued == |pending posts| + |in-flight I/Os|. It is cache-line
// padded like serviceState, since it is read on every tick and written from
// every producer goroutine.
type workCounter struct { //nolint:unused // betteralign:ignore
	_ [sizeOfCacheLine]byte
	v atomic.Int64
	_ [sizeOfCacheLine - 8]byte
}

func (c *workCounter) add(delta int64) int64 {
	return c.v.Add(delta)
}

func (c *workCounter) load() int64 {
	return c.v.Load()
}
