package asyncio

import "time"

// Deadline encodes a relative-or-absolute wait limit: a boolean
// discriminator for relative-vs-absolute, plus a seconds/nanoseconds pair.
// The zero value is not meaningful on its own; use DeadlineNever,
// RelativeDeadline, or AbsoluteDeadline to construct one.
type Deadline struct {
	IsRelative  bool
	Seconds     uint64
	Nanoseconds uint32
}

// DeadlineNever is the distinguished sentinel meaning "wait forever".
// Run() is defined as RunUntil(DeadlineNever).
var DeadlineNever = Deadline{IsRelative: true, Seconds: ^uint64(0), Nanoseconds: 0}

// RelativeDeadline returns a Deadline d nanoseconds-precision time from now.
func RelativeDeadline(d time.Duration) Deadline {
	if d < 0 {
		d = 0
	}
	return Deadline{IsRelative: true, Seconds: uint64(d / time.Second), Nanoseconds: uint32(d % time.Second)}
}

// AbsoluteDeadline returns a Deadline anchored to wall-clock time t.
func AbsoluteDeadline(t time.Time) Deadline {
	u := t.Unix()
	if u < 0 {
		u = 0
	}
	return Deadline{IsRelative: false, Seconds: uint64(u), Nanoseconds: uint32(t.Nanosecond())}
}

// validate reports ErrInvalidArgument for malformed deadlines: nanoseconds
// must be a valid fraction of a second.
func (d Deadline) validate() error {
	if d.Nanoseconds >= 1e9 {
		return ErrInvalidArgument
	}
	return nil
}

// isNever reports whether d is the "never" sentinel.
func (d Deadline) isNever() bool {
	return d == DeadlineNever
}

// remaining computes the time.Duration left until d, relative to now. A
// relative deadline is measured from the moment remaining is first called
// (the start of the RunUntil invocation); callers must capture "now" once
// and reuse it across successive remaining() calls within the same tick to
// avoid re-basing a relative deadline on every call.
func (d Deadline) remaining(now time.Time) time.Duration {
	if d.isNever() {
		return time.Duration(1<<63 - 1)
	}
	target := time.Unix(int64(d.Seconds), int64(d.Nanoseconds))
	if d.IsRelative {
		target = now.Add(time.Duration(d.Seconds)*time.Second + time.Duration(d.Nanoseconds))
	}
	remain := target.Sub(now)
	if remain < 0 {
		remain = 0
	}
	return remain
}

// millis converts a remaining duration to the millisecond timeout expected
// by GetQueuedCompletionStatus. A positive duration under 1ms becomes 1ms
// rather than 0; longer durations are truncated to whole milliseconds, and
// the result is clamped to the int32 maximum.
func millis(remain time.Duration) int {
	if remain <= 0 {
		return 0
	}
	if remain > 0 && remain < time.Millisecond {
		return 1
	}
	ms := remain.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int(ms)
}
