//go:build linux || darwin

package asyncio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempFile(t *testing.T, contents []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asyncio-test")
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("os.WriteFile() = %v", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		t.Fatalf("os.OpenFile() = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAttachRejectsNilArguments(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, []byte("hi"))

	if _, err := Attach(nil, f); err != ErrInvalidArgument {
		t.Fatalf("Attach(nil, f) = %v, want ErrInvalidArgument", err)
	}
	if _, err := Attach(svc, nil); err != ErrInvalidArgument {
		t.Fatalf("Attach(svc, nil) = %v, want ErrInvalidArgument", err)
	}
}

func TestReadAtCompletesThroughRunUntil(t *testing.T) {
	svc := newTestService(t)
	want := []byte("hello, asyncio")
	f := tempFile(t, want)

	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	buf := make([]byte, len(want))
	var gotN int
	var gotErr error
	done := make(chan struct{})
	if _, err := h.ReadAt(buf, 0, func(n int, err error) {
		gotN, gotErr = n, err
		close(done)
	}); err != nil {
		t.Fatalf("ReadAt() = %v", err)
	}

	for {
		progressed, err := svc.RunUntil(RelativeDeadline(time.Second))
		if err != nil {
			t.Fatalf("RunUntil() = %v", err)
		}
		select {
		case <-done:
			goto completed
		default:
		}
		if !progressed {
			t.Fatal("RunUntil() made no progress before the read completed")
		}
	}
completed:
	if gotErr != nil {
		t.Fatalf("ReadAt completion err = %v, want nil", gotErr)
	}
	if gotN != len(want) {
		t.Fatalf("ReadAt completion n = %d, want %d", gotN, len(want))
	}
	if string(buf) != string(want) {
		t.Fatalf("ReadAt buf = %q, want %q", buf, want)
	}
}

func TestWriteAtCompletesThroughRunUntil(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, make([]byte, 16))

	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	payload := []byte("written!")
	done := make(chan struct{})
	var gotErr error
	if _, err := h.WriteAt(payload, 0, func(n int, err error) {
		gotErr = err
		if n != len(payload) {
			t.Errorf("WriteAt completion n = %d, want %d", n, len(payload))
		}
		close(done)
	}); err != nil {
		t.Fatalf("WriteAt() = %v", err)
	}

	for {
		if _, err := svc.RunUntil(RelativeDeadline(time.Second)); err != nil {
			t.Fatalf("RunUntil() = %v", err)
		}
		select {
		case <-done:
			goto completed
		default:
		}
	}
completed:
	if gotErr != nil {
		t.Fatalf("WriteAt completion err = %v, want nil", gotErr)
	}

	readBack := make([]byte, len(payload))
	if _, err := f.ReadAt(readBack, 0); err != nil {
		t.Fatalf("verifying write via f.ReadAt() = %v", err)
	}
	if string(readBack) != string(payload) {
		t.Fatalf("file contents = %q, want %q", readBack, payload)
	}
}

func TestReadAtRejectsEmptyBuffer(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, []byte("x"))
	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}
	if _, err := h.ReadAt(nil, 0, func(int, error) {}); err != ErrInvalidArgument {
		t.Fatalf("ReadAt(nil buf) = %v, want ErrInvalidArgument", err)
	}
}

// TestPostDuringInFlightRead issues a Post from another goroutine while a
// read is in flight on the owner, and checks that repeated RunUntil calls,
// none of which may fail, dispatch both the read's completion and the post
// within two seconds. Whether the owner is actually blocked in
// backend.waitOne when the post arrives depends on how fast the read
// completes; the test does not measure how promptly RunUntil returns.
func TestPostDuringInFlightRead(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, []byte("hello"))
	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	readDone := make(chan struct{})
	buf := make([]byte, 5)
	if _, err := h.ReadAt(buf, 0, func(int, error) {
		close(readDone)
	}); err != nil {
		t.Fatalf("ReadAt() = %v", err)
	}

	postDone := make(chan struct{})
	go func() {
		// give RunUntil a head start entering backend.waitOne before we post.
		time.Sleep(20 * time.Millisecond)
		svc.Post(func(*Service) { close(postDone) })
	}()

	// drain ticks until both the I/O and the post have been dispatched; since
	// RunUntil makes at most one unit of progress per call, this may take
	// two calls depending on ordering.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-readDone:
		default:
		}
		select {
		case <-postDone:
		default:
		}
		readClosed := isClosed(readDone)
		postClosed := isClosed(postDone)
		if readClosed && postClosed {
			return
		}
		if _, err := svc.RunUntil(RelativeDeadline(500 * time.Millisecond)); err != nil {
			t.Fatalf("RunUntil() = %v", err)
		}
	}
	t.Fatal("timed out waiting for both the read and the post to be dispatched")
}

// TestCancelDeliversExactlyOnce proves that cancelling a request still
// fires the completion callback exactly once, with either the operation's
// true outcome or ErrCancelled — cancellation is best-effort, so which one
// wins the race against the worker pool is not guaranteed.
func TestCancelDeliversExactlyOnce(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, []byte("cancel me"))
	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	var calls int
	var gotErr error
	done := make(chan struct{})
	buf := make([]byte, 9)
	req, err := h.ReadAt(buf, 0, func(_ int, err error) {
		calls++
		gotErr = err
		close(done)
	})
	if err != nil {
		t.Fatalf("ReadAt() = %v", err)
	}

	if err := req.Cancel(); err != nil {
		t.Fatalf("Cancel() = %v, want nil", err)
	}

	for {
		select {
		case <-done:
			goto completed
		default:
		}
		if _, err := svc.RunUntil(RelativeDeadline(time.Second)); err != nil {
			t.Fatalf("RunUntil() = %v", err)
		}
	}
completed:
	if calls != 1 {
		t.Fatalf("completion callback ran %d times, want exactly 1", calls)
	}
	if gotErr != nil && gotErr != ErrCancelled {
		t.Fatalf("completion err = %v, want nil or ErrCancelled", gotErr)
	}
}

func TestHandleCloseClosesUnderlyingFile(t *testing.T) {
	svc := newTestService(t)
	f := tempFile(t, []byte("x"))
	h, err := Attach(svc, f)
	if err != nil {
		t.Fatalf("Attach() = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	// the underlying file is now closed; a second close must report the
	// standard library's own already-closed error.
	if err := f.Close(); err == nil {
		t.Fatal("f.Close() after h.Close() succeeded, want an already-closed error")
	}
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
