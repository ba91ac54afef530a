package asyncio

import (
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New()
	if err != nil {
		t.Fatalf("New() = %v, want nil error", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRunUntilNoWorkReturnsFalse(t *testing.T) {
	svc := newTestService(t)
	progressed, err := svc.RunUntil(RelativeDeadline(10 * time.Millisecond))
	if err != nil {
		t.Fatalf("RunUntil() with no pending work = %v, want nil error", err)
	}
	if progressed {
		t.Fatal("RunUntil() with no pending work reported progress, want false")
	}
}

func TestPostDispatchedByRunUntil(t *testing.T) {
	svc := newTestService(t)
	ran := make(chan struct{})
	svc.Post(func(s *Service) {
		if s != svc {
			t.Error("post callable received the wrong Service")
		}
		close(ran)
	})

	progressed, err := svc.RunUntil(RelativeDeadline(time.Second))
	if err != nil {
		t.Fatalf("RunUntil() = %v, want nil", err)
	}
	if !progressed {
		t.Fatal("RunUntil() should report progress after dispatching a post")
	}
	select {
	case <-ran:
	default:
		t.Fatal("post callable was not invoked by RunUntil")
	}
}

func TestPostOrderIsFIFO(t *testing.T) {
	svc := newTestService(t)
	var order []int
	const n = 10
	for i := 0; i < n; i++ {
		i := i
		svc.Post(func(*Service) { order = append(order, i) })
	}
	for i := 0; i < n; i++ {
		progressed, err := svc.RunUntil(RelativeDeadline(time.Second))
		if err != nil || !progressed {
			t.Fatalf("RunUntil() iteration %d: progressed=%v err=%v", i, progressed, err)
		}
	}
	for i := 0; i < n; i++ {
		if order[i] != i {
			t.Fatalf("dispatch order = %v, want sequential 0..%d", order, n-1)
		}
	}
}

func TestRunUntilRejectsNonOwnerGoroutine(t *testing.T) {
	svc := newTestService(t)
	errCh := make(chan error, 1)
	go func() {
		_, err := svc.RunUntil(RelativeDeadline(10 * time.Millisecond))
		errCh <- err
	}()
	if err := <-errCh; err != ErrNotSupported {
		t.Fatalf("RunUntil() from a non-owner goroutine = %v, want ErrNotSupported", err)
	}
}

func TestCloseRejectsNonOwnerGoroutine(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer svc.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Close()
	}()
	if err := <-errCh; err != ErrNotSupported {
		t.Fatalf("Close() from a non-owner goroutine = %v, want ErrNotSupported", err)
	}
}

func TestRunUntilZeroDeadlineWithNoWork(t *testing.T) {
	// RunUntil with zero pending work returns immediately without touching
	// the backend at all, so a deadline of zero must not error.
	svc := newTestService(t)
	start := time.Now()
	progressed, err := svc.RunUntil(RelativeDeadline(0))
	if err != nil {
		t.Fatalf("RunUntil(0) = %v, want nil", err)
	}
	if progressed {
		t.Fatal("RunUntil(0) with no work should report no progress")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("RunUntil(0) with no work took %v, want near-instant", elapsed)
	}
}

func TestRunUntilRejectsInvalidDeadline(t *testing.T) {
	svc := newTestService(t)
	bad := Deadline{IsRelative: true, Nanoseconds: 1e9}
	_, err := svc.RunUntil(bad)
	if err != ErrInvalidArgument {
		t.Fatalf("RunUntil(invalid deadline) = %v, want ErrInvalidArgument", err)
	}
}

func TestMetricsNilWhenDisabled(t *testing.T) {
	svc := newTestService(t)
	if svc.Metrics() != nil {
		t.Fatal("Metrics() should be nil unless constructed WithMetrics(true)")
	}
}

func TestMetricsPopulatedWhenEnabled(t *testing.T) {
	svc, err := New(WithMetrics(true))
	if err != nil {
		t.Fatalf("New(WithMetrics(true)) = %v", err)
	}
	defer svc.Close()

	if svc.Metrics() == nil {
		t.Fatal("Metrics() should be non-nil when constructed WithMetrics(true)")
	}

	ran := make(chan struct{})
	svc.Post(func(*Service) { close(ran) })
	if _, err := svc.RunUntil(RelativeDeadline(time.Second)); err != nil {
		t.Fatalf("RunUntil() = %v", err)
	}
	<-ran

	if svc.Metrics().Queue.PostMax < 1 {
		t.Fatalf("Queue.PostMax = %d, want >= 1 after one post", svc.Metrics().Queue.PostMax)
	}
}
