//go:build linux || darwin

package asyncio

import "testing"

func TestInterruptionSignalInstalledByDefault(t *testing.T) {
	svc := newTestService(t)
	if got := svc.InterruptionSignal(); got == 0 {
		t.Fatal("a freshly constructed Service should have a default interruption signal installed")
	}
}

func TestSetInterruptionSignalUninstall(t *testing.T) {
	svc := newTestService(t)
	n, err := svc.SetInterruptionSignal(0)
	if err != nil {
		t.Fatalf("SetInterruptionSignal(0) = %v, want nil", err)
	}
	if n != 0 {
		t.Fatalf("SetInterruptionSignal(0) returned %d, want 0", n)
	}
	if got := svc.InterruptionSignal(); got != 0 {
		t.Fatalf("InterruptionSignal() after uninstall = %d, want 0", got)
	}
	// reinstall a default so other tests sharing the process-wide handler
	// aren't left without one.
	if _, err := svc.SetInterruptionSignal(-1); err != nil {
		t.Fatalf("SetInterruptionSignal(-1) = %v, want nil", err)
	}
}

func TestWithSignalOption(t *testing.T) {
	svc, err := New(WithSignal(-1))
	if err != nil {
		t.Fatalf("New(WithSignal(-1)) = %v", err)
	}
	defer svc.Close()
	if got := svc.InterruptionSignal(); got == 0 {
		t.Fatal("WithSignal(-1) should install the first free real-time signal")
	}
}
