//go:build linux

package asyncio

import "testing"

func TestUsingKqueuesAlwaysFalseOnLinux(t *testing.T) {
	svc := newTestService(t)
	if svc.UsingKqueues() {
		t.Fatal("Linux has no kqueue backend; UsingKqueues() must always report false")
	}
	if err := svc.DisableKqueues(); err != nil {
		t.Fatalf("DisableKqueues() on Linux = %v, want nil (no-op)", err)
	}
}
