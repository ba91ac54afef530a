package asyncio

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerWritesThroughSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New(WithLogger(...)) = %v", err)
	}
	defer svc.Close()

	if !strings.Contains(buf.String(), "asyncio: service created") {
		t.Fatalf("log output = %q, want it to contain the service-created event", buf.String())
	}
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	// the zero-config logger must never panic and must not require a nil
	// check at any call site; exercising New() without WithLogger covers
	// logServiceCreated, and Close() covers logServiceClosed.
	svc, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
}
