// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncio

import (
	"io"
	"log/slog"

	"github.com/joeycumines/logiface"
	logifaceslog "github.com/joeycumines/logiface-slog"
)

// Logger is the ambient structured-logging facade for a Service. Rather
// than a hand-rolled Logger interface with a pretty/JSON dual-mode
// formatter, this wraps logiface directly, backed by the standard
// library's log/slog via the logiface-slog adapter, so a caller supplying
// WithLogger gets ordinary slog.Handler composability (JSON, text, or any
// third-party handler) for free instead of a bespoke formatter.
type Logger struct {
	l *logiface.Logger[*logifaceslog.Event]
}

// NewLogger builds a Logger that writes through handler. logifaceslog's own
// level threshold defaults to Trace (its most permissive value), so handler
// is the only filter that applies, matching ordinary slog.Handler
// composability.
func NewLogger(handler slog.Handler) *Logger {
	return &Logger{
		l: logiface.New[*logifaceslog.Event](logifaceslog.NewLogger(handler)),
	}
}

// noopLogger is the default when WithLogger is not supplied: a Logger bound
// to a handler that discards everything, so every log* call below stays a
// cheap level check rather than requiring a nil check at each call site.
func noopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}

func (g *Logger) logServiceCreated(svc *Service) {
	g.l.Debug().
		Uint64("owner_goroutine", svc.ownerGoroutineID).
		Log("asyncio: service created")
}

func (g *Logger) logPostDispatched(svc *Service, depth int) {
	g.l.Trace().
		Uint64("owner_goroutine", svc.ownerGoroutineID).
		Int("queue_depth", depth).
		Log("asyncio: post dispatched")
}

func (g *Logger) logCompletionDispatched(req *ioRequest, n int, err error) {
	b := g.l.Debug().
		Int("fd", int(req.fd)).
		Int("n", n)
	if err != nil {
		b = b.Err(err)
	}
	b.Log("asyncio: completion dispatched")
}

func (g *Logger) logBackendWaitError(svc *Service, err error) {
	g.l.Err().
		Err(err).
		Uint64("owner_goroutine", svc.ownerGoroutineID).
		Log("asyncio: backend wait failed")
}

func (g *Logger) logSignalInstalled(sig int) {
	g.l.Info().
		Int("signal", sig).
		Log("asyncio: interruption signal installed")
}

func (g *Logger) logServiceClosed(svc *Service) {
	g.l.Debug().
		Uint64("owner_goroutine", svc.ownerGoroutineID).
		Log("asyncio: service closed")
}
