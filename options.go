// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncio

// options holds construction-time configuration for a Service. New itself
// takes no arguments in the operation it models, but the process-global
// signal installation and worker-pool sizing need somewhere to live, hence
// the functional-options pattern below.
type options struct {
	workerPoolSize int
	disableKqueues bool
	signal         int
	metricsEnabled bool
	logger         *Logger
}

// Option configures a Service constructed via New.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithWorkerPoolSize sets the number of goroutines the POSIX-AIO backend
// uses to perform blocking pread/pwrite. Ignored on Windows. Defaults to
// defaultWorkerPoolSize.
func WithWorkerPoolSize(n int) Option {
	return optionFunc(func(o *options) { o.workerPoolSize = n })
}

// WithSignal sets the POSIX interruption signal New installs when no
// process-wide handler is installed yet; if one already is, New keeps it and
// this option has no effect (use SetInterruptionSignal to replace it).
// Ignored on Windows. 0 installs no handler; -1 chooses the platform default
// signal (see defaultRTSignal).
func WithSignal(sig int) Option {
	return optionFunc(func(o *options) { o.signal = sig })
}

// WithDisableKqueues constructs the Service with the POSIX worker-pool
// backend instead of the default kqueue backend on Darwin. Ignored on
// Linux and Windows, where it is already the (only) behavior.
func WithDisableKqueues() Option {
	return optionFunc(func(o *options) { o.disableKqueues = true })
}

// WithMetrics enables latency/queue-depth metrics collection, retrievable
// via Service.Metrics.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *options) { o.metricsEnabled = enabled })
}

// WithLogger overrides the ambient structured logger used for diagnostic
// events (service creation and close, post enqueue, completion dispatch,
// backend wait errors, signal installation). Defaults to a no-op logger.
func WithLogger(l *Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}

func resolveOptions(opts []Option) *options {
	cfg := &options{
		workerPoolSize: defaultWorkerPoolSize,
		signal:         -1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger()
	}
	return cfg
}
