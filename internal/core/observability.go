package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Logger receives operational log lines from the garden services.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NoopLogger discards all log lines. It is the default for services
// constructed without WithLogger.
type NoopLogger struct{}

// Debugf implements Logger.
func (NoopLogger) Debugf(string, ...any) {}

// Warnf implements Logger.
func (NoopLogger) Warnf(string, ...any) {}

// Errorf implements Logger.
func (NoopLogger) Errorf(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the service Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

// Debugf implements Logger.
func (s SlogLogger) Debugf(format string, args ...any) {
	s.base().Debug(fmt.Sprintf(format, args...))
}

// Warnf implements Logger.
func (s SlogLogger) Warnf(format string, args ...any) {
	s.base().Warn(fmt.Sprintf(format, args...))
}

// Errorf implements Logger.
func (s SlogLogger) Errorf(format string, args ...any) {
	s.base().Error(fmt.Sprintf(format, args...))
}

func (s SlogLogger) base() *slog.Logger {
	if s.L != nil {
		return s.L
	}
	return slog.Default()
}

// MetricsRecorder observes the outcome of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan terminates a single traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// observability bundles the pluggable instruments shared by both services.
// Multiple metrics recorders fan out so a deployment can feed a scrape
// endpoint and /debug/vars from the same operations.
type observability struct {
	logger  Logger
	metrics []MetricsRecorder
	tracer  Tracer
	clock   Clock
}

func defaultObservability() observability {
	return observability{logger: NoopLogger{}}
}

// Option customizes service construction.
type Option func(*observability)

// WithLogger installs a logger; nil restores the no-op default.
func WithLogger(logger Logger) Option {
	return func(o *observability) {
		if logger == nil {
			logger = NoopLogger{}
		}
		o.logger = logger
	}
}

// WithMetrics adds a metrics recorder. Repeating the option fans outcomes
// out to every added recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *observability) {
		if recorder != nil {
			o.metrics = append(o.metrics, recorder)
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *observability) { o.tracer = tracer }
}

// WithClock overrides the time source used by read-only queries. The
// transactional time source always belongs to the store.
func WithClock(clock Clock) Option {
	return func(o *observability) { o.clock = clock }
}

// instrument wraps an operation with tracing, metrics, and logging. The
// returned func must be called with the operation's final error.
func (o observability) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	started := time.Now()
	var span TraceSpan
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, operation)
	}
	return ctx, func(err error) {
		duration := time.Since(started)
		if span != nil {
			span.End(err)
		}
		for _, m := range o.metrics {
			m.Observe(ctx, operation, err == nil, duration)
		}
		if err != nil {
			o.logger.Warnf("%s failed: %v", operation, err)
			return
		}
		o.logger.Debugf("%s completed in %s", operation, duration)
	}
}
