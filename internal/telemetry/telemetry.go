// Package telemetry fans lifecycle events out to the history database,
// MQTT and InfluxDB.
//
// Every sink is optional and best-effort: a failing sink is logged and
// never changes the outcome or exit code of the command that produced
// the event.
package telemetry

import (
	"context"
	"errors"
	"io"
	"time"
)

// Event is one completed lifecycle operation.
type Event struct {
	Action   string
	Device   string
	ExitCode int
	Err      error
	Details  map[string]any
	Started  time.Time
	Duration time.Duration
}

// ErrorText returns the error message or "" when the operation succeeded.
func (e Event) ErrorText() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Sink receives lifecycle events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Logger is the subset of slog.Logger used here.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

type namedSink struct {
	name string
	sink Sink
}

// Fanout delivers each event to every registered sink.
type Fanout struct {
	sinks   []namedSink
	closers []io.Closer
	logger  Logger
}

// NewFanout returns an empty Fanout. A Fanout with no sinks discards events.
func NewFanout() *Fanout {
	return &Fanout{logger: noopLogger{}}
}

// SetLogger sets the logger used for sink failures.
func (f *Fanout) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// Add registers a sink under name. If the sink implements io.Closer it is
// closed by Close.
func (f *Fanout) Add(name string, sink Sink) {
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	if c, ok := sink.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Record delivers ev to every sink. Failures are logged, not returned.
func (f *Fanout) Record(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	if ev.Started.IsZero() {
		ev.Started = time.Now().Add(-ev.Duration)
	}
	for _, s := range f.sinks {
		if err := s.sink.Record(ctx, ev); err != nil {
			f.logger.Warn("recording event failed",
				"sink", s.name,
				"action", ev.Action,
				"error", err,
			)
			continue
		}
		f.logger.Debug("event recorded", "sink", s.name, "action", ev.Action)
	}
}

// Close closes every sink that holds a connection.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
