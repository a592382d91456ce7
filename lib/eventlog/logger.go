package eventlog

import (
	"context"
	"fmt"
	"log/slog"

	"icreports/internal/chrono"
	"icreports/internal/telemetry"
)

const (
	report_sink_append = "sink.append"
)

// Logger stamps events with the time and run id, mirrors them to slog and
// appends them to a sink. A sink failure is reported and otherwise ignored,
// the event log never fails a report.
type Logger struct {
	sink  Sink
	clock chrono.API
	runID string
	tel   telemetry.API
}

// NewLogger creates a Logger, sink may be nil.
func NewLogger(sink Sink, clock chrono.API, runID string, tel telemetry.API) Logger {
	return Logger{sink: sink, clock: clock, runID: runID, tel: tel}
}

// IsZero reports whether the Logger was never constructed.
func (l Logger) IsZero() bool {
	return l.clock == nil
}

func (l Logger) RunID() string {
	return l.runID
}

func (l Logger) Log(ctx context.Context, event Event) {
	if event.Time.IsZero() {
		event.Time = l.clock.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	if event.Level == "" {
		event.Level = LevelInfo
	}

	level := slog.LevelInfo
	switch event.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{"run_id", event.RunID, "kind", string(event.Kind)}
	if event.Report != "" {
		attrs = append(attrs, "report", event.Report)
	}
	if event.Path != "" {
		attrs = append(attrs, "path", event.Path)
	}
	if event.Attempt > 0 {
		attrs = append(attrs, "attempt", event.Attempt)
	}
	slog.Log(ctx, level, event.Message, attrs...)

	if l.sink == nil {
		return
	}
	err := l.sink.Append(ctx, event)
	if err != nil {
		l.tel.ReportWarning(report_sink_append, err, event.Kind)
	}
}

func (l Logger) Info(ctx context.Context, report string, kind Kind, format string, args ...any) {
	l.Log(ctx, Event{Report: report, Kind: kind, Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

func (l Logger) Warn(ctx context.Context, report string, kind Kind, format string, args ...any) {
	l.Log(ctx, Event{Report: report, Kind: kind, Level: LevelWarning, Message: fmt.Sprintf(format, args...)})
}

func (l Logger) Error(ctx context.Context, report string, kind Kind, format string, args ...any) {
	l.Log(ctx, Event{Report: report, Kind: kind, Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

func (l Logger) Close() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}
