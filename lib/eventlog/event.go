// Package eventlog records one line per report state transition to any
// number of append-only sinks.
package eventlog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const TimeLayout = "2006-01-02 15:04:05"

type Kind string

const (
	KindStarted          Kind = "started"
	KindGenerated        Kind = "generated"
	KindGenerationFailed Kind = "generation_failed"
	KindNotFound         Kind = "not_found"
	KindWaiting          Kind = "waiting"
	KindFound            Kind = "found"
	KindStale            Kind = "stale"
	KindEmpty            Kind = "empty"
	KindRenamed          Kind = "renamed"
	KindNormalized       Kind = "normalized"
	KindWritten          Kind = "written"
	KindUploaded         Kind = "uploaded"
	KindFormatError      Kind = "format_error"
	KindIOError          Kind = "io_error"
	KindFinished         Kind = "finished"
)

type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

type Event struct {
	Time    time.Time
	RunID   string
	Report  string
	Kind    Kind
	Level   Level
	Message string
	Path    string
	Attempt int
}

// Line formats the event as a single tab separated line without a trailing newline.
func (e Event) Line() string {
	report := e.Report
	if report == "" {
		report = "-"
	}
	message := strings.ReplaceAll(e.Message, "\n", " ")
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s", e.Time.Format(TimeLayout), e.Level, report, e.Kind, message)
}

// Sink is an append-only destination for events.
type Sink interface {
	Append(ctx context.Context, event Event) error
	Close() error
}
