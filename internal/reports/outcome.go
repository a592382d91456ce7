package reports

import (
	"fmt"
	"time"

	"icreports/lib/notify"
)

type OutcomeKind string

const (
	Normalized       OutcomeKind = "normalized"
	NotFound         OutcomeKind = "not_found"
	Stale            OutcomeKind = "stale"
	Empty            OutcomeKind = "empty"
	FormatError      OutcomeKind = "format_error"
	IOError          OutcomeKind = "io_error"
	GenerationFailed OutcomeKind = "generation_failed"
)

// Outcome is the result of one report. Exactly one Kind applies, Err is
// set for FormatError, IOError and GenerationFailed.
type Outcome struct {
	Report   string
	Kind     OutcomeKind
	Attempts int
	// Artifact is the raw export as it was left on disk, empty if there is none.
	Artifact string
	Outputs  []string
	Uploaded []string
	Rows     int
	Elapsed  time.Duration
	Err      error
}

func (o Outcome) OK() bool {
	return o.Kind == Normalized
}

// Detail is a one line human description of the outcome.
func (o Outcome) Detail() string {
	switch o.Kind {
	case Normalized:
		return fmt.Sprintf("%d rows written to %d file(s)", o.Rows, len(o.Outputs))
	case NotFound:
		return fmt.Sprintf("no export after %d attempts", o.Attempts)
	case Stale:
		return fmt.Sprintf("%s is older than the freshness window", o.Artifact)
	case Empty:
		return "the export has no records"
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return string(o.Kind)
	}
}

type Summary struct {
	RunID    string
	Started  time.Time
	Elapsed  time.Duration
	Outcomes []Outcome
}

// OK is true only if every report was normalized.
func (s Summary) OK() bool {
	for _, o := range s.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

func (s Summary) Counts() map[OutcomeKind]int {
	counts := map[OutcomeKind]int{}
	for _, o := range s.Outcomes {
		counts[o.Kind]++
	}
	return counts
}

func (s Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Notification converts the summary into the email summary.
func (s Summary) Notification() notify.Summary {
	lines := make([]notify.Line, len(s.Outcomes))
	for i, o := range s.Outcomes {
		lines[i] = notify.Line{Report: o.Report, Status: string(o.Kind), Detail: o.Detail()}
	}
	return notify.Summary{
		RunID:   s.RunID,
		Elapsed: s.Elapsed.Round(time.Second).String(),
		Lines:   lines,
	}
}
