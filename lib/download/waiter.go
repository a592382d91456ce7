package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"icreports/internal/chrono"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("icreports.lib.download")

var ErrInvalidRequest = errors.New("invalid wait request")

type Status int

const (
	// TimedOut means every attempt was used without the artifact appearing.
	// It is a result, not an error, the caller decides what to do with it.
	TimedOut Status = iota
	Found
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Attempt describes a single existence check.
type Attempt struct {
	Number int
	Time   time.Time
	Found  bool
}

type Request struct {
	// Pattern is a file path or a filepath.Match glob.
	Pattern     string
	MaxAttempts int
	Interval    time.Duration
	// OnAttempt, if set, is called after every check.
	OnAttempt func(Attempt)
}

type Result struct {
	Status   Status
	Artifact Artifact
	// Attempts is the number of checks that were made.
	Attempts int
}

func (r Request) validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidRequest)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidRequest, r.MaxAttempts)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: negative interval %s", ErrInvalidRequest, r.Interval)
	}
	return nil
}

// Await checks for the artifact immediately and then once every interval
// until it exists or MaxAttempts checks have been made. There is no sleep
// after the last check so a wait that times out takes (MaxAttempts-1)*Interval.
//
// A cancelled context stops the wait between attempts and returns ctx.Err().
func Await(ctx context.Context, clock chrono.API, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "Await")
	defer span.End()
	span.SetAttributes(
		attribute.String("pattern", req.Pattern),
		attribute.Int("max_attempts", req.MaxAttempts),
		attribute.String("interval", req.Interval.String()),
	)

	err := req.validate()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return Result{}, err
	}

	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		artifact, found, err := Lookup(req.Pattern)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
			return Result{Status: TimedOut, Attempts: attempt}, err
		}
		if req.OnAttempt != nil {
			req.OnAttempt(Attempt{Number: attempt, Time: clock.Now(), Found: found})
		}
		if found {
			span.SetAttributes(attribute.Int("attempts", attempt))
			slog.DebugContext(ctx, "artifact found", "path", artifact.Path, "attempt", attempt)
			return Result{Status: Found, Artifact: artifact, Attempts: attempt}, nil
		}
		if attempt == req.MaxAttempts {
			break
		}

		slog.DebugContext(ctx, "artifact not found yet", "pattern", req.Pattern, "attempt", attempt, "retry_in", req.Interval)
		err = clock.Sleep(ctx, req.Interval)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "wait cancelled")
			return Result{Status: TimedOut, Attempts: attempt}, err
		}
	}

	span.SetAttributes(attribute.Int("attempts", req.MaxAttempts))
	return Result{Status: TimedOut, Attempts: req.MaxAttempts}, nil
}
