package eventlog

import (
	"context"
	"errors"
)

// Multi appends every event to each of its sinks, a failing sink does not
// stop the others.
type Multi []Sink

func (m Multi) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		err := sink.Append(ctx, event)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		err := sink.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
