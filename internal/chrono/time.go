package chrono

import (
	"context"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the timezone the portal reports its dates in.
const DefaultTimezone = "America/Chicago"

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in the configured location.
	Now() time.Time
	// Sleep blocks for d, it returns early with ctx.Err() if ctx is done first.
	Sleep(ctx context.Context, d time.Duration) error
	// Location returns the location Now is expressed in.
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl is the constructor of StandardImpl, an empty timezone means DefaultTimezone.
func NewStandardImpl(timezone string) (StandardImpl, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}
