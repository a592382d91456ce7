package chrono

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually driven clock for tests. Sleep never blocks, it moves
// the clock forward by the requested duration instead.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// OnSleep, if set, is called after every Sleep with the advanced time.
	OnSleep func(now time.Time)
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	now := f.now
	hook := f.OnSleep
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return nil
}

func (f *Fake) Location() *time.Location {
	return f.Now().Location()
}

// Advance moves the clock forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Sleeps returns every duration passed to Sleep so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Elapsed returns the sum of every sleep so far.
func (f *Fake) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range f.Sleeps() {
		total += d
	}
	return total
}
