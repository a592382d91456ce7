package download

import "time"

type Freshness struct {
	Fresh  bool
	Age    time.Duration
	Window time.Duration
}

// CheckFreshness accepts the artifact iff it was modified at most window
// before now, the boundary is inclusive. A window of zero or less accepts
// anything. An artifact modified after now is fresh.
func CheckFreshness(artifact Artifact, window time.Duration, now time.Time) Freshness {
	age := artifact.Age(now)
	if window <= 0 {
		return Freshness{Fresh: true, Age: age, Window: window}
	}
	return Freshness{Fresh: age <= window, Age: age, Window: window}
}
