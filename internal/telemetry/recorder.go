package telemetry

import "sync"

// Report is a single call recorded by Recorder.
type Report struct {
	Level  string
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// that assert a component reports its failures.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Level: "broken", ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Level: "warning", ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Level: "debug", ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Level: "count", ID: id, Count: count})
}

// Reports returns the recorded reports of the given level, an empty level returns all of them.
func (r *Recorder) Reports(level string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, report := range r.reports {
		if level == "" || report.Level == level {
			out = append(out, report)
		}
	}
	return out
}

// IDs returns the ids of the recorded reports of the given level.
func (r *Recorder) IDs(level string) []string {
	reports := r.Reports(level)
	ids := make([]string, len(reports))
	for i, report := range reports {
		ids[i] = report.ID
	}
	return ids
}
