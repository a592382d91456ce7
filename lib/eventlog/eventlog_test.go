package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"icreports/internal/chrono"
	"icreports/internal/db"
	"icreports/internal/telemetry"
	configlibsql "icreports/lib/configutil/libsql"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.August, 19, 7, 45, 3, 0, time.UTC)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (m *memorySink) Append(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestEventLine(t *testing.T) {
	cases := []struct {
		event    Event
		expected string
	}{
		{
			event:    Event{Time: now, Report: "student_data", Kind: KindEmpty, Level: LevelInfo, Message: "deleted extract.html, the table has no records"},
			expected: "2024-08-19 07:45:03\tINFO\tstudent_data\tempty\tdeleted extract.html, the table has no records",
		},
		{
			event:    Event{Time: now, Kind: KindStarted, Level: LevelInfo, Message: "starting\nbatch"},
			expected: "2024-08-19 07:45:03\tINFO\t-\tstarted\tstarting batch",
		},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, test.event.Line())
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "icreports.log")
	sink, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), Event{Time: now, Kind: KindStarted, Level: LevelInfo, Message: "first"}))
	require.NoError(t, sink.Close())

	sink, err = OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), Event{Time: now, Report: "ell", Kind: KindNotFound, Level: LevelWarning, Message: "second"}))
	require.NoError(t, sink.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(contents), "\n"), "\n")
	require.Equal(t, []string{
		"2024-08-19 07:45:03\tINFO\t-\tstarted\tfirst",
		"2024-08-19 07:45:03\tWARNING\tell\tnot_found\tsecond",
	}, lines)
}

func TestDBSink(t *testing.T) {
	ctx := context.Background()
	database, err := configlibsql.Struct{File: ":memory:"}.OpenDB(ctx, db.Schema)
	require.NoError(t, err)
	sink := NewDBSink(database)
	defer sink.Close()

	events := []Event{
		{Time: now, RunID: "run1", Report: "ada_adm", Kind: KindFound, Level: LevelInfo, Message: "found", Path: "/dl/ADM_ADA_Detail_Report.csv", Attempt: 2},
		{Time: now.Add(time.Second), RunID: "run1", Report: "ada_adm", Kind: KindNormalized, Level: LevelInfo, Message: "normalized"},
		{Time: now.Add(2 * time.Second), RunID: "run2", Report: "ell", Kind: KindStale, Level: LevelWarning, Message: "stale"},
	}
	for _, e := range events {
		require.NoError(t, sink.Append(ctx, e))
	}

	recent, err := sink.Recent(ctx, 2, time.UTC)
	require.NoError(t, err)
	if diff := cmp.Diff([]Event{events[2], events[1]}, recent); diff != "" {
		t.Fatal(diff)
	}

	run, err := sink.Run(ctx, "run1", time.UTC)
	require.NoError(t, err)
	if diff := cmp.Diff(events[:2], run); diff != "" {
		t.Fatal(diff)
	}

	deleted, err := sink.Prune(ctx, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	recent, err = sink.Recent(ctx, 10, time.UTC)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestSheetSink(t *testing.T) {
	var got appendRowRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSheetSink(SheetConfig{
		Url:         server.URL + "/append",
		Token:       "sheet-token",
		Spreadsheet: "ReportLogs",
		Worksheet:   "ic_base_script",
	}, nil)
	err := sink.Append(context.Background(), Event{
		Time: now, Report: "student_data", Kind: KindRenamed, Level: LevelInfo,
		Message: "renamed extract.html to student_data.html",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer sheet-token", auth)

	expected := appendRowRequest{
		Spreadsheet: "ReportLogs",
		Worksheet:   "ic_base_script",
		Values:      []string{"2024-08-19 07:45:03", "INFO: student_data: renamed extract.html to student_data.html"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestSheetSinkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sink := NewSheetSink(SheetConfig{Url: server.URL}, nil)
	err := sink.Append(context.Background(), Event{Time: now, Kind: KindStarted, Level: LevelInfo})
	require.ErrorContains(t, err, "403")
}

func TestMulti(t *testing.T) {
	good := &memorySink{}
	bad := &memorySink{err: errors.New("quota exceeded")}
	multi := Multi{bad, good}

	err := multi.Append(context.Background(), Event{Kind: KindStarted})
	require.ErrorContains(t, err, "quota exceeded")
	require.Len(t, good.events, 1)

	require.NoError(t, multi.Close())
	require.True(t, good.closed)
	require.True(t, bad.closed)
}

func TestLogger(t *testing.T) {
	sink := &memorySink{}
	clock := chrono.NewFake(now)
	recorder := &telemetry.Recorder{}
	logger := NewLogger(sink, clock, "k3j9x0qa", recorder)

	logger.Info(context.Background(), "ell", KindFound, "found %s after %d attempts", "extract.html", 3)
	logger.Log(context.Background(), Event{Report: "ell", Kind: KindStale, Level: LevelWarning, Message: "stale", Attempt: 1})

	expected := []Event{
		{Time: now, RunID: "k3j9x0qa", Report: "ell", Kind: KindFound, Level: LevelInfo, Message: "found extract.html after 3 attempts"},
		{Time: now, RunID: "k3j9x0qa", Report: "ell", Kind: KindStale, Level: LevelWarning, Message: "stale", Attempt: 1},
	}
	if diff := cmp.Diff(expected, sink.events); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, recorder.Reports(""))

	sink.err = errors.New("disk full")
	logger.Error(context.Background(), "ell", KindIOError, "write failed")
	require.Equal(t, []string{report_sink_append}, recorder.IDs("warning"))

	require.NoError(t, logger.Close())
	require.True(t, sink.closed)
}

func TestLoggerWithoutSink(t *testing.T) {
	logger := NewLogger(nil, chrono.NewFake(now), "run", &telemetry.Recorder{})
	logger.Warn(context.Background(), "", KindFinished, "done")
	require.NoError(t, logger.Close())
}
