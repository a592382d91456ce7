package eventlog

import (
	"context"
	"database/sql"
	"time"

	"icreports/internal/db"

	"github.com/google/uuid"
)

// DBSink stores events in a sqlite or libsql database with the schema in db.Schema.
type DBSink struct {
	db  *sql.DB
	qry *db.Queries
}

func NewDBSink(database *sql.DB) DBSink {
	return DBSink{
		db:  database,
		qry: db.New(database),
	}
}

func (s DBSink) Append(ctx context.Context, event Event) error {
	return s.qry.CreateEvent(ctx, db.CreateEventParams{
		ID:      uuid.NewString(),
		Time:    event.Time.UnixMilli(),
		RunID:   event.RunID,
		Report:  event.Report,
		Kind:    string(event.Kind),
		Level:   string(event.Level),
		Message: event.Message,
		Path:    event.Path,
		Attempt: int64(event.Attempt),
	})
}

func fromRow(row db.Event, loc *time.Location) Event {
	return Event{
		Time:    time.UnixMilli(row.Time).In(loc),
		RunID:   row.RunID,
		Report:  row.Report,
		Kind:    Kind(row.Kind),
		Level:   Level(row.Level),
		Message: row.Message,
		Path:    row.Path,
		Attempt: int(row.Attempt),
	}
}

func fromRows(rows []db.Event, loc *time.Location) []Event {
	out := make([]Event, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row, loc)
	}
	return out
}

// Recent returns up to limit events, newest first, with times in loc.
func (s DBSink) Recent(ctx context.Context, limit int, loc *time.Location) ([]Event, error) {
	rows, err := s.qry.GetRecentEvents(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	return fromRows(rows, loc), nil
}

// Run returns every event of a run in the order they were recorded.
func (s DBSink) Run(ctx context.Context, runID string, loc *time.Location) ([]Event, error) {
	rows, err := s.qry.GetRunEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	return fromRows(rows, loc), nil
}

// Prune deletes every event recorded before t and returns how many were deleted.
func (s DBSink) Prune(ctx context.Context, before time.Time) (int64, error) {
	return s.qry.DeleteEventsBefore(ctx, before.UnixMilli())
}

func (s DBSink) Close() error {
	return s.db.Close()
}
