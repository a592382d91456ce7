package reports

import (
	"context"
	"fmt"
	"log/slog"

	"icreports/internal/chrono"
	"icreports/internal/db"
	"icreports/internal/telemetry"
	"icreports/lib/eventlog"
	"icreports/lib/notify"
	"icreports/lib/restyutil"
	"icreports/lib/upload"

	"github.com/mazen160/go-random"
)

// NewRunID returns a short random id that tags every event of a batch.
func NewRunID() (string, error) {
	return random.String(8)
}

// OpenEventDB opens the configured event database, it returns false if none is configured.
func OpenEventDB(ctx context.Context, config EventLogConfig) (eventlog.DBSink, bool, error) {
	if !config.Database.Enabled() {
		return eventlog.DBSink{}, false, nil
	}
	database, err := config.Database.OpenDB(ctx, db.Schema)
	if err != nil {
		return eventlog.DBSink{}, false, fmt.Errorf("open event database: %w", err)
	}
	return eventlog.NewDBSink(database), true, nil
}

// OpenSinks opens every configured event sink, it returns nil if there are none.
func OpenSinks(ctx context.Context, config EventLogConfig, output restyutil.InstrumentOutput) (eventlog.Sink, error) {
	var sinks eventlog.Multi
	if config.File != "" {
		file, err := eventlog.OpenFile(config.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, file)
	}

	dbSink, ok, err := OpenEventDB(ctx, config)
	if err != nil {
		sinks.Close()
		return nil, err
	}
	if ok {
		sinks = append(sinks, dbSink)
	}

	if config.Sheet.Enabled() {
		sinks = append(sinks, eventlog.NewSheetSink(config.Sheet, output))
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

func debugOutput(config Config) restyutil.InstrumentOutput {
	if config.DebugDir == "" {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(config.DebugDir)
	if err != nil {
		slog.Warn("failed to create http debug dir", "dir", config.DebugDir, "err", err)
		return nil
	}
	return output
}

// New wires a Runner from configuration: the clock in the configured
// timezone, a fresh run id, the event sinks, the report source and the uploader.
func New(ctx context.Context, config Config, tel telemetry.API) (Runner, error) {
	clock, err := chrono.NewStandardImpl(config.Timezone)
	if err != nil {
		return Runner{}, err
	}
	runID, err := NewRunID()
	if err != nil {
		return Runner{}, fmt.Errorf("generate run id: %w", err)
	}
	source, err := NewSource(config.Generator)
	if err != nil {
		return Runner{}, err
	}

	output := debugOutput(config)
	sink, err := OpenSinks(ctx, config.EventLog, output)
	if err != nil {
		return Runner{}, err
	}

	var uploader Uploader
	if config.Upload.Enabled() {
		uploader = upload.NewClient(config.Upload, output)
	}

	return NewRunner(Options{
		Config:    config,
		Clock:     clock,
		Source:    source,
		Log:       eventlog.NewLogger(sink, clock, runID, tel),
		Uploader:  uploader,
		Telemetry: tel,
	}), nil
}

// Notify emails the summary if smtp is configured and a report failed.
func (r Runner) Notify(ctx context.Context, summary Summary) error {
	if !r.config.Smtp.Enabled() || summary.OK() {
		return nil
	}
	return notify.NewMailer(r.config.Smtp).Send(ctx, summary.Notification())
}

// Close closes the event sinks.
func (r Runner) Close() error {
	return r.log.Close()
}

func (r Runner) Config() Config {
	return r.config
}

func (r Runner) Clock() chrono.API {
	return r.clock
}
