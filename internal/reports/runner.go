// Package reports runs the configured report jobs: generate, wait for the
// export, classify it, normalize it and write the canonical outputs.
package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"icreports/internal/chrono"
	"icreports/internal/telemetry"
	"icreports/lib/download"
	"icreports/lib/eventlog"
	"icreports/lib/osutil"
	"icreports/lib/table"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("icreports.internal.reports")

const (
	report_source_generate = "source.generate"
	report_source_close    = "source.close"
	report_waiter_await    = "waiter.await"
	report_artifact_read   = "artifact.read"
	report_artifact_rename = "artifact.rename"
	report_artifact_remove = "artifact.remove"
	report_table_normalize = "table.normalize"
	report_output_write    = "output.write"
	report_output_upload   = "output.upload"

	report_warning_drop_column_missing = "table.drop-column-missing"
)

// Uploader puts a written output somewhere remote and returns where.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type Options struct {
	Config Config
	Clock  chrono.API
	// Source defaults to ExternalSource.
	Source Source
	Log    eventlog.Logger
	// Uploader may be nil when no report uploads.
	Uploader  Uploader
	Telemetry telemetry.API
}

type Runner struct {
	config   Config
	clock    chrono.API
	source   Source
	log      eventlog.Logger
	uploader Uploader
	tel      telemetry.API
}

func NewRunner(opts Options) Runner {
	source := opts.Source
	if source == nil {
		source = ExternalSource{}
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	log := opts.Log
	if log.IsZero() {
		log = eventlog.NewLogger(nil, opts.Clock, "", tel)
	}
	return Runner{
		config:   opts.Config,
		clock:    opts.Clock,
		source:   source,
		log:      log,
		uploader: opts.Uploader,
		tel:      telemetry.NewScopedAPI("reports", tel),
	}
}

// Wait waits for the report's export using the report's waiter settings.
func (r Runner) Wait(ctx context.Context, report ReportConfig) (download.Result, error) {
	waiter := r.config.WaiterFor(report)
	pattern := r.config.StagingPattern(report)
	return download.Await(ctx, r.clock, download.Request{
		Pattern:     pattern,
		MaxAttempts: waiter.MaxAttempts,
		Interval:    waiter.Interval(),
		OnAttempt: func(a download.Attempt) {
			r.tel.ReportDebug("wait attempt", report.Name, a.Number, a.Found)
			if a.Found || a.Number == waiter.MaxAttempts {
				return
			}
			r.log.Log(ctx, eventlog.Event{
				Report: report.Name, Kind: eventlog.KindWaiting, Level: eventlog.LevelInfo,
				Message: fmt.Sprintf(
					"did not find %s, attempt %d of %d, retrying in %s",
					pattern, a.Number, waiter.MaxAttempts, waiter.Interval(),
				),
				Attempt: a.Number,
			})
		},
	})
}

// NormalizeFile reads the raw export at path and normalizes it with the
// report's options.
func (r Runner) NormalizeFile(ctx context.Context, report ReportConfig, path string) (table.CanonicalTable, error) {
	raw, err := table.ReadFile(path, report.InputFormat())
	if err != nil {
		return table.CanonicalTable{}, err
	}

	opts := report.TableOptions()
	opts.OnMissingColumn = func(column, suggestion string) {
		r.tel.ReportWarning(report_warning_drop_column_missing, report.Name, column, suggestion)
		if suggestion != "" {
			r.log.Warn(ctx, report.Name, eventlog.KindNormalized, "drop column %q not present, closest header is %q", column, suggestion)
		}
	}
	return table.Normalize(ctx, raw, opts)
}

// WriteOutputs writes every configured output of the report and returns their paths.
func (r Runner) WriteOutputs(ctx context.Context, report ReportConfig, t table.CanonicalTable) ([]string, error) {
	err := os.MkdirAll(r.config.OutputDir, 0755)
	if err != nil {
		return nil, err
	}
	err = osutil.EnsureFree(r.config.OutputDir, r.config.minFreeBytes())
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, output := range report.OutputFormats() {
		path := r.config.OutputPath(report, output)
		err := table.WriteFile(ctx, path, t, output)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// rawName is the name the raw export is renamed to, it only differs from
// the report name when that would overwrite one of the outputs.
func (r Runner) rawName(report ReportConfig, artifact download.Artifact) string {
	renamed := filepath.Join(r.config.DownloadDir, report.Name+filepath.Ext(artifact.Path))
	for _, output := range report.OutputFormats() {
		if filepath.Clean(r.config.OutputPath(report, output)) == filepath.Clean(renamed) {
			return report.Name + "_raw"
		}
	}
	return report.Name
}

// emptyEvent describes a discarded export, discardErr is the result of
// deleting it.
func emptyEvent(report, path string, discardErr error) eventlog.Event {
	if discardErr != nil {
		return eventlog.Event{
			Report: report, Kind: eventlog.KindEmpty, Level: eventlog.LevelWarning,
			Message: fmt.Sprintf("%s has no records but could not be deleted: %v", path, discardErr),
			Path:    path,
		}
	}
	return eventlog.Event{
		Report: report, Kind: eventlog.KindEmpty, Level: eventlog.LevelInfo,
		Message: fmt.Sprintf("deleted %s because the table has no records", path),
		Path:    path,
	}
}

// RunReport takes one report from generation to written outputs. Every
// failure is captured in the returned Outcome, nothing is retried here.
func (r Runner) RunReport(ctx context.Context, report ReportConfig) Outcome {
	ctx, span := tracer.Start(ctx, "RunReport")
	defer span.End()
	span.SetAttributes(attribute.String("report", report.Name))

	start := r.clock.Now()
	outcome := r.runReport(ctx, report)
	outcome.Report = report.Name
	outcome.Elapsed = r.clock.Now().Sub(start)

	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, string(outcome.Kind))
	}
	r.log.Info(ctx, report.Name, eventlog.KindFinished, "%s after %s", outcome.Kind, outcome.Elapsed.Round(time.Second))
	return outcome
}

func (r Runner) runReport(ctx context.Context, report ReportConfig) Outcome {
	name := report.Name

	err := r.source.Generate(ctx, report)
	if err != nil {
		r.tel.ReportBroken(report_source_generate, err, name)
		r.log.Error(ctx, name, eventlog.KindGenerationFailed, "report generation failed: %v", err)
		return Outcome{Kind: GenerationFailed, Err: err}
	}
	r.log.Info(ctx, name, eventlog.KindGenerated, "report generation requested")

	pattern := r.config.StagingPattern(report)
	res, err := r.Wait(ctx, report)
	if err != nil {
		r.tel.ReportBroken(report_waiter_await, err, name, pattern)
		r.log.Log(ctx, eventlog.Event{
			Report: name, Kind: eventlog.KindIOError, Level: eventlog.LevelError,
			Message: fmt.Sprintf("waiting for %s failed: %v", pattern, err), Attempt: res.Attempts,
		})
		return Outcome{Kind: IOError, Attempts: res.Attempts, Err: err}
	}
	if res.Status == download.TimedOut {
		r.log.Log(ctx, eventlog.Event{
			Report: name, Kind: eventlog.KindNotFound, Level: eventlog.LevelWarning,
			Message: fmt.Sprintf("no %s found after %d attempts", pattern, res.Attempts), Attempt: res.Attempts,
		})
		return Outcome{Kind: NotFound, Attempts: res.Attempts}
	}

	artifact := res.Artifact
	outcome := Outcome{Attempts: res.Attempts, Artifact: artifact.Path}
	r.log.Log(ctx, eventlog.Event{
		Report: name, Kind: eventlog.KindFound, Level: eventlog.LevelInfo,
		Message: fmt.Sprintf("found %s (%d bytes)", artifact.Path, artifact.Size),
		Path:    artifact.Path, Attempt: res.Attempts,
	})

	freshness := download.CheckFreshness(artifact, report.FreshnessWindow(), r.clock.Now())
	if !freshness.Fresh {
		r.log.Log(ctx, eventlog.Event{
			Report: name, Kind: eventlog.KindStale, Level: eventlog.LevelWarning,
			Message: fmt.Sprintf(
				"%s is %s old, older than %s, not converting it",
				artifact.Path, freshness.Age.Round(time.Second), freshness.Window,
			),
			Path: artifact.Path,
		})
		outcome.Kind = Stale
		return outcome
	}

	meaningful, err := download.Classify(artifact.Path, report.InputFormat(), report.DataStart())
	if err != nil {
		r.tel.ReportBroken(report_artifact_read, err, name, artifact.Path)
		r.log.Error(ctx, name, eventlog.KindIOError, "reading %s failed: %v", artifact.Path, err)
		outcome.Kind = IOError
		outcome.Err = err
		return outcome
	}
	if !meaningful {
		err = download.Discard(artifact)
		if err != nil {
			r.tel.ReportWarning(report_artifact_remove, err, name, artifact.Path)
		} else {
			outcome.Artifact = ""
		}
		r.log.Log(ctx, emptyEvent(name, artifact.Path, err))
		outcome.Kind = Empty
		return outcome
	}

	moved, err := download.Rename(artifact, r.config.DownloadDir, r.rawName(report, artifact))
	if err != nil {
		r.tel.ReportBroken(report_artifact_rename, err, name, artifact.Path)
		r.log.Error(ctx, name, eventlog.KindIOError, "renaming %s failed: %v", artifact.Path, err)
		outcome.Kind = IOError
		outcome.Err = err
		return outcome
	}
	outcome.Artifact = moved.Path
	r.log.Log(ctx, eventlog.Event{
		Report: name, Kind: eventlog.KindRenamed, Level: eventlog.LevelInfo,
		Message: fmt.Sprintf("renamed %s to %s", filepath.Base(artifact.Path), filepath.Base(moved.Path)),
		Path:    moved.Path,
	})

	canonical, err := r.NormalizeFile(ctx, report, moved.Path)
	if errors.Is(err, table.ErrFormat) {
		r.log.Log(ctx, eventlog.Event{
			Report: name, Kind: eventlog.KindFormatError, Level: eventlog.LevelError,
			Message: fmt.Sprintf("%v, raw export kept at %s", err, moved.Path),
			Path:    moved.Path,
		})
		outcome.Kind = FormatError
		outcome.Err = err
		return outcome
	}
	if err != nil {
		r.tel.ReportBroken(report_table_normalize, err, name, moved.Path)
		r.log.Error(ctx, name, eventlog.KindIOError, "reading %s failed: %v", moved.Path, err)
		outcome.Kind = IOError
		outcome.Err = err
		return outcome
	}
	outcome.Rows = canonical.Len()
	r.log.Info(ctx, name, eventlog.KindNormalized, "normalized %d rows and %d columns", canonical.Len(), len(canonical.Columns))

	outputs, err := r.WriteOutputs(ctx, report, canonical)
	outcome.Outputs = outputs
	if err != nil {
		r.tel.ReportBroken(report_output_write, err, name)
		r.log.Error(ctx, name, eventlog.KindIOError, "writing outputs failed: %v", err)
		outcome.Kind = IOError
		outcome.Err = err
		return outcome
	}
	for _, path := range outputs {
		r.log.Log(ctx, eventlog.Event{
			Report: name, Kind: eventlog.KindWritten, Level: eventlog.LevelInfo,
			Message: fmt.Sprintf("updated file saved to %s", path), Path: path,
		})
	}

	if report.Upload && r.uploader != nil {
		for _, path := range outputs {
			target, err := r.uploader.Upload(ctx, path)
			if err != nil {
				r.tel.ReportBroken(report_output_upload, err, name, path)
				r.log.Error(ctx, name, eventlog.KindIOError, "uploading %s failed: %v", path, err)
				outcome.Kind = IOError
				outcome.Err = err
				return outcome
			}
			outcome.Uploaded = append(outcome.Uploaded, target)
			r.log.Log(ctx, eventlog.Event{
				Report: name, Kind: eventlog.KindUploaded, Level: eventlog.LevelInfo,
				Message: fmt.Sprintf("uploaded %s to %s", filepath.Base(path), target), Path: path,
			})
		}
	}

	outcome.Kind = Normalized
	return outcome
}

// RunAll runs every configured report in order. A failing report does not
// stop the batch, a cancelled context does. The source is closed on every
// return path.
func (r Runner) RunAll(ctx context.Context) Summary {
	ctx, span := tracer.Start(ctx, "RunAll")
	defer span.End()

	defer func() {
		err := r.source.Close()
		if err != nil {
			r.tel.ReportWarning(report_source_close, err)
		}
	}()

	summary := Summary{RunID: r.log.RunID(), Started: r.clock.Now()}
	r.log.Info(ctx, "", eventlog.KindStarted, "starting %d reports", len(r.config.Reports))

	for _, report := range r.config.Reports {
		if err := ctx.Err(); err != nil {
			r.log.Error(ctx, report.Name, eventlog.KindIOError, "skipped: %v", err)
			summary.Outcomes = append(summary.Outcomes, Outcome{Report: report.Name, Kind: IOError, Err: err})
			continue
		}
		summary.Outcomes = append(summary.Outcomes, r.RunReport(ctx, report))
	}

	summary.Elapsed = r.clock.Now().Sub(summary.Started)
	counts := summary.Counts()
	for _, kind := range []OutcomeKind{Normalized, NotFound, Stale, Empty, FormatError, IOError, GenerationFailed} {
		r.tel.ReportCount("outcome."+string(kind), int64(counts[kind]))
	}

	level := eventlog.LevelInfo
	if !summary.OK() {
		level = eventlog.LevelWarning
		span.SetStatus(codes.Error, "not every report was normalized")
	}
	r.log.Log(ctx, eventlog.Event{
		Kind: eventlog.KindFinished, Level: level,
		Message: fmt.Sprintf(
			"finished in %s, %d of %d reports normalized",
			summary.Elapsed.Round(time.Second), counts[Normalized], len(summary.Outcomes),
		),
	})
	return summary
}
