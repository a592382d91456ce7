package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("icreports.process")
var cpuGauge, _ = meter.Float64Gauge("process.cpu_percent")
var rssGauge, _ = meter.Int64Gauge("process.rss_mb")
var goroutineGauge, _ = meter.Int64Gauge("process.goroutines")

// RecordProcessStats samples the cpu usage and resident memory of the current
// process every interval until ctx is done. The returned function stops
// sampling early.
func RecordProcessStats(ctx context.Context, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Debug("process stats unavailable", "err", err)
		return cancel
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cpu, err := proc.CPUPercentWithContext(ctx)
				if err == nil {
					cpuGauge.Record(ctx, cpu)
				} else {
					slog.Debug("failed to read cpu usage", "err", err)
				}
				mem, err := proc.MemoryInfoWithContext(ctx)
				if err == nil {
					rssGauge.Record(ctx, int64(mem.RSS/1_000_000))
				}
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}
