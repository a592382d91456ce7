package reports

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"icreports/internal/chrono"
	"icreports/lib/configutil"
	configlibsql "icreports/lib/configutil/libsql"
	"icreports/lib/eventlog"
	"icreports/lib/notify"
	"icreports/lib/table"
	"icreports/lib/upload"
)

const (
	DefaultMaxAttempts     = 5
	DefaultIntervalSeconds = 300
	DefaultMinFreeBytes    = 10 << 20
)

// PortalConfig is only read by the external report generator.
type PortalConfig struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Url        string `json:"url"`
	ReportsUrl string `json:"reports_url"`
}

type WaiterConfig struct {
	MaxAttempts int `json:"max_attempts"`
	// IntervalSeconds is the pause between polls, nil means inherited
	// (DefaultIntervalSeconds at the top level) and 0 polls back to back.
	IntervalSeconds *float64 `json:"interval_seconds"`
}

// Seconds returns a pointer to v, for filling in IntervalSeconds.
func Seconds(v float64) *float64 {
	return &v
}

func (w WaiterConfig) Interval() time.Duration {
	seconds := float64(DefaultIntervalSeconds)
	if w.IntervalSeconds != nil {
		seconds = *w.IntervalSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

type AggregateConfig struct {
	Column   string `json:"column"`
	Sentinel string `json:"sentinel"`
}

type ReportConfig struct {
	Name    string `json:"name"`
	Locator string `json:"locator"`
	Format  string `json:"format"`
	// StagingFile is the file name or glob, relative to the download dir,
	// the export is saved under before it is renamed to the report name.
	StagingFile            string          `json:"staging_file"`
	FreshnessWindowSeconds float64         `json:"freshness_window_seconds"`
	HeaderRow              int             `json:"header_row"`
	SkipAfterHeader        int             `json:"skip_after_header"`
	DropColumns            []string        `json:"drop_columns"`
	Aggregate              AggregateConfig `json:"aggregate"`
	Outputs                []string        `json:"outputs"`
	Upload                 bool            `json:"upload"`
	Waiter                 *WaiterConfig   `json:"waiter"`
}

func (r ReportConfig) FreshnessWindow() time.Duration {
	return time.Duration(r.FreshnessWindowSeconds * float64(time.Second))
}

func (r ReportConfig) InputFormat() table.Format {
	f, _ := table.ParseFormat(r.Format)
	return f
}

func (r ReportConfig) OutputFormats() []table.Output {
	out := make([]table.Output, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		parsed, err := table.ParseOutput(o)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// DataStart is the index of the first raw row that can hold a record.
func (r ReportConfig) DataStart() int {
	return r.HeaderRow + 1 + r.SkipAfterHeader
}

// TableOptions are the normalize options of the report.
func (r ReportConfig) TableOptions() table.Options {
	return table.Options{
		HeaderRow:       r.HeaderRow,
		SkipAfterHeader: r.SkipAfterHeader,
		DropColumns:     r.DropColumns,
		Aggregate: table.Aggregate{
			Column:   r.Aggregate.Column,
			Sentinel: r.Aggregate.Sentinel,
		},
	}
}

type EventLogConfig struct {
	File     string               `json:"file"`
	Database configlibsql.Struct  `json:"database"`
	Sheet    eventlog.SheetConfig `json:"sheet"`
}

type GeneratorConfig struct {
	// Command is run once per report, "{report}" and "{locator}" are
	// substituted in every argument.
	Command        []string `json:"command"`
	TimeoutSeconds float64  `json:"timeout_seconds"`
}

type Config struct {
	Portal      PortalConfig `json:"portal"`
	DownloadDir string       `json:"download_dir"`
	OutputDir   string       `json:"output_dir"`
	Timezone    string       `json:"timezone"`
	Waiter      WaiterConfig `json:"waiter"`
	// MinFreeBytes is the free space required before writing outputs,
	// nil means DefaultMinFreeBytes and 0 disables the check.
	MinFreeBytes *uint64           `json:"min_free_bytes"`
	Reports      []ReportConfig    `json:"reports"`
	EventLog     EventLogConfig    `json:"event_log"`
	Upload       upload.Config     `json:"upload"`
	Smtp         notify.SmtpConfig `json:"smtp"`
	Generator    GeneratorConfig   `json:"generator"`
	// DebugDir, if set, receives a dump of every HTTP exchange while debug logging is on.
	DebugDir string `json:"debug_dir"`
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = c.DownloadDir
	}
	if c.Timezone == "" {
		c.Timezone = chrono.DefaultTimezone
	}
	if c.Waiter.MaxAttempts == 0 {
		c.Waiter.MaxAttempts = DefaultMaxAttempts
	}
	if c.Waiter.IntervalSeconds == nil {
		c.Waiter.IntervalSeconds = Seconds(DefaultIntervalSeconds)
	}
	if c.MinFreeBytes == nil {
		min := uint64(DefaultMinFreeBytes)
		c.MinFreeBytes = &min
	}
	for i := range c.Reports {
		r := &c.Reports[i]
		if r.Format == "" {
			r.Format = string(table.FormatHTML)
		}
		if r.StagingFile == "" {
			r.StagingFile = "extract." + r.Format
		}
		if len(r.Outputs) == 0 {
			r.Outputs = []string{string(table.OutputCSV)}
		}
	}
}

func validateWaiter(w WaiterConfig) error {
	if w.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", w.MaxAttempts)
	}
	if w.IntervalSeconds != nil && *w.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds must not be negative, got %v", *w.IntervalSeconds)
	}
	return nil
}

// Validate fills in defaults and checks the configuration.
func (c *Config) Validate() error {
	c.applyDefaults()

	var errs []error
	if c.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir is required"))
	}
	if _, err := chrono.NewStandardImpl(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := validateWaiter(c.Waiter); err != nil {
		errs = append(errs, fmt.Errorf("waiter: %w", err))
	}
	if len(c.Reports) == 0 {
		errs = append(errs, errors.New("no reports configured"))
	}

	seen := map[string]bool{}
	for i, r := range c.Reports {
		prefix := fmt.Sprintf("reports[%d]", i)
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", prefix))
		} else {
			prefix = fmt.Sprintf("report %q", r.Name)
		}
		if r.Name != "" && seen[r.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", prefix))
		}
		seen[r.Name] = true

		if filepath.Base(r.Name) != r.Name {
			errs = append(errs, fmt.Errorf("%s: name must not contain a path separator", prefix))
		}
		if _, err := table.ParseFormat(r.Format); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
		for _, o := range r.Outputs {
			if _, err := table.ParseOutput(o); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
			}
		}
		if _, err := filepath.Match(r.StagingFile, ""); err != nil {
			errs = append(errs, fmt.Errorf("%s: staging_file: %w", prefix, err))
		}
		if r.HeaderRow < 0 {
			errs = append(errs, fmt.Errorf("%s: header_row must not be negative", prefix))
		}
		if r.SkipAfterHeader < 0 {
			errs = append(errs, fmt.Errorf("%s: skip_after_header must not be negative", prefix))
		}
		if r.FreshnessWindowSeconds < 0 {
			errs = append(errs, fmt.Errorf("%s: freshness_window_seconds must not be negative", prefix))
		}
		if r.Waiter != nil {
			if err := validateWaiter(*r.Waiter); err != nil {
				errs = append(errs, fmt.Errorf("%s: waiter: %w", prefix, err))
			}
		}
		if r.Upload && !c.Upload.Enabled() {
			errs = append(errs, fmt.Errorf("%s: upload requested but upload.base_url is not set", prefix))
		}
	}
	return errors.Join(errs...)
}

// WaiterFor returns the waiter settings of a report, the report's own
// override if it has one. An override without an interval inherits the
// top level interval.
func (c Config) WaiterFor(r ReportConfig) WaiterConfig {
	if r.Waiter == nil {
		return c.Waiter
	}
	w := *r.Waiter
	if w.IntervalSeconds == nil {
		w.IntervalSeconds = c.Waiter.IntervalSeconds
	}
	return w
}

// StagingPattern is the path or glob the report's export is expected at.
func (c Config) StagingPattern(r ReportConfig) string {
	return filepath.Join(c.DownloadDir, r.StagingFile)
}

// OutputPath is where the report's canonical table is written in the given format.
func (c Config) OutputPath(r ReportConfig, output table.Output) string {
	return filepath.Join(c.OutputDir, r.Name+"."+string(output))
}

func (c Config) Report(name string) (ReportConfig, bool) {
	for _, r := range c.Reports {
		if r.Name == name {
			return r, true
		}
	}
	return ReportConfig{}, false
}

func (c Config) minFreeBytes() uint64 {
	if c.MinFreeBytes == nil {
		return DefaultMinFreeBytes
	}
	return *c.MinFreeBytes
}

// Load reads path and its .local override.
func Load(path string) (Config, error) {
	return configutil.ReadConfig[Config](path)
}
