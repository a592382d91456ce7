package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"icreports/cmd/icreports/globals"
	"icreports/internal/chrono"
	"icreports/internal/reports"
	"icreports/lib/osutil"
	"icreports/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	tel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:           "icreports",
	Short:         "icreports waits for school portal report exports and turns them into clean tables.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "icreports")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}

		config, err := reports.Load(configPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", configPath, err)
		}
		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{Config: config}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newRunner creates a runner without event sinks for the commands that
// only inspect files.
func newRunner(config reports.Config) (reports.Runner, error) {
	clock, err := chrono.NewStandardImpl(config.Timezone)
	if err != nil {
		return reports.Runner{}, err
	}
	return reports.NewRunner(reports.Options{Config: config, Clock: clock}), nil
}

func lookupReport(config reports.Config, name string) (reports.ReportConfig, error) {
	report, ok := config.Report(name)
	if !ok {
		return reports.ReportConfig{}, fmt.Errorf("unknown report %q", name)
	}
	return report, nil
}

func Execute() {
	ctx := osutil.SignalContext()
	err := rootCmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		osutil.Fatal("icreports failed", err)
	}
}
