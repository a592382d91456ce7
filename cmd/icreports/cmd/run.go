package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"icreports/cmd/icreports/globals"
	"icreports/cmd/icreports/utils"
	"icreports/internal/reports"
	internaltel "icreports/internal/telemetry"
	"icreports/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [report...]",
	Short: "Generate, wait for and normalize every configured report, or only the named ones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		if len(args) > 0 {
			selected := make([]reports.ReportConfig, 0, len(args))
			for _, name := range args {
				report, err := lookupReport(config, name)
				if err != nil {
					return err
				}
				selected = append(selected, report)
			}
			config.Reports = selected
		}

		runner, err := reports.New(ctx, config, internaltel.SlogAPI{})
		if err != nil {
			return err
		}
		defer runner.Close()

		stop := telemetry.RecordProcessStats(ctx, 30*time.Second)
		summary := runner.RunAll(ctx)
		stop()

		t := utils.NewTable()
		t.SetTitle("run %s", summary.RunID)
		t.AppendHeader(table.Row{"Report", "Outcome", "Attempts", "Rows", "Elapsed", "Detail"})
		for _, o := range summary.Outcomes {
			t.AppendRow(table.Row{o.Report, o.Kind, o.Attempts, o.Rows, utils.Duration(o.Elapsed), utils.Truncate(o.Detail(), 80)})
		}
		t.AppendFooter(table.Row{"", "", "", "", utils.Duration(summary.Elapsed), ""})
		t.Render()

		err = runner.Notify(ctx, summary)
		if err != nil {
			slog.Warn("failed to send summary email", "err", err)
		}

		if !summary.OK() {
			return fmt.Errorf("%d of %d reports were not normalized", len(summary.Failed()), len(summary.Outcomes))
		}
		return nil
	},
}
