package cmd

import (
	"fmt"
	"time"

	"icreports/cmd/icreports/globals"
	"icreports/internal/reports"
	"icreports/lib/download"

	"github.com/spf13/cobra"
)

var (
	waitAttempts int
	waitInterval time.Duration
)

func init() {
	waitCmd.Flags().IntVar(&waitAttempts, "attempts", 0, "override the number of attempts")
	waitCmd.Flags().DurationVar(&waitInterval, "interval", 0, "override the interval between attempts")
	rootCmd.AddCommand(waitCmd)
}

var waitCmd = &cobra.Command{
	Use:   "wait <report>",
	Short: "Wait for a report's export to appear and check that it is fresh and has records.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		report, err := lookupReport(config, args[0])
		if err != nil {
			return err
		}
		if waitAttempts > 0 || waitInterval > 0 {
			waiter := config.WaiterFor(report)
			if waitAttempts > 0 {
				waiter.MaxAttempts = waitAttempts
			}
			if waitInterval > 0 {
				waiter.IntervalSeconds = reports.Seconds(waitInterval.Seconds())
			}
			report.Waiter = &waiter
		}

		runner, err := newRunner(config)
		if err != nil {
			return err
		}
		res, err := runner.Wait(ctx, report)
		if err != nil {
			return err
		}
		if res.Status == download.TimedOut {
			return fmt.Errorf("no %s after %d attempts", config.StagingPattern(report), res.Attempts)
		}

		freshness := download.CheckFreshness(res.Artifact, report.FreshnessWindow(), runner.Clock().Now())
		meaningful, err := download.Classify(res.Artifact.Path, report.InputFormat(), report.DataStart())
		if err != nil {
			return err
		}

		fmt.Printf("found %s after %d attempt(s)\n", res.Artifact.Path, res.Attempts)
		fmt.Printf("  size:       %d bytes\n", res.Artifact.Size)
		fmt.Printf("  modified:   %s (%s ago)\n", res.Artifact.ModTime.In(runner.Clock().Location()).Format(time.DateTime), freshness.Age.Round(time.Second))
		fmt.Printf("  fresh:      %t\n", freshness.Fresh)
		fmt.Printf("  has records: %t\n", meaningful)

		if !freshness.Fresh {
			return fmt.Errorf("%s", reports.Stale)
		}
		if !meaningful {
			return fmt.Errorf("%s", reports.Empty)
		}
		return nil
	},
}
