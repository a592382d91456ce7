package cmd

import (
	"errors"
	"fmt"
	"time"

	"icreports/cmd/icreports/globals"
	"icreports/cmd/icreports/utils"
	"icreports/internal/chrono"
	"icreports/internal/reports"
	"icreports/lib/eventlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyRun       string
	historyPruneDays int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "only show the events of this run id")
	historyCmd.Flags().IntVar(&historyPruneDays, "prune-days", 0, "delete events older than this many days instead of listing")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent events from the event database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		store, ok, err := reports.OpenEventDB(ctx, config.EventLog)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("event_log.database is not configured")
		}
		defer store.Close()

		clock, err := chrono.NewStandardImpl(config.Timezone)
		if err != nil {
			return err
		}

		if historyPruneDays > 0 {
			before := clock.Now().Add(-time.Duration(historyPruneDays) * 24 * time.Hour)
			deleted, err := store.Prune(ctx, before)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d events before %s\n", deleted, before.Format(time.DateTime))
			return nil
		}

		var events []eventlog.Event
		if historyRun != "" {
			events, err = store.Run(ctx, historyRun, clock.Location())
		} else {
			events, err = store.Recent(ctx, historyLimit, clock.Location())
		}
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Time", "Run", "Level", "Report", "Kind", "Message"})
		for _, e := range events {
			t.AppendRow(table.Row{
				e.Time.Format(eventlog.TimeLayout), e.RunID, e.Level, e.Report, e.Kind,
				utils.Truncate(e.Message, 80),
			})
		}
		t.Render()
		return nil
	},
}
