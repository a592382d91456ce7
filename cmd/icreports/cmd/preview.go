package cmd

import (
	"icreports/cmd/icreports/globals"
	"icreports/cmd/icreports/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	previewRows    int
	previewColumns []string
)

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 10, "number of rows to show")
	previewCmd.Flags().StringSliceVar(&previewColumns, "columns", nil, "only show these columns")
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview <report> <file>",
	Short: "Print the first rows of an export as it would be normalized.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		report, err := lookupReport(config, args[0])
		if err != nil {
			return err
		}
		runner, err := newRunner(config)
		if err != nil {
			return err
		}
		canonical, err := runner.NormalizeFile(ctx, report, args[1])
		if err != nil {
			return err
		}
		if len(previewColumns) > 0 {
			canonical, err = canonical.Select(previewColumns...)
			if err != nil {
				return err
			}
		}

		t := utils.NewTable()
		header := make(table.Row, len(canonical.Columns))
		for i, c := range canonical.Columns {
			header[i] = c
		}
		t.AppendHeader(header)
		for i, row := range canonical.Rows {
			if i >= previewRows {
				break
			}
			values := make(table.Row, len(row))
			for j, v := range row {
				values[j] = utils.Truncate(v, 40)
			}
			t.AppendRow(values)
		}
		t.SetCaption("%d of %d rows, %d columns", min(previewRows, canonical.Len()), canonical.Len(), len(canonical.Columns))
		t.Render()
		return nil
	},
}
