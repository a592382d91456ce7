package cmd

import (
	"fmt"
	"os"

	"icreports/cmd/icreports/globals"
	"icreports/lib/table"

	"github.com/spf13/cobra"
)

var normalizeStdout bool

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeStdout, "stdout", false, "write the canonical csv to stdout instead of the output dir")
	rootCmd.AddCommand(normalizeCmd)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <report> <file>",
	Short: "Normalize an already downloaded export with a report's options.",
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
		if normalizeStdout {
			return table.WriteCSV(os.Stdout, canonical)
		}

		paths, err := runner.WriteOutputs(ctx, report, canonical)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("wrote %d rows to %s\n", canonical.Len(), p)
		}
		return nil
	},
}
