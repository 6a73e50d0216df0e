package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/internal/sample"
	"github.com/factor591/aisheets/internal/workbook"
)

var (
	sampleMaxRows  int
	sampleTailRows int
)

var sampleCmd = &cobra.Command{
	Use:   "sample <file>",
	Short: "Print the sample that would be sent to the model",
	Long: `Load a spreadsheet and print, as JSON, the bounded sample that 'aisheets edit'
sends to the model: headers plus a head-and-tail slice of the data rows for
every worksheet. Nothing is sent anywhere.

Example:
  aisheets sample sales.xlsx --max-rows 30 --tail-rows 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().IntVar(&sampleMaxRows, "max-rows", sample.DefaultMaxRows, "Data rows per worksheet")
	sampleCmd.Flags().IntVar(&sampleTailRows, "tail-rows", sample.DefaultTailRows, "How many of --max-rows come from the end of the sheet")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	doc, err := workbook.Load(args[0])
	if err != nil {
		return err
	}
	data, err := sample.Take(doc, sample.Options{MaxRows: sampleMaxRows, TailRows: sampleTailRows}).JSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
