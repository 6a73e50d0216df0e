package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/client"
	"github.com/factor591/aisheets/internal/pipeline"
	"github.com/factor591/aisheets/internal/sample"
	"github.com/factor591/aisheets/internal/workbook"
)

var (
	editInstructions string
	editOutput       string
	editOutputDir    string
	editMaxRows      int
	editTailRows     int
	editCache        bool
	editStrict       bool
	editJSON         bool
)

var editCmd = &cobra.Command{
	Use:   "edit <file> -i <instructions> [flags]",
	Short: "Edit a spreadsheet from plain-language instructions",
	Long: `Send a sample of the workbook and the instructions to the model, apply the
proposed changes and save the result as a new file.

The input file is never modified. The output is written next to the input
(or into --output-dir) as processed_<id>_<name>. xls and xlsm inputs are
saved as xlsx. If the model call fails or none of the proposed changes take
effect, the output is a copy of the original and the reason is printed.

Use -i - to read the instructions from stdin.

Exit codes:
  0  edited, or fell back without --strict
  1  input error (missing, too large, unsupported or unreadable file)
  2  fell back to the original with --strict

Examples:
  aisheets edit sales.xlsx -i "sort by revenue, highest first"
  aisheets edit data.csv -i "add a Total column = Price * Qty" -o totals.csv
  aisheets edit report.xlsx -i "format column C as currency" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editInstructions, "instructions", "i", "", "What to change (- reads stdin)")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "Output path (default: generated name)")
	editCmd.Flags().StringVar(&editOutputDir, "output-dir", "", "Directory for generated output names (env: AISHEETS_OUTPUT_DIR)")
	editCmd.Flags().IntVar(&editMaxRows, "max-rows", sample.DefaultMaxRows, "Data rows per worksheet sent to the model")
	editCmd.Flags().IntVar(&editTailRows, "tail-rows", sample.DefaultTailRows, "How many of --max-rows come from the end of the sheet")
	editCmd.Flags().BoolVar(&editCache, "cache", false, "Reuse model responses for identical requests")
	editCmd.Flags().BoolVar(&editStrict, "strict", false, "Exit 2 when the output is a copy of the original")
	editCmd.Flags().BoolVar(&editJSON, "json", false, "Print the result as JSON")
	_ = editCmd.MarkFlagRequired("instructions")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	instructions, err := readInstructions(editInstructions, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	if editCache {
		c.Cache = client.NewResponseCache()
	}

	outDir := editOutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	p := pipeline.New(c, pipeline.Options{
		MaxFileBytes:      cfg.MaxFileBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		Sample:            sample.Options{MaxRows: editMaxRows, TailRows: editTailRows},
		OutputDir:         outDir,
		Logger:            log,
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	res, err := p.Process(ctx, pipeline.Request{
		InputPath:    args[0],
		Instructions: instructions,
		OutputPath:   editOutput,
	})
	if err != nil {
		return err
	}

	if editJSON {
		if err := jsonPrint(res); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), res)
	}

	if editStrict && res.Fallback() {
		return &ExitError{Code: 2}
	}
	return nil
}

func readInstructions(flag string, stdin io.Reader) (string, error) {
	if flag != "-" {
		return flag, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading instructions from stdin: %w", err)
	}
	return string(data), nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	if res.Fallback() {
		fmt.Fprintf(w, "No changes applied (%s).\n", res.FallbackReason)
		fmt.Fprintf(w, "Original copied to %s\n", res.OutputPath)
	} else {
		fmt.Fprintf(w, "Saved %s\n", res.OutputPath)
	}
	if res.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(res.Explanation))
	}
	if res.Report != nil && len(res.Report.Outcomes) > 0 {
		fmt.Fprintf(w, "\n%d applied, %d skipped:\n", res.Report.Applied(), res.Report.Skipped())
		for _, line := range strings.Split(strings.TrimRight(res.Report.Summary(), "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if !res.Fallback() {
		fmt.Fprintln(w, workbook.FormatDiffSummary(res.Diff))
	}
}
