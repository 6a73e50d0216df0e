package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/internal/changes"
	"github.com/factor591/aisheets/internal/pipeline"
	"github.com/factor591/aisheets/internal/workbook"
)

var (
	applyChanges string
	applyOutput  string
	applyJSON    bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <file> --changes <changes.json> [flags]",
	Short: "Apply recorded changes without calling the model",
	Long: `Apply a list of changes to a spreadsheet offline.

--changes accepts any of:
  - a JSON array of changes
  - a function-call arguments object {"changes": [...], "explanation": "..."}
  - a full chat completion response as saved from the API

Use --changes - to read from stdin. The input file is never modified.

Examples:
  aisheets apply sales.csv --changes fix.json
  aisheets apply book.xlsx --changes response.json -o book-fixed.xlsx --json`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyChanges, "changes", "", "JSON file with the changes (- reads stdin)")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "", "Output path (default: generated name next to the input)")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Print the report as JSON")
	_ = applyCmd.MarkFlagRequired("changes")
	rootCmd.AddCommand(applyCmd)
}

type applyResult struct {
	OutputPath string               `json:"output_path,omitempty"`
	Report     *changes.Report      `json:"report"`
	Diff       workbook.DiffSummary `json:"diff"`
}

func runApply(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	input := args[0]

	var data []byte
	var err error
	if applyChanges == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(applyChanges)
	}
	if err != nil {
		return fmt.Errorf("reading changes: %w", err)
	}
	batch, err := changes.ParseAny(data)
	if err != nil {
		return fmt.Errorf("reading changes: %w", err)
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	doc, err := workbook.Load(input)
	if err != nil {
		return err
	}
	before := doc.Clone()
	report, err := changes.ApplyBatch(doc, batch, changes.WithLogger(log.With("file", filepath.Base(input))))
	if err != nil {
		return err
	}
	res := applyResult{Report: report, Diff: workbook.Diff(before, doc)}

	if res.Diff.Changed() {
		out := applyOutput
		if out == "" {
			out = filepath.Join(filepath.Dir(input), pipeline.OutputPrefix+uuid.NewString()+"_"+filepath.Base(input))
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if res.OutputPath, err = workbook.Save(doc, out, doc.Format); err != nil {
			return err
		}
	}

	if applyJSON {
		return jsonPrint(res)
	}
	w := cmd.OutOrStdout()
	if res.OutputPath != "" {
		fmt.Fprintf(w, "Saved %s\n", res.OutputPath)
	} else {
		fmt.Fprintln(w, "No changes took effect; nothing written.")
	}
	fmt.Fprintf(w, "%d applied, %d skipped:\n", report.Applied(), report.Skipped())
	fmt.Fprint(w, report.Summary())
	fmt.Fprintln(w, workbook.FormatDiffSummary(res.Diff))
	return nil
}
