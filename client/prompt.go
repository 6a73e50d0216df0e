package client

import (
	"fmt"

	"github.com/factor591/aisheets/internal/changes"
)

const systemPrompt = `You edit spreadsheets. You receive a JSON sample of a workbook and an instruction from the user, and you answer only by calling update_spreadsheet.

The sample lists every worksheet with its headers (row 1), a selection of rows and the true total_rows and total_columns. When is_sample is true, rows from the middle of the sheet are omitted; each row carries its real sheet row number.

Rules for changes:
- Rows are 1-based and row 1 holds the headers. Columns are letters (A, B, ... AA) or header names.
- Use the exact worksheet names from the sample.
- "value" must be a plain number or text. Never put a JSON object or array in it.
- To add a record, use add_row with parameters.values_by_column keyed by header name.
- Formulas start with "=". In add_column, parameters.formula may contain {row}, which is replaced with each row number.
- sort needs a range target, parameters.column and parameters.direction ("ascending" or "descending"). Do not include the header row in the range.
- format takes the format name in "value": currency, percentage, date, number or text_format. text_format reads bold, italic, underline, color, fill and size from parameters.
- Keep the list of changes minimal and in the order they should run. Later changes see the effect of earlier ones.

Finish with a one or two sentence explanation of what you changed.`

// maxInstructionChars bounds the instruction text sent to the model.
const maxInstructionChars = 4000

func userPrompt(sampleJSON []byte, instructions string) string {
	return fmt.Sprintf("Here is the spreadsheet data:\n%s\n\nInstructions: %s", sampleJSON, clip(instructions, maxInstructionChars))
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// UpdateSpreadsheetFunction is the function schema the model is forced to
// call. Its arguments are decoded by changes.ParseArguments.
func UpdateSpreadsheetFunction() FunctionDef {
	kinds := make([]string, len(changes.Kinds))
	for i, k := range changes.Kinds {
		kinds[i] = string(k)
	}
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}

	change := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"worksheet": str("Name of the worksheet to modify"),
			"type": map[string]any{
				"type":        "string",
				"enum":        kinds,
				"description": "Kind of change",
			},
			"target": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []string{"cell", "range", "column", "row"},
					},
					"reference": str("A1 cell, A1:C10 range, column letter or header name, or row number"),
				},
				"required": []string{"type", "reference"},
			},
			"value": str("Plain text, number or formula to write; never a JSON object"),
			"parameters": map[string]any{
				"type":        "object",
				"description": "Extra arguments for the change type",
				"properties": map[string]any{
					"values_by_column": map[string]any{
						"type":                 "object",
						"description":          "add_row: cell values keyed by header name",
						"additionalProperties": map[string]any{"type": "string"},
					},
					"values": map[string]any{
						"type":        "array",
						"description": "add_row or add_column: values in positional order",
						"items":       map[string]any{"type": "string"},
					},
					"formula":   str("add_column: formula for every data row, {row} is the row number"),
					"column":    str("sort: column letter or header name to sort by"),
					"direction": map[string]any{"type": "string", "enum": []string{"ascending", "descending"}},
					"symbol":    str("currency: symbol, default $"),
					"format":    str("date: number format code, default mm/dd/yyyy"),
					"decimals":  map[string]any{"type": "integer", "description": "number: decimal places"},
					"bold":      map[string]any{"type": "boolean"},
					"italic":    map[string]any{"type": "boolean"},
					"underline": map[string]any{"type": "boolean"},
					"color":     str("text_format: font color as hex RRGGBB"),
					"fill":      str("text_format: background color as hex RRGGBB"),
					"size":      map[string]any{"type": "number"},
				},
			},
		},
		"required": []string{"worksheet", "type", "target"},
	}

	return FunctionDef{
		Name:        changes.FunctionName,
		Description: "Apply changes to the spreadsheet according to the user's instructions",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"changes": map[string]any{
					"type":        "array",
					"description": "Changes to apply, in order",
					"items":       change,
				},
				"explanation": str("Short explanation of the changes"),
			},
			"required": []string{"changes", "explanation"},
		},
	}
}
