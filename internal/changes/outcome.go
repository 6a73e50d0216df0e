package changes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/factor591/aisheets/internal/workbook"
)

// Status is the result of one change.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusSkipped   Status = "skipped"
	StatusDefaulted Status = "defaulted"
)

// Skip reasons.
const (
	ReasonMissingFields     = "missing_fields"
	ReasonBadTarget         = "bad_target"
	ReasonUnsupportedTarget = "unsupported_target"
	ReasonUnsupportedType   = "unsupported_type"
	ReasonOutOfBounds       = "out_of_bounds"
	ReasonMissingValue      = "missing_value"
	ReasonInvalidParameters = "invalid_parameters"
	ReasonTargetMismatch    = "target_mismatch"
	ReasonEmptyTarget       = "empty_target"
	ReasonHandlerError      = "handler_error"
)

// Default reasons: the change was applied, but not exactly as written.
const (
	ReasonWorksheetFallback = "worksheet_fallback"
	ReasonUnknownFormat     = "unknown_format"
	ReasonDefaultDirection  = "direction"
	ReasonAppended          = "appended"
	ReasonUnwrapped         = "unwrapped"
	ReasonRawJSON           = "raw_json"
)

// Outcome records what happened to one change.
type Outcome struct {
	Index              int    `json:"index"`
	Type               string `json:"type,omitempty"`
	Worksheet          string `json:"worksheet,omitempty"`
	RequestedWorksheet string `json:"requested_worksheet,omitempty"`
	Target             string `json:"target,omitempty"`
	Status             Status `json:"status"`
	Reason             string `json:"reason,omitempty"`
	Detail             string `json:"detail,omitempty"`
	WorksheetFallback  bool   `json:"worksheet_fallback,omitempty"`
	Cells              int    `json:"cells,omitempty"`
}

// String renders "applied", "skipped:<reason>" or "defaulted:<reason>".
func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Status)
	}
	return string(o.Status) + ":" + o.Reason
}

// Report is the per-change result of one batch.
type Report struct {
	Outcomes    []Outcome `json:"outcomes"`
	Explanation string    `json:"explanation,omitempty"`
}

// Applied counts changes that took effect, including defaulted ones.
func (r *Report) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != StatusSkipped {
			n++
		}
	}
	return n
}

// Skipped counts changes that were dropped.
func (r *Report) Skipped() int {
	return len(r.Outcomes) - r.Applied()
}

// Changed counts cells written, restyled, inserted or removed.
func (r *Report) Changed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != StatusSkipped {
			n += o.Cells
		}
	}
	return n
}

// Summary renders one line per outcome.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "#%d %s", o.Index, o.Type)
		if o.Worksheet != "" {
			fmt.Fprintf(&b, " %s", o.Worksheet)
			if o.Target != "" {
				fmt.Fprintf(&b, "!%s", o.Target)
			}
		}
		fmt.Fprintf(&b, ": %s", o)
		if o.Detail != "" {
			fmt.Fprintf(&b, " (%s)", o.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// skipError carries the reason a handler gave up on a change.
type skipError struct {
	reason string
	err    error
}

func (e *skipError) Error() string { return e.err.Error() }

func (e *skipError) Unwrap() error { return e.err }

func skipf(reason, format string, args ...any) error {
	return &skipError{reason: reason, err: fmt.Errorf(format, args...)}
}

func reasonFor(err error) string {
	var se *skipError
	switch {
	case errors.As(err, &se):
		return se.reason
	case errors.Is(err, workbook.ErrOutOfBounds):
		return ReasonOutOfBounds
	default:
		return ReasonHandlerError
	}
}
