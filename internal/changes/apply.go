package changes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/factor591/aisheets/internal"
	"github.com/factor591/aisheets/internal/workbook"
)

// Option configures Apply.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives one record per change.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// handlerFunc executes one change against its resolved worksheet.
type handlerFunc func(*applyContext) error

var handlers = map[Kind]handlerFunc{
	KindValue:        applyValue,
	KindFormula:      applyFormula,
	KindFormat:       applyFormat,
	KindSort:         applySort,
	KindAddColumn:    applyAddColumn,
	KindAddRow:       applyAddRow,
	KindDeleteRow:    applyDeleteRow,
	KindDeleteColumn: applyDeleteColumn,
}

// applyContext is what a handler sees of the change being applied.
type applyContext struct {
	ws      *workbook.Worksheet
	change  Change
	ref     internal.Reference
	headers []string

	cells int
	notes []string
}

// note records that the change was applied with a default or a guess.
func (a *applyContext) note(reason string) {
	for _, n := range a.notes {
		if n == reason {
			return
		}
	}
	a.notes = append(a.notes, reason)
}

// ApplyBatch applies a decoded batch and carries its explanation into the report.
func ApplyBatch(doc *workbook.Document, b *Batch, opts ...Option) (*Report, error) {
	report, err := Apply(doc, b.Changes, opts...)
	if err != nil {
		return nil, err
	}
	report.Explanation = b.Explanation
	return report, nil
}

// Apply runs each change in order against doc. Later changes see the
// effects of earlier ones. A change that cannot be applied is recorded as
// skipped and leaves the document untouched.
func Apply(doc *workbook.Document, changes []json.RawMessage, opts ...Option) (*Report, error) {
	if doc == nil || len(doc.Sheets) == 0 {
		return nil, ErrNoWorksheets
	}
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	report := &Report{Outcomes: make([]Outcome, 0, len(changes))}
	for i, raw := range changes {
		out := applyOne(doc, i, raw)
		level := slog.LevelDebug
		if out.Status == StatusSkipped {
			level = slog.LevelWarn
		}
		o.logger.Log(context.Background(), level, "change processed",
			"change", i,
			"type", out.Type,
			"worksheet", out.Worksheet,
			"target", out.Target,
			"status", out.String(),
			"detail", out.Detail,
		)
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

func applyOne(doc *workbook.Document, index int, raw json.RawMessage) Outcome {
	out := Outcome{Index: index}
	skip := func(reason string, err error) Outcome {
		out.Status, out.Reason = StatusSkipped, reason
		if err != nil {
			out.Detail = err.Error()
		}
		return out
	}

	// 1. shape
	c, err := decodeChange(raw)
	if err != nil {
		return skip(ReasonMissingFields, err)
	}
	out.Type = string(c.Kind)

	// 2. worksheet, falling back to the first one
	ws, ok := doc.Sheet(c.Worksheet)
	if !ok {
		ws = doc.First()
		out.RequestedWorksheet = c.Worksheet
		out.WorksheetFallback = true
	}
	out.Worksheet = ws.Name

	// 3. target
	if c.badTarget {
		return skip(ReasonBadTarget, errors.New("target must be an object with type and reference"))
	}
	headers := ws.Headers()
	ref, err := internal.ParseReference(c.Target.Type, c.Target.Reference, headers)
	if err != nil {
		if errors.Is(err, internal.ErrUnsupportedTarget) {
			return skip(ReasonUnsupportedTarget, err)
		}
		return skip(ReasonBadTarget, err)
	}
	out.Target = ref.String()

	// 4. dispatch
	h, ok := handlers[c.Kind]
	if !ok {
		return skip(ReasonUnsupportedType, fmt.Errorf("unknown change type %q", c.Kind))
	}

	// 5. execute
	ctx := &applyContext{ws: ws, change: c, ref: ref, headers: headers}
	snapshot := ws.Clone()
	if err := runHandler(h, ctx); err != nil {
		// A skipped change leaves the sheet as it was.
		*ws = *snapshot
		return skip(reasonFor(err), err)
	}

	out.Cells = ctx.cells
	if out.WorksheetFallback {
		ctx.notes = append([]string{ReasonWorksheetFallback}, ctx.notes...)
	}
	if len(ctx.notes) > 0 {
		out.Status, out.Reason = StatusDefaulted, strings.Join(ctx.notes, ",")
	} else {
		out.Status = StatusApplied
	}
	return out
}

func runHandler(h handlerFunc, ctx *applyContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &skipError{reason: ReasonHandlerError, err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h(ctx)
}

// expand lists the target cells. A cell target more than one row or column
// past the sheet is out of bounds; the grid is dense, so writing there would
// allocate every cell in between.
func expand(a *applyContext) ([]internal.Coord, error) {
	if a.ref.Kind == internal.TargetCell && !internal.CellInReach(a.ws, a.ref.Start) {
		return nil, skipf(ReasonOutOfBounds, "%s is beyond the %dx%d sheet %q",
			a.ref, a.ws.RowCount(), a.ws.ColumnCount(), a.ws.Name)
	}
	cells := internal.ExpandToCells(a.ws, a.ref)
	if len(cells) == 0 {
		return nil, skipf(ReasonEmptyTarget, "%s covers no cells of %q", a.ref, a.ws.Name)
	}
	return cells, nil
}
