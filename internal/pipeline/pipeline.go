// Package pipeline runs one edit request end to end: load, sample, ask the
// model, apply and save. Anything that goes wrong after the input has been
// accepted ends in a copy of the original file instead of an error, and the
// Result says so.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/factor591/aisheets/internal/changes"
	"github.com/factor591/aisheets/internal/sample"
	"github.com/factor591/aisheets/internal/workbook"
)

// State is a step of a pipeline run.
type State string

const (
	StateLoaded    State = "loaded"
	StateSampled   State = "sampled"
	StateRequested State = "requested"
	StateParsed    State = "parsed"
	StateApplied   State = "applied"
	StateSaved     State = "saved"
	StateFallback  State = "fallback"
)

// Status tells a real edit apart from a copied original.
type Status string

const (
	StatusEdited   Status = "edited"
	StatusFallback Status = "fallback"
)

// OutputPrefix starts the name of every file the pipeline writes.
const OutputPrefix = "processed_"

const (
	DefaultMaxFileBytes        = 5 << 20
	DefaultMaxInstructionChars = 4000
)

// DefaultAllowedExtensions are the input extensions accepted by default.
var DefaultAllowedExtensions = []string{"xlsx", "xlsm", "xls", "csv"}

var (
	ErrFileTooLarge      = errors.New("file exceeds the size limit")
	ErrEmptyInstructions = errors.New("instructions are empty")
)

// Gateway turns a sample and an instruction into a raw chat completion body.
type Gateway interface {
	ProposeChanges(ctx context.Context, smp *sample.Sample, instructions string) ([]byte, error)
}

// Options are read-only settings shared by every run.
type Options struct {
	MaxFileBytes        int64
	AllowedExtensions   []string
	MaxInstructionChars int
	Sample              sample.Options
	OutputDir           string // empty: next to the input file
	Logger              *slog.Logger
}

// DefaultOptions returns the limits used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxFileBytes:        DefaultMaxFileBytes,
		AllowedExtensions:   DefaultAllowedExtensions,
		MaxInstructionChars: DefaultMaxInstructionChars,
		Sample:              sample.DefaultOptions(),
	}
}

// Request is one edit.
type Request struct {
	InputPath    string
	Instructions string
	OutputPath   string // optional; generated inside OutputDir when empty
}

// Result describes what a run produced.
type Result struct {
	Status         Status               `json:"status"`
	State          State                `json:"state"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
	OutputPath     string               `json:"output_path"`
	Explanation    string               `json:"explanation,omitempty"`
	Report         *changes.Report      `json:"report,omitempty"`
	Diff           workbook.DiffSummary `json:"diff"`
	Trail          []State              `json:"trail"`
}

// Fallback reports whether the output is an unchanged copy of the input.
func (r *Result) Fallback() bool { return r.Status == StatusFallback }

// Pipeline processes edit requests. It is safe for concurrent use.
type Pipeline struct {
	gateway Gateway
	opts    Options
	newID   func() string
}

// New builds a pipeline. Zero option fields take their defaults.
func New(gateway Gateway, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = def.MaxFileBytes
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = def.AllowedExtensions
	}
	if opts.MaxInstructionChars <= 0 {
		opts.MaxInstructionChars = def.MaxInstructionChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		gateway: gateway,
		opts:    opts,
		newID:   func() string { return uuid.NewString() },
	}
}

// run carries the state of one Process call.
type run struct {
	log    *slog.Logger
	req    Request
	out    string
	result *Result
}

func (r *run) enter(s State, attrs ...any) {
	r.result.State = s
	r.result.Trail = append(r.result.Trail, s)
	r.log.Info("pipeline state", append([]any{"state", s}, attrs...)...)
}

// Process runs one request. Input problems (missing, oversized, wrong type,
// unreadable file, empty instructions) are returned as errors and produce no
// file. Every later failure produces a copy of the input.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	instructions, err := p.checkInput(req)
	if err != nil {
		return nil, err
	}

	doc, err := workbook.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	r := &run{
		log:    p.opts.Logger.With("file", filepath.Base(req.InputPath)),
		req:    req,
		out:    p.outputPath(req),
		result: &Result{},
	}
	r.enter(StateLoaded, "format", doc.Format.String(), "worksheets", len(doc.Sheets))

	smp := sample.Take(doc, p.opts.Sample)
	r.enter(StateSampled)

	body, err := p.gateway.ProposeChanges(ctx, smp, instructions)
	if err != nil {
		return p.fallback(r, "request failed", err)
	}
	r.enter(StateRequested, "bytes", len(body))

	batch, err := changes.ParseResponse(body)
	if err != nil {
		return p.fallback(r, "unusable response", err)
	}
	r.result.Explanation = batch.Explanation
	if len(batch.Changes) == 0 {
		return p.fallback(r, "no changes proposed", nil)
	}
	r.enter(StateParsed, "changes", len(batch.Changes))

	before := doc.Clone()
	report, err := changes.ApplyBatch(doc, batch, changes.WithLogger(r.log))
	if err != nil {
		return p.fallback(r, "apply failed", err)
	}
	r.result.Report = report
	r.result.Diff = workbook.Diff(before, doc)
	r.enter(StateApplied, "applied", report.Applied(), "skipped", report.Skipped())
	if !r.result.Diff.Changed() {
		return p.fallback(r, "changes had no effect", nil)
	}

	if err := os.MkdirAll(filepath.Dir(r.out), 0o755); err != nil {
		return p.fallback(r, "save failed", err)
	}
	written, err := workbook.Save(doc, r.out, doc.Format)
	if err != nil {
		return p.fallback(r, "save failed", err)
	}
	r.result.OutputPath = written
	r.result.Status = StatusEdited
	r.enter(StateSaved, "output", written)
	return r.result, nil
}

func (p *Pipeline) checkInput(req Request) (string, error) {
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		return "", ErrEmptyInstructions
	}
	if r := []rune(instructions); len(r) > p.opts.MaxInstructionChars {
		instructions = string(r[:p.opts.MaxInstructionChars])
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.InputPath)), ".")
	if !slices.Contains(p.opts.AllowedExtensions, ext) {
		return "", fmt.Errorf("%w: %q is not one of %s", workbook.ErrUnsupportedFormat,
			filepath.Ext(req.InputPath), strings.Join(p.opts.AllowedExtensions, ", "))
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", req.InputPath)
	}
	if info.Size() > p.opts.MaxFileBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge,
			filepath.Base(req.InputPath), info.Size(), p.opts.MaxFileBytes)
	}
	return instructions, nil
}

// outputPath returns the explicit output path, or a fresh unpredictable
// name so that concurrent runs and the sweeper never collide.
func (p *Pipeline) outputPath(req Request) string {
	if req.OutputPath != "" {
		return req.OutputPath
	}
	dir := p.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(req.InputPath)
	}
	return filepath.Join(dir, OutputPrefix+p.newID()+"_"+filepath.Base(req.InputPath))
}

// fallback copies the input to the output path and records why.
func (p *Pipeline) fallback(r *run, reason string, cause error) (*Result, error) {
	if cause != nil {
		reason = reason + ": " + cause.Error()
	}
	r.log.Warn("falling back to original file", "state", r.result.State, "reason", reason)

	if err := copyFile(r.req.InputPath, r.out); err != nil {
		return nil, fmt.Errorf("writing fallback copy: %w", err)
	}
	r.result.Status = StatusFallback
	r.result.FallbackReason = reason
	r.result.OutputPath = r.out
	r.enter(StateFallback, "output", r.out)
	return r.result, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
