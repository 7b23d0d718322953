// Package planner maps discovered files to output locations and decides
// whether each one is admitted as a job or skipped by policy.
package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"resizer/internal/discover"
	"resizer/internal/options"
	"resizer/pkg/imgutil"
)

// ErrOutputConflict is a configuration error: the output root cannot hold
// the outputs of the given input.
var ErrOutputConflict = errors.New("output path conflicts with input")

// SkipReason classifies why a candidate is not processed.
type SkipReason string

const (
	SkipUnsupported SkipReason = "unsupported format"
	SkipAnimated    SkipReason = "animated format not allowed"
	SkipConflict    SkipReason = "output exists"
	SkipUnreadable  SkipReason = "unreadable"
)

// Skip is a per-file, non-fatal planning decision.
type Skip struct {
	Reason SkipReason
	Detail string
}

func (s *Skip) String() string {
	if s.Detail == "" {
		return string(s.Reason)
	}
	return string(s.Reason) + ": " + s.Detail
}

// Job is one admitted unit of work.
type Job struct {
	InputPath  string
	OutputPath string
	RelPath    string
	Kind       imgutil.Kind
	Options    options.OptionSet
}

// InPlace reports whether the job overwrites its own input.
func (j Job) InPlace() bool {
	return filepath.Clean(j.InputPath) == filepath.Clean(j.OutputPath)
}

// Planner plans jobs for one discovery root.
type Planner struct {
	rootIsDir  bool
	outputRoot string
	opts       options.OptionSet
	sniff      func(path string) (imgutil.Kind, error)
}

// New validates the output root against the input root before any job is
// planned. For a directory input a missing output root is created; an
// existing non-directory is rejected. For a file input an existing
// directory output is rejected.
func New(rootIsDir bool, outputRoot string, opts options.OptionSet) (*Planner, error) {
	p := &Planner{rootIsDir: rootIsDir, opts: opts, sniff: imgutil.SniffFile}
	if outputRoot == "" {
		return p, nil
	}

	abs, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOutputConflict, outputRoot, err)
	}
	p.outputRoot = abs

	info, statErr := os.Stat(abs)
	switch {
	case statErr == nil && rootIsDir && !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrOutputConflict, outputRoot)
	case statErr == nil && !rootIsDir && info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrOutputConflict, outputRoot)
	case statErr == nil:
	case errors.Is(statErr, fs.ErrNotExist):
		if rootIsDir {
			if err := EnsureDir(abs); err != nil {
				return nil, fmt.Errorf("create output directory: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("stat output %s: %w", outputRoot, statErr)
	}
	return p, nil
}

// OutputRoot returns the absolute output root, or "" in in-place mode.
func (p *Planner) OutputRoot() string { return p.outputRoot }

// OutputPath computes where the candidate's result is written.
func (p *Planner) OutputPath(c discover.Candidate) string {
	switch {
	case p.outputRoot == "":
		return c.Path
	case !p.rootIsDir:
		return p.outputRoot
	default:
		return filepath.Join(p.outputRoot, c.RelPath)
	}
}

// Plan admits c as a Job or returns a Skip. An error means the candidate
// could not be inspected at all.
func (p *Planner) Plan(c discover.Candidate) (Job, *Skip, error) {
	out := p.OutputPath(c)
	job := Job{InputPath: c.Path, OutputPath: out, RelPath: c.RelPath, Options: p.opts}

	kind, err := p.sniff(c.Path)
	if err != nil {
		return job, nil, fmt.Errorf("read %s: %w", c.Path, err)
	}
	job.Kind = kind

	switch {
	case kind == imgutil.KindUnknown:
		return job, &Skip{Reason: SkipUnsupported}, nil
	case kind.Animated() && !p.opts.AllowGIF:
		return job, &Skip{Reason: SkipAnimated, Detail: kind.String()}, nil
	case !kind.Encodable():
		return job, &Skip{Reason: SkipUnsupported, Detail: kind.String()}, nil
	}

	if job.InPlace() {
		return job, nil, nil
	}

	info, err := os.Stat(out)
	switch {
	case err == nil && info.IsDir():
		return job, &Skip{Reason: SkipConflict, Detail: out + " is a directory"}, nil
	case err == nil && !p.opts.ForceOverwrite:
		return job, &Skip{Reason: SkipConflict, Detail: out}, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return job, nil, fmt.Errorf("stat %s: %w", out, err)
	}
	return job, nil, nil
}

// EnsureDir creates dir and its parents. Losing a creation race to another
// worker is not an error.
func EnsureDir(dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
	}
	return err
}
