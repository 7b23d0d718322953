// Package options turns user input into the validated, read-only policy
// shared by every resize job of a run.
package options

import (
	"errors"
	"fmt"
	"runtime"
)

const (
	DefaultQuality = 92
	// MaxSide mirrors the 16-bit dimension limit of the supported codecs.
	MaxSide = 65535
	MaxPPI  = 65535
)

// ErrInvalidOption marks configuration errors detected before any job runs.
var ErrInvalidOption = errors.New("invalid option")

// OptionSet is the resize and encode policy for one invocation. It is passed
// by value, so workers never share mutable state through it.
type OptionSet struct {
	SideMaximum     int
	Quality         int
	ShrinkOnly      bool
	Sharpen         bool
	ChromaQuartered bool
	RemainProfile   bool
	AllowGIF        bool
	ForceOverwrite  bool
	// PPI is zero when the output density should not be touched.
	PPI     int
	Threads int
}

// Params is the unvalidated form collected from flags and the config file.
type Params struct {
	SideMaximum     int
	Quality         int
	PPI             int
	ShrinkOnly      bool
	NoSharpen       bool
	ChromaQuartered bool
	RemainProfile   bool
	AllowGIF        bool
	Force           bool
	SingleThread    bool
	// Threads <= 0 selects the number of logical CPUs.
	Threads int
}

// Defaults returns the built-in parameter values.
func Defaults() Params {
	return Params{Quality: DefaultQuality}
}

// Build validates p into an OptionSet.
func Build(p Params) (OptionSet, error) {
	if p.SideMaximum <= 0 {
		return OptionSet{}, fmt.Errorf("%w: side maximum is required and must be positive", ErrInvalidOption)
	}
	if p.SideMaximum > MaxSide {
		return OptionSet{}, fmt.Errorf("%w: side maximum %d exceeds %d", ErrInvalidOption, p.SideMaximum, MaxSide)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return OptionSet{}, fmt.Errorf("%w: quality %d is outside 1-100", ErrInvalidOption, p.Quality)
	}
	if p.PPI < 0 || p.PPI > MaxPPI {
		return OptionSet{}, fmt.Errorf("%w: ppi %d must be between 1 and %d", ErrInvalidOption, p.PPI, MaxPPI)
	}

	threads := p.Threads
	switch {
	case p.SingleThread:
		threads = 1
	case threads <= 0:
		threads = runtime.NumCPU()
	}

	return OptionSet{
		SideMaximum:     p.SideMaximum,
		Quality:         p.Quality,
		ShrinkOnly:      p.ShrinkOnly,
		Sharpen:         !p.NoSharpen,
		ChromaQuartered: p.ChromaQuartered,
		RemainProfile:   p.RemainProfile,
		AllowGIF:        p.AllowGIF,
		ForceOverwrite:  p.Force,
		PPI:             p.PPI,
		Threads:         threads,
	}, nil
}
