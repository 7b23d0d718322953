package pipeline

import (
	"log/slog"

	"resizer/internal/options"
	"resizer/internal/planner"
	"resizer/internal/transform"
)

// Status is the outcome class of one candidate.
type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Config describes one batch run.
type Config struct {
	// Input is the file or directory to process.
	Input string
	// Output is the destination file or directory; empty means in place.
	Output      string
	Options     options.OptionSet
	Transformer transform.Transformer
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
	// Updates, when set, receives one TotalDelta per candidate and one
	// status delta per result. The caller must keep draining it until Run
	// returns.
	Updates chan<- ProgressUpdate
}

// JobResult is the outcome of one candidate. Exactly one of Skip and Err is
// set for skipped and failed results.
type JobResult struct {
	InputPath    string
	OutputPath   string
	RelPath      string
	Status       Status
	BytesWritten int64
	Skip         *planner.Skip
	Err          error
}

type ProgressUpdate struct {
	TotalDelta     int
	SucceededDelta int
	SkippedDelta   int
	FailedDelta    int
	BytesDelta     int64
}
