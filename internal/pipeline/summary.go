package pipeline

import (
	"sort"
	"sync"
	"time"

	"resizer/internal/planner"
)

// Failure records a failed input.
type Failure struct {
	Path string
	Err  error
}

// SkipRecord records a skipped input and why.
type SkipRecord struct {
	Path   string
	Reason planner.SkipReason
	Detail string
}

// Summary aggregates all results of a run.
type Summary struct {
	Succeeded    int
	Skipped      int
	Failed       int
	BytesWritten int64
	Failures     []Failure
	Skips        []SkipRecord
	Elapsed      time.Duration
}

// Total is the number of results aggregated.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

// ExitCode is 1 when any job failed. Skips never affect it.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Aggregator accumulates JobResults. It is safe for concurrent use and its
// totals do not depend on the order results arrive in.
type Aggregator struct {
	mu      sync.Mutex
	summary Summary
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add records one result.
func (a *Aggregator) Add(res JobResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch res.Status {
	case StatusSucceeded:
		a.summary.Succeeded++
		a.summary.BytesWritten += res.BytesWritten
	case StatusSkipped:
		a.summary.Skipped++
		rec := SkipRecord{Path: res.InputPath}
		if res.Skip != nil {
			rec.Reason = res.Skip.Reason
			rec.Detail = res.Skip.Detail
		}
		a.summary.Skips = append(a.summary.Skips, rec)
	default:
		a.summary.Failed++
		a.summary.Failures = append(a.summary.Failures, Failure{Path: res.InputPath, Err: res.Err})
	}
}

// Finalize returns the summary with its records sorted by path.
func (a *Aggregator) Finalize(elapsed time.Duration) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.summary
	s.Elapsed = elapsed
	s.Failures = append([]Failure(nil), a.summary.Failures...)
	s.Skips = append([]SkipRecord(nil), a.summary.Skips...)
	sort.SliceStable(s.Failures, func(i, j int) bool { return s.Failures[i].Path < s.Failures[j].Path })
	sort.SliceStable(s.Skips, func(i, j int) bool { return s.Skips[i].Path < s.Skips[j].Path })
	return s
}
