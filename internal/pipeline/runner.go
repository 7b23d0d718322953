// Package pipeline runs one resize batch. A single producer discovers and
// plans candidates, a fixed pool of workers transforms the admitted jobs,
// and a single collector aggregates every result into a Summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"resizer/internal/discover"
	"resizer/internal/planner"
	"resizer/internal/profile"
	"resizer/internal/transform"
)

// Run processes cfg.Input. Configuration and discovery errors abort before
// any job runs; per-file problems only show up in the Summary. The returned
// error is non-nil only for those aborts and for cancellation.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	started := time.Now()
	if cfg.Transformer == nil {
		return Summary{}, errors.New("pipeline: no transformer configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(slog.String("component", "pipeline"))

	root, isDir, err := discover.Locate(cfg.Input)
	if err != nil {
		return Summary{}, err
	}
	plan, err := planner.New(isDir, cfg.Output, cfg.Options)
	if err != nil {
		return Summary{}, err
	}

	jobs := make(chan planner.Job)
	results := make(chan JobResult)

	total := func() {
		if cfg.Updates != nil {
			cfg.Updates <- ProgressUpdate{TotalDelta: 1}
		}
	}

	walkOpts := []discover.Option{
		discover.WithErrorHandler(func(path string, err error) {
			logger.Warn("cannot read entry", slog.String("path", path), slog.String("error", err.Error()))
			total()
			results <- JobResult{
				InputPath: path,
				Status:    StatusSkipped,
				Skip:      &planner.Skip{Reason: planner.SkipUnreadable, Detail: err.Error()},
			}
		}),
	}
	if isDir && plan.OutputRoot() != "" {
		walkOpts = append(walkOpts, discover.WithPrune(plan.OutputRoot()))
	}
	walker, err := discover.New(root, walkOpts...)
	if err != nil {
		return Summary{}, err
	}

	workers := cfg.Options.Threads
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	logger.Debug("starting batch",
		slog.String("input", walker.Root()),
		slog.String("output", plan.OutputRoot()),
		slog.Int("workers", workers),
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer wg.Done()
			worker(ctx, jobs, results, cfg.Transformer, logger.With(slog.Int("worker", id)))
		}(i)
	}

	agg := NewAggregator()
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			agg.Add(res)
			if cfg.Updates != nil {
				cfg.Updates <- res.progress()
			}
		}
	}()

	producerErr := make(chan error, 1)
	go func() {
		defer close(jobs)
		producerErr <- walker.Walk(ctx, func(c discover.Candidate) error {
			total()
			job, skip, err := plan.Plan(c)
			switch {
			case err != nil:
				logger.Warn("cannot plan file", slog.String("path", c.Path), slog.String("error", err.Error()))
				results <- failedResult(job, err)
				return nil
			case skip != nil:
				logger.Debug("skipped", slog.String("path", c.Path), slog.String("reason", skip.String()))
				results <- JobResult{
					InputPath:  job.InputPath,
					OutputPath: job.OutputPath,
					RelPath:    job.RelPath,
					Status:     StatusSkipped,
					Skip:       skip,
				}
				return nil
			}

			select {
			case jobs <- job:
				return nil
			case <-ctx.Done():
				results <- failedResult(job, ctx.Err())
				return ctx.Err()
			}
		})
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	summary := agg.Finalize(time.Since(started))
	logger.Debug("batch finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed),
	)

	if err := <-producerErr; err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		return summary, fmt.Errorf("discover %s: %w", walker.Root(), err)
	}
	return summary, nil
}

func worker(ctx context.Context, jobs <-chan planner.Job, results chan<- JobResult, tr transform.Transformer, logger *slog.Logger) {
	for job := range jobs {
		results <- runJob(ctx, job, tr, logger)
	}
}

// runJob always yields exactly one result, even if the transformer panics.
func runJob(ctx context.Context, job planner.Job, tr transform.Transformer, logger *slog.Logger) (res JobResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failedResult(job, fmt.Errorf("transform panicked: %v", r))
			logger.Error("panic recovered", slog.String("path", job.InputPath), slog.Any("panic", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failedResult(job, err)
	}
	if err := planner.EnsureDir(filepath.Dir(job.OutputPath)); err != nil {
		err = fmt.Errorf("create output directory: %w", err)
		logger.Warn("resize failed", slog.String("path", job.InputPath), slog.String("error", err.Error()))
		return failedResult(job, err)
	}

	if (job.Options.PPI > 0 || job.Options.RemainProfile) && !profile.Carries(job.Kind) {
		logger.Debug("density and profiles are not written for this format",
			slog.String("path", job.InputPath),
			slog.String("format", job.Kind.String()),
		)
	}

	out, err := tr.Transform(ctx, transform.Request{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Kind:       job.Kind,
		Options:    job.Options,
	})
	if err != nil {
		logger.Warn("resize failed", slog.String("path", job.InputPath), slog.String("error", err.Error()))
		return failedResult(job, err)
	}

	logger.Debug("resized",
		slog.String("path", job.InputPath),
		slog.String("output", job.OutputPath),
		slog.String("from", fmt.Sprintf("%dx%d", out.SourceWidth, out.SourceHeight)),
		slog.String("to", fmt.Sprintf("%dx%d", out.Width, out.Height)),
		slog.Int64("bytes", out.BytesWritten),
	)
	return JobResult{
		InputPath:    job.InputPath,
		OutputPath:   job.OutputPath,
		RelPath:      job.RelPath,
		Status:       StatusSucceeded,
		BytesWritten: out.BytesWritten,
	}
}

func failedResult(job planner.Job, err error) JobResult {
	return JobResult{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		RelPath:    job.RelPath,
		Status:     StatusFailed,
		Err:        err,
	}
}

func (r JobResult) progress() ProgressUpdate {
	switch r.Status {
	case StatusSucceeded:
		return ProgressUpdate{SucceededDelta: 1, BytesDelta: r.BytesWritten}
	case StatusSkipped:
		return ProgressUpdate{SkippedDelta: 1}
	default:
		return ProgressUpdate{FailedDelta: 1}
	}
}
