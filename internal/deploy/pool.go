// Package deploy fans a remediation pass out over several event batches
// with a bounded degree of parallelism.
package deploy

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Runner is the slice of the service facade the pool needs.
type Runner interface {
	Run(ctx context.Context, events []models.Event, opts engine.RunOptions) models.RunReport
}

// Batch is one named group of events, typically one host's collection
// window.
type Batch struct {
	Name   string
	Events []models.Event
}

// BatchResult pairs a batch with its finished report.
type BatchResult struct {
	Name   string
	Report models.RunReport
}

// Pool runs batches concurrently up to a fixed limit. Interactive runs
// should use limit 1; concurrent console prompts interleave.
type Pool struct {
	runner Runner
	limit  int
	logger *slog.Logger
}

// NewPool constructs a pool. limit < 1 falls back to serial execution.
func NewPool(runner Runner, limit int, logger *slog.Logger) *Pool {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{runner: runner, limit: limit, logger: logger}
}

// RunAll processes every batch and returns results in batch order. Each
// batch report carries its own terminal status; RunAll returns an error
// only when the context is cancelled.
func (p *Pool) RunAll(ctx context.Context, batches []Batch, opts engine.RunOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(batches))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.limit)

	for i, batch := range batches {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.logger.Info("running batch",
				slog.String("batch", batch.Name), slog.Int("events", len(batch.Events)))
			results[i] = BatchResult{
				Name:   batch.Name,
				Report: p.runner.Run(ctx, batch.Events, opts),
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
