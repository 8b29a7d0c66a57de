package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/wiki"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of concurrent walks when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// ErrSourceUnreachable is returned when no start could be fetched at all
// because every request failed at the network level. It points at a wrong
// base URL or proxy rather than at the articles.
var ErrSourceUnreachable = errors.New("wiki unreachable: every fetch failed")

// progressMilestones are the completion percentages that are logged.
var progressMilestones = []int{25, 50, 75, 100}

// BatchProcessor walks many starting articles concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
//  1. It keeps the Pipeline focused on a single walk
//  2. Aggregation into a BatchReport lives in one place
//  3. Single walks from the CLI skip the batch machinery entirely
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each walk, so walks
	// never share a walker.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent walks.
	concurrency int

	// target is recorded on the batch report.
	target model.PageID

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent walks.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchTarget sets the target recorded on the batch report.
func WithBatchTarget(target model.PageID) BatchOption {
	return func(b *BatchProcessor) {
		b.target = target
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each start to create a fresh
// pipeline instance.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		target:          model.PageID("Philosophy"),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch walks every start concurrently and returns the batch report
// with one WalkReport per start, in input order.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each start gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// The report is returned even when an error is. The error is the context's
// when the batch was cancelled, or ErrSourceUnreachable when no fetch
// succeeded at all.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, starts []string) (*model.BatchReport, error) {
	batch := model.NewBatchReport(bp.target)
	walks := make([]*model.WalkReport, len(starts))

	err := bp.ProcessBatchWithCallback(ctx, starts, func(report *model.WalkReport, index int) {
		// Each index is written by exactly one goroutine.
		walks[index] = report
	})

	for i, w := range walks {
		if w == nil {
			w = model.NewWalkReport(starts[i])
			w.Reject(ReasonCancelled, context.Cause(ctx))
			walks[i] = w
		}
	}
	batch.Walks = walks
	batch.Elapsed = time.Since(batch.StartedAt)

	bp.logger.Info("batch processing complete",
		"id", batch.ID,
		"total_starts", len(starts),
		"total_pages", batch.TotalPagesVisited(),
		"distinct_pages", batch.DistinctPages(),
		"elapsed", batch.Elapsed,
	)

	if err != nil {
		return batch, err
	}
	if allUnreachable(walks) {
		return batch, fmt.Errorf("%w: %s", ErrSourceUnreachable, walks[0].ErrorMessage)
	}
	return batch, nil
}

// ProcessBatchWithCallback walks every start and calls callback for each
// finished walk. This is useful for streaming results.
//
// The callback is called from the goroutine that finished the walk, so it
// must be safe for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	starts []string,
	callback func(report *model.WalkReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_starts", len(starts),
		"concurrency", bp.concurrency,
	)

	progress := newProgress(len(starts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, start := range starts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Debug("walking start",
				"start", start,
				"index", i+1,
				"total", len(starts),
			)

			began := time.Now()
			report := model.NewWalkReport(start)
			pipeline := bp.pipelineFactory()
			if err := pipeline.Execute(ctx, report); err != nil {
				// Recorded in the report; other walks continue.
				bp.logger.Warn("walk failed", "start", start, "error", err)
			}
			report.Elapsed = time.Since(began)

			callback(report, i)

			if percent, ok := progress.done(); ok {
				bp.logger.Info("batch progress",
					"percent", percent,
					"done", progress.count(),
					"total", len(starts),
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// allUnreachable reports whether every walk failed on its first request
// with a network error.
func allUnreachable(walks []*model.WalkReport) bool {
	if len(walks) == 0 {
		return false
	}
	for _, w := range walks {
		if !errors.Is(w.Err, wiki.ErrNetwork) {
			return false
		}
		if w.Path != nil && w.Path.Len() > 1 {
			return false
		}
	}
	return true
}

// progress counts finished walks and reports each milestone once.
type progress struct {
	mu       sync.Mutex
	total    int
	finished int
	next     int
}

func newProgress(total int) *progress {
	return &progress{total: total}
}

// done records one finished walk. It returns the highest milestone newly
// crossed, if any.
func (p *progress) done() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished++
	if p.total == 0 {
		return 0, false
	}

	percent := p.finished * 100 / p.total
	crossed := 0
	for p.next < len(progressMilestones) && percent >= progressMilestones[p.next] {
		crossed = progressMilestones[p.next]
		p.next++
	}
	return crossed, crossed > 0
}

// count returns the number of finished walks.
func (p *progress) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}
