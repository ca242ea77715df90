package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/model"
)

// BatchResult pairs one target with its crawl outcome. Err is non-nil
// when the crawl could not run (invalid seed) or the target was
// unreachable; the report may still carry partial state in the latter
// case.
type BatchResult struct {
	// Target is the URL as given by the caller.
	Target string

	// Report is the crawl snapshot, nil when the seed was invalid.
	Report *model.CrawlReport

	// Err is the run error, if any.
	Err error
}

// BatchCrawler crawls several targets with bounded concurrency, one
// scheduler run per target. Failures are isolated: one unreachable
// target never stops the others.
type BatchCrawler struct {
	// scheduler runs the individual crawls. Scheduler runs share no
	// state, so concurrent use is safe.
	scheduler *Scheduler

	// concurrency is the maximum number of targets crawled at once.
	concurrency int

	// logger is used for batch-level progress.
	logger *slog.Logger
}

// BatchOption configures a BatchCrawler.
type BatchOption func(*BatchCrawler)

// WithBatchConcurrency sets how many targets are crawled at once.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchCrawler) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the batch progress logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchCrawler) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchCrawler creates a BatchCrawler driving the given scheduler.
func NewBatchCrawler(scheduler *Scheduler, opts ...BatchOption) *BatchCrawler {
	b := &BatchCrawler{
		scheduler:   scheduler,
		concurrency: config.DefaultBatchSize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Run crawls every target and returns the results in target order. The
// slice always has one entry per target, failed runs included.
func (b *BatchCrawler) Run(ctx context.Context, targets []string) []BatchResult {
	b.logger.Info("batch crawl started",
		slog.Int("targets", len(targets)),
		slog.Int("concurrency", b.concurrency))
	start := time.Now()

	results := make([]BatchResult, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			report, err := b.scheduler.Run(ctx, target)
			results[i] = BatchResult{Target: target, Report: report, Err: err}
			if err != nil {
				b.logger.Warn("target crawl failed",
					slog.String("target", target),
					slog.Any("error", err))
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // per-target errors live in the results

	b.logger.Info("batch crawl finished",
		slog.Int("targets", len(targets)),
		slog.Duration("elapsed", time.Since(start)))

	return results
}
