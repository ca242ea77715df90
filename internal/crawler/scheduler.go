package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/fetch"
	"github.com/nao1215/pathscan/internal/model"
)

// Fetcher retrieves a single URL. *fetch.Client satisfies this; tests
// may substitute anything else.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Scheduler drives a bounded-concurrency crawl of one origin: it claims
// URLs from a Frontier, dispatches fetches to a fixed worker pool, and
// feeds extracted links back in at depth+1 until the frontier drains.
// Construction fixes the crawl parameters; each Run call creates fresh
// per-run state, so one Scheduler can crawl several targets, including
// concurrently.
type Scheduler struct {
	// fetcher performs the HTTP requests.
	fetcher Fetcher

	// maxDepth limits how deep to follow links from the seed.
	// 0 means only the seed itself is fetched.
	maxDepth int

	// maxWorkers is the size of the fetch worker pool. The control
	// loop keeps at most 2x this many fetches in flight.
	maxWorkers int

	// delay is the minimum interval between requests, enforced by a
	// shared rate limiter across all workers of a run.
	delay time.Duration

	// logger receives per-visit progress lines.
	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = the seed plus its links, and so on.
func WithMaxDepth(depth int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxDepth = depth
	}
}

// WithMaxWorkers sets the fetch worker pool size.
func WithMaxWorkers(workers int) SchedulerOption {
	return func(s *Scheduler) {
		if workers > 0 {
			s.maxWorkers = workers
		}
	}
}

// WithDelay sets the minimum interval between requests. Zero or
// negative disables throttling.
func WithDelay(delay time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.delay = delay
	}
}

// WithSchedulerLogger sets the progress logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a Scheduler using the given fetcher.
func NewScheduler(fetcher Fetcher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher:    fetcher,
		maxDepth:   config.DefaultCrawlDepth,
		maxWorkers: config.DefaultWorkers,
		delay:      config.DefaultCrawlDelay,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// crawlJob is one fetch dispatched to a worker.
type crawlJob struct {
	url   string
	depth int
}

// crawlResult is what a worker hands back: the visit outcome and the
// links extracted from the body.
type crawlResult struct {
	job    crawlJob
	record model.VisitRecord
	links  []string
}

// Run crawls from seedURL until the frontier drains, the depth bound
// cuts discovery off, or ctx is canceled. It always returns a report
// when the crawl started; the error is non-nil only for an invalid seed
// (nil report) or an unreachable seed (partial report alongside
// ErrTargetUnreachable).
//
// Cancellation stops dispatch, lets in-flight fetches settle, and
// returns the partial report with Interrupted set.
func (s *Scheduler) Run(ctx context.Context, seedURL string) (*model.CrawlReport, error) {
	normalizer, err := NewNormalizer(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}
	seed := normalizer.Seed()

	extractor := NewExtractor(normalizer, WithExtractorLogger(s.logger))
	frontier := NewFrontier(WithFrontierLogger(s.logger))
	limiter := newDelayLimiter(s.delay)

	s.logger.Info("crawl started",
		slog.String("target", seed),
		slog.Int("max_depth", s.maxDepth),
		slog.Int("workers", s.maxWorkers),
		slog.Duration("delay", s.delay))

	// The seed is fetched synchronously at depth 0 so an unreachable
	// target is diagnosed before any workers spin up.
	frontier.TryClaim(seed)
	seedResult := s.fetchOne(ctx, limiter, extractor, crawlJob{url: seed, depth: 0})
	frontier.Record(seed, seedResult.record)

	if seedResult.record.Failed() && seedResult.record.ErrorKind == model.ErrorKindConnection {
		report := frontier.Snapshot(seed, s.maxDepth, s.maxWorkers, false, seedResult.record.Error)
		return report, fmt.Errorf("%w: %s", ErrTargetUnreachable, seedResult.record.Error)
	}

	if s.maxDepth > 0 {
		for _, link := range seedResult.links {
			if frontier.Seen(link) {
				continue
			}
			frontier.Enqueue(link, 1)
		}
	}

	interrupted := s.crawlLoop(ctx, frontier, extractor, limiter)

	report := frontier.Snapshot(seed, s.maxDepth, s.maxWorkers, interrupted, "")
	s.logger.Info("crawl finished",
		slog.String("target", seed),
		slog.Int("total", report.Stats.TotalRequests),
		slog.Int("successful", report.Stats.SuccessfulRequests),
		slog.Int("failed", report.Stats.FailedRequests),
		slog.Duration("elapsed", report.Duration()),
		slog.Bool("interrupted", interrupted))

	return report, nil
}

// crawlLoop runs the concurrent phase: a worker pool consumes jobs, the
// control loop claims queued URLs, keeps up to 2x maxWorkers fetches in
// flight, and folds each result back into the frontier. It returns
// whether the run was interrupted.
//
// Every dispatched job produces exactly one result, and the loop never
// exits while work is in flight. That pairing is what makes shutdown
// deadlock-free: on cancellation dispatch stops, the remaining results
// are drained, and only then is the jobs channel closed.
func (s *Scheduler) crawlLoop(ctx context.Context, frontier *Frontier, extractor *Extractor, limiter *rate.Limiter) bool {
	jobs := make(chan crawlJob, 2*s.maxWorkers)
	results := make(chan crawlResult)

	g, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.maxWorkers; i++ {
		g.Go(func() error {
			for job := range jobs {
				results <- s.fetchOne(workerCtx, limiter, extractor, job)
			}
			return nil
		})
	}

	inflight := 0
	interrupted := false

	for {
		if !interrupted {
			for inflight < 2*s.maxWorkers {
				url, depth, ok := frontier.Dequeue()
				if !ok {
					break
				}
				if !frontier.TryClaim(url) {
					continue
				}
				jobs <- crawlJob{url: url, depth: depth}
				inflight++
			}
		}

		if inflight == 0 {
			break
		}

		if interrupted {
			s.settle(<-results, frontier, interrupted)
			inflight--
			continue
		}

		select {
		case res := <-results:
			s.settle(res, frontier, interrupted)
			inflight--
		case <-ctx.Done():
			interrupted = true
			s.logger.Warn("crawl interrupted, draining in-flight fetches",
				slog.Int("inflight", inflight))
		}
	}

	close(jobs)
	_ = g.Wait() //nolint:errcheck // workers only return nil

	return interrupted
}

// settle records one completed fetch and enqueues its links at the next
// depth. After an interrupt nothing new is enqueued.
func (s *Scheduler) settle(res crawlResult, frontier *Frontier, interrupted bool) {
	frontier.Record(res.job.url, res.record)

	if interrupted || res.job.depth >= s.maxDepth {
		return
	}
	for _, link := range res.links {
		if frontier.Seen(link) {
			continue
		}
		frontier.Enqueue(link, res.job.depth+1)
	}
}

// fetchOne performs a single rate-limited fetch and converts the
// outcome into a VisitRecord plus extracted links. Transport failures
// become Failure records; every HTTP response, including 4xx and 5xx,
// becomes a Success record and its body is still mined, because error
// pages disclose paths in practice.
func (s *Scheduler) fetchOne(ctx context.Context, limiter *rate.Limiter, extractor *Extractor, job crawlJob) crawlResult {
	if err := limiter.Wait(ctx); err != nil {
		return crawlResult{
			job:    job,
			record: model.NewFailureRecord(job.url, fetch.ClassifyError(err), err.Error(), job.depth),
		}
	}

	res, err := s.fetcher.Get(ctx, job.url)
	if err != nil {
		kind := fetch.ClassifyError(err)
		s.logger.Warn("fetch failed",
			slog.String("url", job.url),
			slog.String("kind", kind.String()),
			slog.Int("depth", job.depth),
			slog.Any("error", err))
		return crawlResult{
			job:    job,
			record: model.NewFailureRecord(job.url, kind, err.Error(), job.depth),
		}
	}

	title := ""
	if strings.Contains(res.ContentType, "text/html") {
		title = ExtractTitle(res.Body)
	}
	links := extractor.Extract(res.URL, res.Body)

	s.logger.Info("visited",
		slog.String("url", job.url),
		slog.Int("status", res.StatusCode),
		slog.Int("depth", job.depth),
		slog.Int("links", len(links)))

	return crawlResult{
		job:    job,
		record: model.NewSuccessRecord(job.url, res.StatusCode, res.ContentType, len(res.Body), title, job.depth),
		links:  links,
	}
}

// newDelayLimiter builds the shared inter-request throttle. A zero or
// negative delay means no throttling.
func newDelayLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
