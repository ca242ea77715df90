package crawler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/pathscan/internal/model"
)

// frontierEntry is one unit of pending work: a normalized URL and the
// depth it was discovered at. Entries are immutable once created and
// consumed exactly once.
type frontierEntry struct {
	url   string
	depth int
}

// Frontier holds the mutable state of a single crawl run: the visited
// set, the FIFO queue of pending work, the per-URL visit records, and
// the run statistics. All methods are safe for concurrent use; a single
// mutex guards every field so counters and records can never drift
// apart. A Frontier is created at run start and converted to a
// CrawlReport at run end; nothing else outlives the run.
type Frontier struct {
	mu      sync.Mutex
	visited map[string]struct{}
	queue   []frontierEntry
	visits  map[string]model.VisitRecord
	stats   model.Stats
	logger  *slog.Logger
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithFrontierLogger sets the logger used for consistency warnings.
func WithFrontierLogger(logger *slog.Logger) FrontierOption {
	return func(f *Frontier) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFrontier creates an empty Frontier and starts its run clock.
func NewFrontier(opts ...FrontierOption) *Frontier {
	f := &Frontier{
		visited: make(map[string]struct{}),
		queue:   make([]frontierEntry, 0),
		visits:  make(map[string]model.VisitRecord),
		stats:   model.Stats{StartTime: time.Now()},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// TryClaim atomically tests and inserts url into the visited set. It
// returns true only for the first caller; every later claim on the same
// URL loses. This is the single mechanism that guarantees a URL is
// fetched at most once per run.
func (f *Frontier) TryClaim(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, claimed := f.visited[url]; claimed {
		return false
	}
	f.visited[url] = struct{}{}
	return true
}

// Seen reports whether url has already been claimed. It is advisory:
// between Seen and a later TryClaim another goroutine may claim the URL,
// so dispatch must still go through TryClaim.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, claimed := f.visited[url]
	return claimed
}

// Enqueue appends pending work. Duplicate suppression is the caller's
// job via Seen and TryClaim.
func (f *Frontier) Enqueue(url string, depth int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queue = append(f.queue, frontierEntry{url: url, depth: depth})
}

// Dequeue pops the oldest pending entry. FIFO order is what makes the
// traversal breadth-first, subject to worker concurrency.
func (f *Frontier) Dequeue() (url string, depth int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", 0, false
	}
	entry := f.queue[0]
	f.queue = f.queue[1:]
	return entry.url, entry.depth, true
}

// PendingCount returns the number of queued entries.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queue)
}

// Record stores the outcome of a visit and updates the run counters.
// The first write wins: an identical second write is a no-op, while a
// second write with a different value signals a bookkeeping bug and is
// logged at warn level with the first value kept.
func (f *Frontier) Record(url string, record model.VisitRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.visits[url]; ok {
		if existing != record {
			f.logger.Warn("conflicting visit record dropped",
				slog.String("url", url),
				slog.Int("kept_status", existing.StatusCode),
				slog.Int("dropped_status", record.StatusCode))
		}
		return
	}

	f.visits[url] = record
	if record.Failed() {
		f.stats.RecordFailure()
	} else {
		f.stats.RecordSuccess()
	}
}

// Stats returns a copy of the current run counters.
func (f *Frontier) Stats() model.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stats
}

// Snapshot converts the frontier into the final CrawlReport. The visit
// map is copied, so the report stays stable even if the frontier is
// touched afterward.
func (f *Frontier) Snapshot(target string, maxDepth, workers int, interrupted bool, runErr string) *model.CrawlReport {
	f.mu.Lock()
	defer f.mu.Unlock()

	report := model.NewCrawlReport(target)
	report.MaxDepth = maxDepth
	report.Workers = workers
	report.Stats = f.stats
	report.Interrupted = interrupted
	report.Error = runErr
	report.FinishedAt = time.Now()

	for url, record := range f.visits {
		report.Visits[url] = record
	}

	return report
}
