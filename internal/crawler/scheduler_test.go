package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/fetch"
	"github.com/nao1215/pathscan/internal/model"
)

// fakePage is one servable page for crawl tests.
type fakePage struct {
	status int
	body   string
}

// newCrawlServer serves the given path-to-page map with exact path
// matching; unknown paths get a real 404.
func newCrawlServer(t *testing.T, pages map[string]fakePage) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if page.status != 0 {
			w.WriteHeader(page.status)
		}
		_, _ = w.Write([]byte(page.body)) //nolint:errcheck
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newTestScheduler builds a Scheduler suitable for fast tests: no
// politeness delay, a small worker pool.
func newTestScheduler(opts ...SchedulerOption) *Scheduler {
	base := []SchedulerOption{WithDelay(0), WithMaxWorkers(3)}
	return NewScheduler(fetch.NewClient(), append(base, opts...)...)
}

// TestNewScheduler tests construction defaults and options.
func TestNewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		scheduler := NewScheduler(fetch.NewClient())
		if scheduler.maxDepth != config.DefaultCrawlDepth {
			t.Errorf("expected default depth %d, got %d", config.DefaultCrawlDepth, scheduler.maxDepth)
		}
		if scheduler.maxWorkers != config.DefaultWorkers {
			t.Errorf("expected default workers %d, got %d", config.DefaultWorkers, scheduler.maxWorkers)
		}
		if scheduler.delay != config.DefaultCrawlDelay {
			t.Errorf("expected default delay %v, got %v", config.DefaultCrawlDelay, scheduler.delay)
		}
		if scheduler.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("options override defaults", func(t *testing.T) {
		t.Parallel()

		scheduler := NewScheduler(fetch.NewClient(),
			WithMaxDepth(0),
			WithMaxWorkers(8),
			WithDelay(50*time.Millisecond),
		)
		if scheduler.maxDepth != 0 {
			t.Errorf("expected depth 0, got %d", scheduler.maxDepth)
		}
		if scheduler.maxWorkers != 8 {
			t.Errorf("expected 8 workers, got %d", scheduler.maxWorkers)
		}
		if scheduler.delay != 50*time.Millisecond {
			t.Errorf("expected 50ms delay, got %v", scheduler.delay)
		}
	})

	t.Run("invalid worker count is ignored", func(t *testing.T) {
		t.Parallel()

		scheduler := NewScheduler(fetch.NewClient(), WithMaxWorkers(0))
		if scheduler.maxWorkers != config.DefaultWorkers {
			t.Errorf("expected default workers %d, got %d", config.DefaultWorkers, scheduler.maxWorkers)
		}
	})
}

// TestSchedulerRun tests whole-crawl behavior against local servers.
func TestSchedulerRun(t *testing.T) {
	t.Parallel()

	t.Run("visits the seed and everything it links to", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":        {body: `<html><body><a href="/about">About</a><a href="/contact">Contact</a></body></html>`},
			"/about":   {body: `<html><body>about</body></html>`},
			"/contact": {body: `<html><body>contact</body></html>`},
		})

		scheduler := newTestScheduler(WithMaxDepth(2))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{server.URL + "/", server.URL + "/about", server.URL + "/contact"}
		assertSameSet(t, report.URLs(), want)

		if report.Stats.TotalRequests != 3 || report.Stats.SuccessfulRequests != 3 {
			t.Errorf("expected 3/3 requests, got %d/%d",
				report.Stats.TotalRequests, report.Stats.SuccessfulRequests)
		}
		if report.Interrupted {
			t.Error("expected a clean finish")
		}
		if report.Target != server.URL+"/" {
			t.Errorf("expected target %q, got %q", server.URL+"/", report.Target)
		}
	})

	t.Run("stops at the depth bound", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":  {body: `<a href="/a">a</a>`},
			"/a": {body: `<a href="/b">b</a>`},
			"/b": {body: `<a href="/c">c</a>`},
			"/c": {body: `end`},
		})

		scheduler := newTestScheduler(WithMaxDepth(2))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSameSet(t, report.URLs(), []string{
			server.URL + "/", server.URL + "/a", server.URL + "/b",
		})

		for url, record := range report.Visits {
			if record.Depth > 2 {
				t.Errorf("record for %q exceeds depth bound: %d", url, record.Depth)
			}
		}
		if report.Visits[server.URL+"/a"].Depth != 1 {
			t.Errorf("expected /a at depth 1, got %d", report.Visits[server.URL+"/a"].Depth)
		}
		if report.Visits[server.URL+"/b"].Depth != 2 {
			t.Errorf("expected /b at depth 2, got %d", report.Visits[server.URL+"/b"].Depth)
		}
	})

	t.Run("discovers markup links and comment paths from the seed", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":      {body: `<html><body><a href="/login">Login</a><!-- /api/v2/users --></body></html>`},
			"/login": {body: `<html><body>login</body></html>`},
		})

		scheduler := newTestScheduler(WithMaxDepth(1))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSameSet(t, report.URLs(), []string{
			server.URL + "/", server.URL + "/login", server.URL + "/api/v2/users",
		})

		// The endpoint from the comment does not exist, and that is
		// the point: the 404 is a recorded observation, not a failure.
		record := report.Visits[server.URL+"/api/v2/users"]
		if record.Failed() {
			t.Error("expected the 404 visit to count as a completed request")
		}
		if record.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", record.StatusCode)
		}
	})

	t.Run("mines error pages for further paths", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":       {body: `<a href="/gone">gone</a>`},
			"/gone":   {status: http.StatusForbidden, body: `<html><body>denied, try <a href="/hidden">here</a></body></html>`},
			"/hidden": {body: `found`},
		})

		scheduler := newTestScheduler(WithMaxDepth(3))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if record := report.Visits[server.URL+"/gone"]; record.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 recorded, got %d", record.StatusCode)
		}
		if _, ok := report.Visits[server.URL+"/hidden"]; !ok {
			t.Error("expected the link on the 403 page to be crawled")
		}
	})

	t.Run("an unreachable target terminates with a partial report", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := listener.Addr().String()
		_ = listener.Close() //nolint:errcheck

		scheduler := newTestScheduler(WithMaxDepth(2))
		report, err := scheduler.Run(context.Background(), "http://"+addr+"/")
		if !errors.Is(err, ErrTargetUnreachable) {
			t.Fatalf("expected ErrTargetUnreachable, got %v", err)
		}
		if report == nil {
			t.Fatal("expected a partial report")
		}

		if report.Stats.TotalRequests != 1 || report.Stats.FailedRequests != 1 || report.Stats.SuccessfulRequests != 0 {
			t.Errorf("expected exactly one failed request, got %+v", report.Stats)
		}
		if len(report.Visits) != 1 {
			t.Fatalf("expected a single visit record, got %d", len(report.Visits))
		}
		for _, record := range report.Visits {
			if record.ErrorKind != model.ErrorKindConnection {
				t.Errorf("expected connection error kind, got %v", record.ErrorKind)
			}
		}
		if report.Error == "" {
			t.Error("expected the report to carry the failure message")
		}
	})

	t.Run("a timed-out seed is recorded without aborting as unreachable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fetch.NewClient(fetch.WithTimeout(50 * time.Millisecond))
		scheduler := NewScheduler(client, WithDelay(0))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("expected no run error for a timeout, got %v", err)
		}

		record := report.Visits[server.URL+"/"]
		if !record.Failed() {
			t.Fatal("expected a failed seed visit")
		}
		if record.ErrorKind != model.ErrorKindTimeout {
			t.Errorf("expected timeout error kind, got %v", record.ErrorKind)
		}
	})

	t.Run("depth zero fetches only the seed", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":  {body: `<a href="/a">a</a><a href="/b">b</a>`},
			"/a": {body: `a`},
			"/b": {body: `b`},
		})

		scheduler := newTestScheduler(WithMaxDepth(0))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSameSet(t, report.URLs(), []string{server.URL + "/"})
	})

	t.Run("cross-host links never enter the crawl", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":   {body: `<a href="http://cross-host.invalid/x">out</a><a href="/ok">in</a>`},
			"/ok": {body: `ok`},
		})

		scheduler := newTestScheduler(WithMaxDepth(1))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSameSet(t, report.URLs(), []string{server.URL + "/", server.URL + "/ok"})
		for url := range report.Visits {
			if strings.Contains(url, "cross-host.invalid") {
				t.Errorf("cross-host URL leaked into the report: %q", url)
			}
		}
	})

	t.Run("repeated links are fetched exactly once", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/":  {body: `<a href="/a">1</a><a href="/a">2</a><a href="/b">3</a>`},
			"/a": {body: `<a href="/b">b</a><a href="/a">self</a>`},
			"/b": {body: `<a href="/a">back</a>`},
		})

		scheduler := newTestScheduler(WithMaxDepth(3))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSameSet(t, report.URLs(), []string{
			server.URL + "/", server.URL + "/a", server.URL + "/b",
		})
		if report.Stats.TotalRequests != 3 {
			t.Errorf("expected 3 requests for 3 unique URLs, got %d", report.Stats.TotalRequests)
		}
	})

	t.Run("captures HTML page titles", func(t *testing.T) {
		t.Parallel()

		server := newCrawlServer(t, map[string]fakePage{
			"/": {body: `<html><head><title>Portal Home</title></head><body></body></html>`},
		})

		scheduler := newTestScheduler(WithMaxDepth(0))
		report, err := scheduler.Run(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := report.Visits[server.URL+"/"].Title; got != "Portal Home" {
			t.Errorf("expected title %q, got %q", "Portal Home", got)
		}
	})

	t.Run("cancellation marks the run interrupted and keeps partial results", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<a href="/slow">slow</a>`)) //nolint:errcheck
		})
		mux.HandleFunc("/slow", func(_ http.ResponseWriter, r *http.Request) {
			close(started)
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		server := httptest.NewServer(mux)
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		scheduler := newTestScheduler(WithMaxDepth(2))

		var report *model.CrawlReport
		var runErr error
		done := make(chan struct{})
		go func() {
			defer close(done)
			report, runErr = scheduler.Run(ctx, server.URL)
		}()

		<-started
		cancel()
		<-done

		if runErr != nil {
			t.Fatalf("unexpected error: %v", runErr)
		}
		if !report.Interrupted {
			t.Error("expected the report to be marked interrupted")
		}
		if record := report.Visits[server.URL+"/"]; record.Failed() {
			t.Error("expected the seed visit to stay successful")
		}
		if len(report.Visits) != 2 {
			t.Errorf("expected seed plus the canceled fetch, got %d visits", len(report.Visits))
		}
	})

	t.Run("rejects invalid seeds", func(t *testing.T) {
		t.Parallel()

		scheduler := newTestScheduler()

		if report, err := scheduler.Run(context.Background(), ""); !errors.Is(err, ErrMalformedURL) || report != nil {
			t.Errorf("expected ErrMalformedURL and nil report, got %v and %v", err, report)
		}
		if report, err := scheduler.Run(context.Background(), "ftp://example.com/"); !errors.Is(err, ErrUnsupportedScheme) || report != nil {
			t.Errorf("expected ErrUnsupportedScheme and nil report, got %v and %v", err, report)
		}
	})
}

// TestNewDelayLimiter tests throttle construction.
func TestNewDelayLimiter(t *testing.T) {
	t.Parallel()

	t.Run("zero delay disables throttling", func(t *testing.T) {
		t.Parallel()

		limiter := newDelayLimiter(0)
		if limiter.Limit() != rate.Inf {
			t.Errorf("expected unlimited rate, got %v", limiter.Limit())
		}
	})

	t.Run("positive delay sets a fixed interval", func(t *testing.T) {
		t.Parallel()

		limiter := newDelayLimiter(100 * time.Millisecond)
		if limiter.Limit() != rate.Limit(10) {
			t.Errorf("expected 10 requests per second, got %v", limiter.Limit())
		}
		if limiter.Burst() != 1 {
			t.Errorf("expected burst of 1, got %d", limiter.Burst())
		}
	})
}
