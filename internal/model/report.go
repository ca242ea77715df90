package model

import (
	"net/url"
	"sort"
	"time"
)

// CrawlReport is the final snapshot of one crawl run.
// It is produced by the frontier when the run ends and is the only structure
// reporters and the history database consume; nothing in it refers back to
// live crawl state.
type CrawlReport struct {
	// Target is the normalized seed URL the crawl started from.
	Target string `json:"target"`

	// Host is the origin host the crawl was restricted to.
	// Used for report file naming and history lookups.
	Host string `json:"host"`

	// MaxDepth is the configured depth bound for this run.
	MaxDepth int `json:"max_depth"`

	// Workers is the configured worker count for this run.
	Workers int `json:"workers"`

	// Stats holds the request counters for the run.
	Stats Stats `json:"stats"`

	// Visits maps each normalized URL to its visit outcome.
	// Every URL that won a claim during the run has exactly one entry.
	Visits map[string]VisitRecord `json:"visits"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is set when the run was cut short by an operator
	// interrupt; the report then holds partial state.
	Interrupted bool `json:"interrupted,omitempty"`

	// Error holds a run-level failure message, currently only set when
	// the seed URL itself was unreachable.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for the given normalized target URL.
// The origin host is derived from the target.
func NewCrawlReport(target string) *CrawlReport {
	host := ""
	if u, err := url.Parse(target); err == nil {
		host = u.Host
	}
	return &CrawlReport{
		Target: target,
		Host:   host,
		Visits: make(map[string]VisitRecord),
		Stats:  Stats{StartTime: time.Now()},
	}
}

// URLs returns every visited URL in sorted order.
func (r *CrawlReport) URLs() []string {
	urls := make([]string, 0, len(r.Visits))
	for u := range r.Visits {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// SuccessfulVisits returns the records of fetches that produced an HTTP
// response, sorted by URL.
func (r *CrawlReport) SuccessfulVisits() []VisitRecord {
	return r.selectVisits(func(v VisitRecord) bool { return !v.Failed() })
}

// FailedVisits returns the records of fetches that failed at the transport
// layer, sorted by URL.
func (r *CrawlReport) FailedVisits() []VisitRecord {
	return r.selectVisits(VisitRecord.Failed)
}

// selectVisits returns the records matching keep, sorted by URL.
func (r *CrawlReport) selectVisits(keep func(VisitRecord) bool) []VisitRecord {
	records := make([]VisitRecord, 0, len(r.Visits))
	for _, v := range r.Visits {
		if keep(v) {
			records = append(records, v)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].URL < records[j].URL })
	return records
}

// StatusHistogram returns a count of successful visits per HTTP status code.
// Failed fetches are not included; they are counted in Stats.FailedRequests.
func (r *CrawlReport) StatusHistogram() map[int]int {
	hist := make(map[int]int)
	for _, v := range r.Visits {
		if !v.Failed() {
			hist[v.StatusCode]++
		}
	}
	return hist
}

// StatusCodes returns the distinct status codes present in the report,
// sorted ascending. Pairs with StatusHistogram for deterministic output.
func (r *CrawlReport) StatusCodes() []int {
	hist := r.StatusHistogram()
	codes := make([]int, 0, len(hist))
	for code := range hist {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// ByCategory groups every visited URL by its display category.
// URLs within a category are sorted.
func (r *CrawlReport) ByCategory() map[Category][]string {
	groups := make(map[Category][]string)
	for _, u := range r.URLs() {
		c := ClassifyURL(u)
		groups[c] = append(groups[c], u)
	}
	return groups
}

// Duration returns how long the run took.
// Zero if the report has no finish time yet.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.Stats.StartTime.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.Stats.StartTime)
}

// MaxObservedDepth returns the largest depth recorded in the report.
func (r *CrawlReport) MaxObservedDepth() int {
	maxDepth := 0
	for _, v := range r.Visits {
		if v.Depth > maxDepth {
			maxDepth = v.Depth
		}
	}
	return maxDepth
}
