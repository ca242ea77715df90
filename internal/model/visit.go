package model

import "time"

// ErrorKind classifies why a fetch failed.
// The fetch layer assigns a kind to every transport failure so that callers
// can branch on the class of failure instead of matching error strings.
type ErrorKind int

const (
	// ErrorKindNone means the fetch did not fail.
	// This is the zero value carried by successful VisitRecords.
	ErrorKindNone ErrorKind = iota

	// ErrorKindConnection indicates the TCP connection could not be
	// established (refused, reset, unreachable host).
	// A connection failure on the seed URL terminates the run early.
	ErrorKindConnection

	// ErrorKindTimeout indicates the request exceeded the configured
	// deadline before a response was received.
	ErrorKindTimeout

	// ErrorKindOther covers any remaining transport or protocol failure.
	// The original error message is preserved in VisitRecord.Error.
	ErrorKindOther
)

// String returns a human-readable representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindConnection:
		return "connection"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindOther:
		return "other"
	default:
		return "unknown"
	}
}

// VisitRecord is the outcome of visiting a single normalized URL.
// Exactly one record exists per URL per run; the record is created once
// (first-write-wins in the frontier) and never mutated afterward.
type VisitRecord struct {
	// URL is the normalized URL this record belongs to.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	// Zero for records of failed fetches.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the MIME type of the response.
	// Extracted from the Content-Type header for convenience.
	ContentType string `json:"content_type,omitempty"`

	// ContentLength is the number of body bytes that were read.
	// This is the decoded length, not the on-wire Content-Length header.
	ContentLength int `json:"content_length,omitempty"`

	// Title is the page title extracted from the <title> tag.
	// Empty for non-HTML content and failed fetches.
	Title string `json:"title,omitempty"`

	// Depth is the number of link hops from the seed URL.
	// Never exceeds the run's configured maximum depth.
	Depth int `json:"depth"`

	// Timestamp is when the fetch completed.
	Timestamp time.Time `json:"timestamp"`

	// ErrorKind classifies the failure for failed fetches.
	// ErrorKindNone for successful fetches.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Error is the failure message for failed fetches.
	// Empty for successful fetches; Failed() keys off this field
	// being set together with ErrorKind.
	Error string `json:"error,omitempty"`
}

// NewSuccessRecord creates a VisitRecord for a completed HTTP exchange.
// Non-2xx responses are still successes at this layer: the server answered,
// and the body (if any) is mined for links like any other.
func NewSuccessRecord(url string, statusCode int, contentType string, contentLength int, title string, depth int) VisitRecord {
	return VisitRecord{
		URL:           url,
		StatusCode:    statusCode,
		ContentType:   contentType,
		ContentLength: contentLength,
		Title:         title,
		Depth:         depth,
		Timestamp:     time.Now(),
	}
}

// NewFailureRecord creates a VisitRecord for a fetch that failed at the
// transport layer.
func NewFailureRecord(url string, kind ErrorKind, message string, depth int) VisitRecord {
	return VisitRecord{
		URL:       url,
		Depth:     depth,
		Timestamp: time.Now(),
		ErrorKind: kind,
		Error:     message,
	}
}

// Failed reports whether this record describes a failed fetch.
func (r VisitRecord) Failed() bool {
	return r.ErrorKind != ErrorKindNone
}

// Category returns the display classification for this record's URL.
func (r VisitRecord) Category() Category {
	return ClassifyURL(r.URL)
}

// Stats holds the request counters for one crawl run.
// Counters are monotonically non-decreasing and are incremented by the
// frontier under its lock; a Stats value read from a CrawlReport is final.
type Stats struct {
	// TotalRequests is the number of fetches attempted.
	TotalRequests int `json:"total_requests"`

	// SuccessfulRequests is the number of fetches that produced an HTTP
	// response, regardless of status code.
	SuccessfulRequests int `json:"successful_requests"`

	// FailedRequests is the number of fetches that failed at the
	// transport layer.
	FailedRequests int `json:"failed_requests"`

	// StartTime is when the run began.
	StartTime time.Time `json:"start_time"`
}

// RecordSuccess counts a fetch that produced an HTTP response.
func (s *Stats) RecordSuccess() {
	s.TotalRequests++
	s.SuccessfulRequests++
}

// RecordFailure counts a fetch that failed at the transport layer.
func (s *Stats) RecordFailure() {
	s.TotalRequests++
	s.FailedRequests++
}

// Elapsed returns the time since the run started.
func (s Stats) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}
