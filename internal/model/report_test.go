package model

import (
	"testing"
	"time"
)

// TestNewCrawlReport tests the CrawlReport constructor.
func TestNewCrawlReport(t *testing.T) {
	t.Parallel()

	target := "http://example.com/start"
	report := NewCrawlReport(target)

	t.Run("sets target", func(t *testing.T) {
		t.Parallel()
		if report.Target != target {
			t.Errorf("got %q, expected %q", report.Target, target)
		}
	})

	t.Run("derives host from target", func(t *testing.T) {
		t.Parallel()
		if report.Host != "example.com" {
			t.Errorf("got host %q, expected %q", report.Host, "example.com")
		}
	})

	t.Run("initializes Visits map", func(t *testing.T) {
		t.Parallel()
		if report.Visits == nil {
			t.Error("expected Visits to be initialized")
		}
	})

	t.Run("sets start time", func(t *testing.T) {
		t.Parallel()
		if report.Stats.StartTime.IsZero() {
			t.Error("expected StartTime to be set")
		}
		if time.Since(report.Stats.StartTime) > time.Second {
			t.Error("StartTime is too old")
		}
	})

	t.Run("keeps host and port together", func(t *testing.T) {
		t.Parallel()
		withPort := NewCrawlReport("http://example.com:8080/")
		if withPort.Host != "example.com:8080" {
			t.Errorf("got host %q, expected %q", withPort.Host, "example.com:8080")
		}
	})
}

// testReport builds a report with a fixed mix of visits for helper tests.
func testReport() *CrawlReport {
	report := NewCrawlReport("http://example.com/")
	report.Visits["http://example.com/"] = NewSuccessRecord("http://example.com/", 200, "text/html", 100, "Home", 0)
	report.Visits["http://example.com/admin"] = NewSuccessRecord("http://example.com/admin", 403, "text/html", 50, "", 1)
	report.Visits["http://example.com/api/users"] = NewSuccessRecord("http://example.com/api/users", 200, "application/json", 30, "", 2)
	report.Visits["http://example.com/about"] = NewSuccessRecord("http://example.com/about", 200, "text/html", 80, "About", 1)
	report.Visits["http://example.com/broken"] = NewFailureRecord("http://example.com/broken", ErrorKindTimeout, "deadline exceeded", 1)
	return report
}

// TestCrawlReportURLs tests that URLs returns every visit sorted.
func TestCrawlReportURLs(t *testing.T) {
	t.Parallel()

	report := testReport()
	urls := report.URLs()

	if len(urls) != 5 {
		t.Fatalf("got %d URLs, expected 5", len(urls))
	}

	expected := []string{
		"http://example.com/",
		"http://example.com/about",
		"http://example.com/admin",
		"http://example.com/api/users",
		"http://example.com/broken",
	}
	for i, u := range expected {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, expected %q", i, urls[i], u)
		}
	}
}

// TestCrawlReportVisitFilters tests the success and failure selectors.
func TestCrawlReportVisitFilters(t *testing.T) {
	t.Parallel()

	report := testReport()

	t.Run("SuccessfulVisits excludes failures", func(t *testing.T) {
		t.Parallel()

		visits := report.SuccessfulVisits()
		if len(visits) != 4 {
			t.Fatalf("got %d successful visits, expected 4", len(visits))
		}
		for _, v := range visits {
			if v.Failed() {
				t.Errorf("unexpected failed record %q", v.URL)
			}
		}
	})

	t.Run("FailedVisits holds only failures", func(t *testing.T) {
		t.Parallel()

		visits := report.FailedVisits()
		if len(visits) != 1 {
			t.Fatalf("got %d failed visits, expected 1", len(visits))
		}
		if visits[0].URL != "http://example.com/broken" {
			t.Errorf("got %q", visits[0].URL)
		}
	})

	t.Run("results are sorted by URL", func(t *testing.T) {
		t.Parallel()

		visits := report.SuccessfulVisits()
		for i := 1; i < len(visits); i++ {
			if visits[i-1].URL >= visits[i].URL {
				t.Errorf("visits out of order: %q before %q", visits[i-1].URL, visits[i].URL)
			}
		}
	})
}

// TestCrawlReportStatusHistogram tests status code counting.
func TestCrawlReportStatusHistogram(t *testing.T) {
	t.Parallel()

	report := testReport()
	hist := report.StatusHistogram()

	if hist[200] != 3 {
		t.Errorf("got %d for status 200, expected 3", hist[200])
	}
	if hist[403] != 1 {
		t.Errorf("got %d for status 403, expected 1", hist[403])
	}

	t.Run("failures are not counted", func(t *testing.T) {
		t.Parallel()
		if hist[0] != 0 {
			t.Errorf("got %d for status 0, expected 0", hist[0])
		}
	})

	t.Run("StatusCodes returns sorted distinct codes", func(t *testing.T) {
		t.Parallel()

		codes := report.StatusCodes()
		if len(codes) != 2 {
			t.Fatalf("got %d codes, expected 2", len(codes))
		}
		if codes[0] != 200 || codes[1] != 403 {
			t.Errorf("got codes %v, expected [200 403]", codes)
		}
	})
}

// TestCrawlReportByCategory tests category grouping.
func TestCrawlReportByCategory(t *testing.T) {
	t.Parallel()

	report := testReport()
	groups := report.ByCategory()

	if len(groups[CategoryAdmin]) != 1 {
		t.Errorf("got %d admin URLs, expected 1", len(groups[CategoryAdmin]))
	}
	if len(groups[CategoryAPI]) != 1 {
		t.Errorf("got %d api URLs, expected 1", len(groups[CategoryAPI]))
	}
	if len(groups[CategoryOther]) != 3 {
		t.Errorf("got %d other URLs, expected 3", len(groups[CategoryOther]))
	}
}

// TestCrawlReportDuration tests elapsed time calculation.
func TestCrawlReportDuration(t *testing.T) {
	t.Parallel()

	t.Run("zero before run finishes", func(t *testing.T) {
		t.Parallel()

		report := NewCrawlReport("http://example.com/")
		if report.Duration() != 0 {
			t.Errorf("got %v, expected 0", report.Duration())
		}
	})

	t.Run("difference of start and finish", func(t *testing.T) {
		t.Parallel()

		report := NewCrawlReport("http://example.com/")
		report.Stats.StartTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		report.FinishedAt = time.Date(2025, 6, 1, 12, 0, 42, 0, time.UTC)

		if report.Duration() != 42*time.Second {
			t.Errorf("got %v, expected 42s", report.Duration())
		}
	})
}

// TestCrawlReportMaxObservedDepth tests the depth helper.
func TestCrawlReportMaxObservedDepth(t *testing.T) {
	t.Parallel()

	t.Run("zero for empty report", func(t *testing.T) {
		t.Parallel()

		report := NewCrawlReport("http://example.com/")
		if report.MaxObservedDepth() != 0 {
			t.Errorf("got %d, expected 0", report.MaxObservedDepth())
		}
	})

	t.Run("largest recorded depth", func(t *testing.T) {
		t.Parallel()

		report := testReport()
		if report.MaxObservedDepth() != 2 {
			t.Errorf("got %d, expected 2", report.MaxObservedDepth())
		}
	})
}
