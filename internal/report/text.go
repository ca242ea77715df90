package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pathscan/internal/model"
)

// defaultMaxListed caps how many URLs each category section shows
// before truncating with a summary line.
const defaultMaxListed = 20

// TextWriter outputs human-readable text reports.
// The format is plain ASCII so it reads the same in a terminal, a pipe,
// and the saved .txt artifact: a run summary, the status code histogram,
// every visited URL grouped by status code, transport failures, and a
// category breakdown that surfaces the interesting discoveries first.
type TextWriter struct {
	baseWriter

	// maxListed caps URLs shown per category section.
	maxListed int

	// verbose adds per-URL detail (depth, content type, title) to the
	// status-grouped listing.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with per-URL details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// WithShowAll lifts the per-category listing cap.
func WithShowAll() TextWriterOption {
	return func(w *TextWriter) {
		w.maxListed = 0
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		maxListed:  defaultMaxListed,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *TextWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeStatusCodes(&sb, report)
	w.writeStatusGroups(&sb, report)
	w.writeFailures(&sb, report)
	w.writeCategories(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *TextWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          PATHSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target:        %s\n", report.Target))
	if !report.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Finished:      %s\n", report.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("URLs Visited:  %d\n", len(report.Visits)))

	switch {
	case report.Interrupted:
		sb.WriteString("Status:        INTERRUPTED (partial results)\n")
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:        ERROR - %s\n", report.Error))
	default:
		sb.WriteString("Status:        Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the request counters section.
func (w *TextWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	w.sectionHeader(sb, "SUMMARY")

	sb.WriteString(fmt.Sprintf("  Elapsed:        %s\n", report.Duration().Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("  Total Requests: %d\n", report.Stats.TotalRequests))
	sb.WriteString(fmt.Sprintf("  Successful:     %d\n", report.Stats.SuccessfulRequests))
	sb.WriteString(fmt.Sprintf("  Failed:         %d\n", report.Stats.FailedRequests))
	sb.WriteString(fmt.Sprintf("  Depth:          %d of %d allowed\n", report.MaxObservedDepth(), report.MaxDepth))
	sb.WriteString("\n")
}

// writeStatusCodes writes the HTTP status histogram.
func (w *TextWriter) writeStatusCodes(sb *strings.Builder, report *model.CrawlReport) {
	hist := report.StatusHistogram()
	if len(hist) == 0 {
		return
	}

	w.sectionHeader(sb, "STATUS CODES")

	for _, code := range report.StatusCodes() {
		sb.WriteString(fmt.Sprintf("  %d: %d\n", code, hist[code]))
	}
	sb.WriteString("\n")
}

// writeStatusGroups writes every visited URL grouped by status code.
func (w *TextWriter) writeStatusGroups(sb *strings.Builder, report *model.CrawlReport) {
	groups := make(map[int][]model.VisitRecord)
	for _, record := range report.SuccessfulVisits() {
		groups[record.StatusCode] = append(groups[record.StatusCode], record)
	}
	if len(groups) == 0 {
		return
	}

	w.sectionHeader(sb, "DISCOVERED URLS")

	for _, code := range report.StatusCodes() {
		records := groups[code]
		sb.WriteString(fmt.Sprintf("[%d] (%d)\n", code, len(records)))
		for _, record := range records {
			sb.WriteString(fmt.Sprintf("  %s\n", record.URL))
			if w.verbose {
				sb.WriteString(fmt.Sprintf("    depth=%d", record.Depth))
				if record.ContentType != "" {
					sb.WriteString(fmt.Sprintf(" type=%s", record.ContentType))
				}
				if record.Title != "" {
					sb.WriteString(fmt.Sprintf(" title=%q", record.Title))
				}
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}
}

// writeFailures writes the transport failure section.
func (w *TextWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	failed := report.FailedVisits()
	if len(failed) == 0 {
		return
	}

	w.sectionHeader(sb, "FAILED FETCHES")

	for _, record := range failed {
		sb.WriteString(fmt.Sprintf("  %s\n", record.URL))
		sb.WriteString(fmt.Sprintf("    %s: %s\n", record.ErrorKind, record.Error))
	}
	sb.WriteString("\n")
}

// writeCategories writes visited URLs grouped by display category,
// most interesting first, each annotated with its status code.
func (w *TextWriter) writeCategories(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Visits) < 2 {
		return
	}

	groups := report.ByCategory()

	w.sectionHeader(sb, "PATHS BY CATEGORY")

	for _, category := range model.Categories {
		urls := groups[category]
		if len(urls) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("  [%s] %s (%d)\n", category, category.Description(), len(urls)))

		shown := urls
		if w.maxListed > 0 && len(shown) > w.maxListed {
			shown = shown[:w.maxListed]
		}
		for _, u := range shown {
			record := report.Visits[u]
			status := "N/A"
			if !record.Failed() {
				status = fmt.Sprintf("%d", record.StatusCode)
			}
			sb.WriteString(fmt.Sprintf("    [%s] %s\n", status, u))
		}
		if hidden := len(urls) - len(shown); hidden > 0 {
			sb.WriteString(fmt.Sprintf("    ... %d more not shown\n", hidden))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by pathscan\n")
	sb.WriteString("https://github.com/nao1215/pathscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// sectionHeader writes a dashed section divider with a title.
func (w *TextWriter) sectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
