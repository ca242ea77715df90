package report

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pathscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing: summary tables, a mermaid status chart, and per-category
// path tables rendered with GitHub-flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeStatusCodes(md, report)
	w.writePaths(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Pathscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Finished", report.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"URLs Visited", strconv.Itoa(len(report.Visits))},
			{"Depth", fmt.Sprintf("%d of %d allowed", report.MaxObservedDepth(), report.MaxDepth)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

// writeSummary writes the request counter summary and directs attention
// at the most interesting discoveries.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Request Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Total Requests", strconv.Itoa(report.Stats.TotalRequests)},
			{"Successful", strconv.Itoa(report.Stats.SuccessfulRequests)},
			{"Failed", strconv.Itoa(report.Stats.FailedRequests)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert writes an alert keyed to the most interesting category found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	groups := report.ByCategory()

	switch {
	case len(groups[model.CategoryAdmin]) > 0:
		md.Warningf(
			"%d administrative path(s) are reachable. Verify they are meant to be exposed.",
			len(groups[model.CategoryAdmin]),
		)
	case len(groups[model.CategoryAPI]) > 0:
		md.Importantf(
			"%d API endpoint(s) discovered. Review them for unauthenticated access.",
			len(groups[model.CategoryAPI]),
		)
	case len(groups[model.CategoryLogin]) > 0:
		md.Note(fmt.Sprintf("%d authentication entry point(s) discovered.", len(groups[model.CategoryLogin])))
	case len(report.Visits) > 1:
		md.Note("No high-interest paths discovered; see the full listing below.")
	default:
		md.Tip("Only the seed URL was reachable.")
	}
	md.PlainText("")
}

// writeStatusCodes writes the status histogram table and pie chart.
func (w *MarkdownWriter) writeStatusCodes(md *markdown.Markdown, report *model.CrawlReport) {
	hist := report.StatusHistogram()
	if len(hist) == 0 {
		return
	}

	md.H2("Status Codes")
	md.PlainText("")

	rows := make([][]string, 0, len(hist))
	for _, code := range report.StatusCodes() {
		rows = append(rows, []string{
			fmt.Sprintf("%d %s", code, http.StatusText(code)),
			strconv.Itoa(hist[code]),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("HTTP Status Distribution"),
		piechart.WithShowData(true),
	)

	hist := report.StatusHistogram()
	for _, code := range report.StatusCodes() {
		chart.LabelAndIntValue(strconv.Itoa(code), uint64(hist[code]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePaths writes discovered URLs grouped by display category.
func (w *MarkdownWriter) writePaths(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Discovered Paths")
	md.PlainText("")

	if len(report.Visits) == 0 {
		md.PlainText("No URLs were visited.")
		md.PlainText("")
		return
	}

	groups := report.ByCategory()
	for _, category := range model.Categories {
		urls := groups[category]
		if len(urls) == 0 {
			continue
		}

		md.PlainTextf("### %s", category)
		md.PlainText("")
		w.writePathTable(md, report, urls)
	}
}

// writePathTable writes one table of URLs with their visit outcomes.
func (w *MarkdownWriter) writePathTable(md *markdown.Markdown, report *model.CrawlReport, urls []string) {
	rows := make([][]string, 0, len(urls))
	for _, u := range urls {
		record := report.Visits[u]

		status := "-"
		if !record.Failed() {
			status = strconv.Itoa(record.StatusCode)
		}
		title := record.Title
		if title == "" {
			title = "-"
		}

		rows = append(rows, []string{
			"`" + u + "`",
			status,
			strconv.Itoa(record.Depth),
			truncateString(title, 40),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Depth", "Title"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the transport failure table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport) {
	failed := report.FailedVisits()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Fetches")
	md.PlainText("")

	rows := make([][]string, 0, len(failed))
	for _, record := range failed {
		rows = append(rows, []string{
			"`" + record.URL + "`",
			record.ErrorKind.String(),
			truncateString(record.Error, 60),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pathscan](https://github.com/nao1215/pathscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
