package report

import (
	"io"
	"strings"

	"github.com/nao1215/pathscan/internal/model"
)

// URLListWriter outputs nothing but the visited URLs, one per line,
// sorted. This is the feed format for other tools (fuzzers, scanners,
// diff scripts) that want a wordlist rather than a report.
type URLListWriter struct {
	baseWriter
}

// NewURLListWriter creates a URLListWriter that outputs to the given writer.
func NewURLListWriter(output io.Writer) *URLListWriter {
	return &URLListWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs every visited URL on its own line.
func (w *URLListWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder
	for _, u := range report.URLs() {
		sb.WriteString(u)
		sb.WriteString("\n")
	}
	return w.output.Write([]byte(sb.String()))
}
