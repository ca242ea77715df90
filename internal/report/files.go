package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/pathscan/internal/model"
)

// Artifacts writes every report format for one run into an output
// directory. File names carry the origin host and the run timestamp so
// consecutive runs against the same target never overwrite each other.
type Artifacts struct {
	dir     string
	version string
}

// NewArtifacts creates an artifact writer rooted at dir.
func NewArtifacts(dir, version string) *Artifacts {
	return &Artifacts{dir: dir, version: version}
}

// Save writes the text, JSON, URL list, and Markdown artifacts for the
// report and returns the paths written, in write order. The output
// directory is created on demand. Reports can contain sensitive paths,
// so artifacts are readable only by the owner.
func (a *Artifacts) Save(report *model.CrawlReport) ([]string, error) {
	if err := os.MkdirAll(a.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", a.dir, err)
	}

	base := a.baseName(report)

	files := []struct {
		name  string
		build func(io.Writer) Writer
	}{
		{base + ".txt", func(out io.Writer) Writer { return NewTextWriter(out, WithShowAll()) }},
		{base + ".json", func(out io.Writer) Writer { return NewFullJSONWriter(out, a.version, WithPrettyPrint()) }},
		{base + ".md", func(out io.Writer) Writer { return NewMarkdownWriter(out) }},
		{base + "_urls.txt", func(out io.Writer) Writer { return NewURLListWriter(out) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if _, err := f.build(&buf).Write(report); err != nil {
			return paths, fmt.Errorf("failed to render %s: %w", f.name, err)
		}

		path := filepath.Join(a.dir, f.name)
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// baseName builds the shared artifact file stem for one run.
func (a *Artifacts) baseName(report *model.CrawlReport) string {
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return fmt.Sprintf("crawl_%s_%s", sanitizeHost(report.Host), finished.Format("20060102_150405"))
}

// sanitizeHost makes an origin host safe to embed in a file name.
// The port separator is the only character a valid host can carry that
// file systems object to.
func sanitizeHost(host string) string {
	if host == "" {
		return "unknown"
	}
	return strings.ReplaceAll(host, ":", "_")
}
