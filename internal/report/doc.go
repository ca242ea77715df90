// Package report renders crawl reports for people and for tools.
//
// This package contains writers for different output formats:
//   - TextWriter: human-readable terminal report grouped by status code
//   - JSONWriter: structured JSON for tool integration
//   - URLListWriter: flat sorted URL list for feeding other tools
//   - MarkdownWriter: shareable Markdown with tables and charts
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter for multi-format
// output. Artifacts bundles all of them to write the on-disk result
// files for one run.
package report
