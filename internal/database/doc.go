// Package database provides SQLite-based storage for pathscan crawl history.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run with its counters and timing
//   - Every visited URL with status, depth, and error details
//   - The full report as JSON so past runs can be re-rendered
//
// SQLite (via modernc.org/sqlite) keeps the history in a single file
// without CGO, and WAL mode allows reads while a crawl is being saved.
// Runs for the same host accumulate over time, which is what the diff
// command compares.
package database
