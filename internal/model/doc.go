// Package model defines the core data structures used throughout PathScan.
//
// This package contains the following main types:
//   - VisitRecord: The immutable outcome of fetching a single URL
//   - Stats: Request counters for one crawl run
//   - CrawlReport: The final snapshot of a run, consumed by reporters
//   - Category: Display classification of discovered paths
//
// Multiple packages (crawler, report, database) need to use these types,
// so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
