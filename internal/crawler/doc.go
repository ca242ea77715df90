// Package crawler implements the crawl engine: URL normalization, link
// extraction, frontier state, and the bounded-concurrency fetch
// scheduler.
//
// # Architecture
//
// The engine is built from four pieces that compose in one direction:
//
//   - Normalizer: canonicalizes URLs into the deduplication key and
//     pins every candidate to the crawl origin.
//   - Extractor: mines same-origin URL candidates out of response
//     bodies using markup parsing and free-text path patterns.
//   - Frontier: the per-run mutable state (visited set, FIFO queue,
//     visit records, counters) behind a single mutex.
//   - Scheduler: the control loop that claims URLs, dispatches fetches
//     to a worker pool, and feeds discovered links back in at depth+1.
//
// BatchCrawler layers multi-target runs on top, one scheduler run per
// target with bounded concurrency.
//
// # Traversal
//
// The FIFO frontier gives breadth-first order subject to worker
// concurrency: depth is a monotonic upper bound, not a strict
// wavefront. A URL is fetched at most once per run, enforced by the
// frontier's atomic claim. Non-2xx responses count as visits and their
// bodies are still mined, because error pages disclose paths in
// practice.
//
// # Usage
//
//	client := fetch.NewClient()
//	scheduler := crawler.NewScheduler(client, crawler.WithMaxDepth(3))
//	report, err := scheduler.Run(ctx, "https://example.com")
package crawler
