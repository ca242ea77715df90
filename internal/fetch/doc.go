// Package fetch provides the HTTP transport for the crawler.
// It issues single GET requests with a browser-like header set, decodes
// compressed and non-UTF-8 response bodies, caps body size, and classifies
// transport failures into the error kinds the crawl engine records.
package fetch
