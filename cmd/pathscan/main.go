// Package main provides the entry point for the pathscan CLI.
//
// Pathscan is a reconnaissance crawler for web applications. It maps the
// reachable paths of a single origin by following links and mining markup,
// comments, and scripts for path references.
//
// Usage:
//
//	pathscan crawl <url>
//	pathscan history <host>
//	pathscan diff <host>
//
// See --help for all available options.
package main

// main is the entry point for pathscan.
func main() {
	Execute()
}
