package crawler

import "errors"

var (
	// ErrMalformedURL is returned when a URL cannot be parsed.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrUnsupportedScheme is returned for non-HTTP(S) schemes such as
	// javascript:, mailto:, and tel:.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrCrossOrigin is returned when a URL points at a host other than
	// the crawl origin.
	ErrCrossOrigin = errors.New("URL is outside the crawl origin")

	// ErrSkippedExtension is returned for URLs whose path ends in a file
	// extension that never leads to more paths (images, archives, fonts).
	ErrSkippedExtension = errors.New("skipped file extension")

	// ErrTargetUnreachable is returned when the seed URL cannot be
	// reached at all, so the crawl cannot start.
	ErrTargetUnreachable = errors.New("target unreachable")
)
