package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// skippedExtensions lists path suffixes that are fetched as opaque binary
// content and never contain further paths. CSS and JavaScript are absent
// on purpose: both regularly embed endpoint paths and are worth mining.
var skippedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".ico", ".svg",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp4", ".mp3", ".avi", ".mov", ".wmv", ".flv",
	".woff", ".woff2", ".ttf", ".eot",
	".zip", ".rar", ".tar", ".gz", ".7z",
}

// unsupportedSchemePrefixes are link schemes that can never be crawled.
// They are checked as raw string prefixes so that values like
// "javascript:void(0)" are rejected before URL parsing.
var unsupportedSchemePrefixes = []string{"javascript:", "mailto:", "tel:"}

// Normalizer canonicalizes URL strings into a comparable form scoped to a
// single crawl origin. Two URLs identify the same resource exactly when
// their normalized strings are equal, which makes the normalized form the
// deduplication key for the whole crawl.
//
// The canonical form is: lowercase scheme and host, no fragment, no query,
// no userinfo, path "/" when empty, and no trailing slash except on the
// root path.
type Normalizer struct {
	// scheme is the crawl origin's scheme, substituted into
	// scheme-relative references.
	scheme string

	// host is the crawl origin's host (including port when present).
	// URLs resolving to any other host are rejected.
	host string

	// seed is the canonical form of the URL the Normalizer was
	// constructed from.
	seed string
}

// NewNormalizer creates a Normalizer whose origin is derived from seedURL.
// A seed without a scheme is treated as HTTP, so "example.com" and
// "http://example.com" configure the same origin.
func NewNormalizer(seedURL string) (*Normalizer, error) {
	raw := strings.TrimSpace(seedURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrMalformedURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedURL, seedURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrMalformedURL, seedURL)
	}

	n := &Normalizer{
		scheme: scheme,
		host:   strings.ToLower(u.Host),
	}

	seed, err := n.Normalize(raw, "")
	if err != nil {
		return nil, err
	}
	n.seed = seed

	return n, nil
}

// Seed returns the canonical form of the seed URL, the first URL every
// crawl visits.
func (n *Normalizer) Seed() string {
	return n.seed
}

// Origin returns the canonical root URL of the crawl origin. Paths mined
// from free text resolve against this, not against the page they were
// found on.
func (n *Normalizer) Origin() string {
	return n.scheme + "://" + n.host + "/"
}

// Host returns the origin host the crawl is pinned to.
func (n *Normalizer) Host() string {
	return n.host
}

// Normalize canonicalizes rawURL. Relative references resolve against
// baseURL first; anything still missing a scheme or host afterward takes
// the origin's defaults. The returned string is deterministic: equal
// inputs always produce byte-identical output, and normalizing an already
// normalized URL returns it unchanged.
//
// Rejections are sentinel errors the caller is expected to drop silently:
// ErrUnsupportedScheme, ErrCrossOrigin, ErrSkippedExtension, and
// ErrMalformedURL for input that cannot be parsed at all.
func (n *Normalizer) Normalize(rawURL, baseURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", ErrMalformedURL)
	}

	lower := strings.ToLower(raw)
	for _, prefix := range unsupportedSchemePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, rawURL, err)
	}

	if !u.IsAbs() && baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("%w: base %q: %v", ErrMalformedURL, baseURL, err)
		}
		u = base.ResolveReference(u)
	}

	if u.Scheme == "" {
		u.Scheme = n.scheme
	}
	if u.Host == "" {
		u.Host = n.host
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	u.Host = strings.ToLower(u.Host)
	if u.Host != n.host {
		return "", fmt.Errorf("%w: host %q, origin %q", ErrCrossOrigin, u.Host, n.host)
	}

	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""

	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = u.Path[:len(u.Path)-1]
		u.RawPath = ""
	}

	pathLower := strings.ToLower(u.Path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(pathLower, ext) {
			return "", fmt.Errorf("%w: %q", ErrSkippedExtension, ext)
		}
	}

	return u.String(), nil
}
