package crawler

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// pathPattern is a named regular expression that mines URL or path
// candidates out of document text. Naming every pattern keeps individual
// heuristics testable and lets a broken pattern be skipped without
// losing the others.
type pathPattern struct {
	name        string
	description string
	pattern     *regexp.Regexp
}

// cssURLPattern matches url(...) references in stylesheets and style
// attributes.
var cssURLPattern = regexp.MustCompile(`(?i)url\(["']?([^"')]+)["']?\)`)

// htmlCommentPattern captures HTML comment blocks. Comments are scanned
// separately because developers leave disabled links and internal
// endpoints in them.
var htmlCommentPattern = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// commentPathPattern matches path-shaped substrings inside a comment.
var commentPathPattern = regexp.MustCompile(`(/[a-zA-Z0-9_\-./]+)`)

// Extractor discovers same-origin URL candidates in response bodies. Two
// independent heuristic families run over every body and their results
// are unioned: explicit markup references (DOM walk plus the attribute
// regex family) and free-text path mining (the named pattern table plus
// the comment scan). Every candidate is normalized before it is
// returned, so the output contains only crawlable same-origin URLs.
type Extractor struct {
	normalizer *Normalizer
	logger     *slog.Logger

	// attrPatterns mine link-bearing attribute values out of raw markup
	// text. They run in addition to the DOM walk so that severely
	// malformed documents, inline CSS, and non-HTML bodies (stylesheets,
	// scripts) still yield references. Candidates resolve against the
	// page URL.
	attrPatterns []*pathPattern

	// miningPatterns mine paths out of free text such as inline
	// JavaScript and JSON, independent of any markup structure. Matches
	// resolve against the crawl origin root, not the current page: a
	// quoted "/api/users" in a script means the same endpoint no matter
	// which page served it.
	miningPatterns []*pathPattern
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the logger used for dropped candidates and
// skipped patterns.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor scoped to the normalizer's origin.
func NewExtractor(normalizer *Normalizer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		normalizer: normalizer,
		logger:     slog.Default(),
		attrPatterns: []*pathPattern{
			{
				name:        "href_attr",
				description: "href attribute values in anchors and link elements",
				pattern:     regexp.MustCompile(`(?i)href=["']([^"']+)["']`),
			},
			{
				name:        "src_attr",
				description: "src attribute values in scripts, frames, and media",
				pattern:     regexp.MustCompile(`(?i)src=["']([^"']+)["']`),
			},
			{
				name:        "action_attr",
				description: "form action targets",
				pattern:     regexp.MustCompile(`(?i)action=["']([^"']+)["']`),
			},
			{
				name:        "css_url",
				description: "url(...) references in stylesheets and style attributes",
				pattern:     cssURLPattern,
			},
		},
		miningPatterns: []*pathPattern{
			{
				name:        "quoted_absolute_path",
				description: "quoted strings starting with /",
				pattern:     regexp.MustCompile(`["'](/[^"']+?)["']`),
			},
			{
				name:        "quoted_relative_path",
				description: "quoted strings starting with ./ or ../",
				pattern:     regexp.MustCompile(`["'](\.\.?/[^"']+?)["']`),
			},
			{
				name:        "endpoint_key_value",
				description: "api/endpoint/url/path key-value literals",
				pattern:     regexp.MustCompile(`(?i)(?:api|endpoint|url|path)["']?\s*:\s*["']([^"']+?)["']`),
			},
			{
				name:        "sensitive_path",
				description: "quoted paths under api, admin, dashboard, login, register, or panel",
				pattern:     regexp.MustCompile(`(?i)["'](/(?:api|admin|dashboard|login|register|panel)[^"']*?)["']`),
			},
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract returns the deduplicated, normalized same-origin URLs found in
// body. Markup candidates resolve against baseURL, mined paths against
// the origin root. Extraction never fails: invalid candidates are
// dropped and a misbehaving pattern is skipped, so a partial result is
// always returned.
func (e *Extractor) Extract(baseURL, body string) []string {
	seen := make(map[string]struct{})
	links := make([]string, 0)

	add := func(candidate, base string) {
		normalized, ok := e.cleanCandidate(candidate, base)
		if !ok {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	}

	e.collectMarkup(baseURL, body, add)
	for _, p := range e.attrPatterns {
		e.scanPattern(p, body, func(match string) {
			add(match, baseURL)
		})
	}

	origin := e.normalizer.Origin()
	for _, p := range e.miningPatterns {
		e.scanPattern(p, body, func(match string) {
			add(match, origin)
		})
	}
	e.collectCommentPaths(body, func(match string) {
		add(match, origin)
	})

	return links
}

// cleanCandidate trims a raw candidate, strips its fragment and query,
// filters uncrawlable schemes, and normalizes the rest. The boolean
// reports whether the candidate survived.
func (e *Extractor) cleanCandidate(candidate, base string) (string, bool) {
	link := strings.TrimSpace(candidate)
	if link == "" {
		return "", false
	}

	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	if i := strings.IndexByte(link, '?'); i >= 0 {
		link = link[:i]
	}
	if link == "" {
		return "", false
	}

	lower := strings.ToLower(link)
	for _, prefix := range unsupportedSchemePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}
	if strings.HasPrefix(lower, "data:") {
		return "", false
	}

	normalized, err := e.normalizer.Normalize(link, base)
	if err != nil {
		e.logger.Debug("dropped link candidate",
			slog.String("candidate", link),
			slog.Any("reason", err))
		return "", false
	}

	return normalized, true
}

// collectMarkup walks the parsed DOM and emits link-bearing attribute
// values: href on anchors and link elements, src on scripts, frames, and
// embedded media, action on forms, and url(...) references inside style
// elements and attributes.
func (e *Extractor) collectMarkup(baseURL, body string, add func(candidate, base string)) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("markup walk skipped", slog.Any("panic", r))
		}
	}()

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "link":
				if href := getAttr(n, "href"); href != "" {
					add(href, baseURL)
				}
			case "script", "img", "iframe", "frame", "embed", "source":
				if src := getAttr(n, "src"); src != "" {
					add(src, baseURL)
				}
			case "form":
				if action := getAttr(n, "action"); action != "" {
					add(action, baseURL)
				}
			case "style":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					for _, m := range cssURLPattern.FindAllStringSubmatch(n.FirstChild.Data, -1) {
						add(m[1], baseURL)
					}
				}
			}
			if style := getAttr(n, "style"); style != "" {
				for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
					add(m[1], baseURL)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

// scanPattern runs one mining pattern over the body. A panic inside a
// pattern is swallowed so the remaining patterns still contribute.
func (e *Extractor) scanPattern(p *pathPattern, body string, emit func(match string)) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("path pattern skipped",
				slog.String("pattern", p.name),
				slog.Any("panic", r))
		}
	}()

	for _, m := range p.pattern.FindAllStringSubmatch(body, -1) {
		if len(m) > 1 && m[1] != "" {
			emit(m[1])
		}
	}
}

// collectCommentPaths scans HTML comment blocks for path-shaped
// substrings.
func (e *Extractor) collectCommentPaths(body string, emit func(match string)) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("comment scan skipped", slog.Any("panic", r))
		}
	}()

	for _, comment := range htmlCommentPattern.FindAllStringSubmatch(body, -1) {
		if len(comment) < 2 {
			continue
		}
		for _, m := range commentPathPattern.FindAllStringSubmatch(comment[1], -1) {
			if len(m) > 1 {
				emit(m[1])
			}
		}
	}
}

// ExtractTitle returns the trimmed text of the first <title> element in
// body, or "" when the document has none.
func ExtractTitle(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return title
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
