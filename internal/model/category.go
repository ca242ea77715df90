package model

import (
	"net/url"
	"strings"
)

// Category classifies a discovered URL for display purposes.
// The classification is derived purely from path substrings; it has no
// bearing on crawl correctness and exists so reports can group the most
// interesting discoveries (admin panels, API endpoints, login pages) first.
type Category int

const (
	// CategoryAdmin marks administrative interfaces and control panels.
	// Examples: /admin, /panel, /dashboard.
	CategoryAdmin Category = iota

	// CategoryAPI marks API endpoints.
	// Examples: /api/v2/users, /graphql.
	CategoryAPI

	// CategoryLogin marks authentication entry points.
	// Examples: /login, /register, /signin.
	CategoryLogin

	// CategoryStatic marks script and stylesheet resources.
	// These are crawled because their bodies are mined for paths.
	CategoryStatic

	// CategoryOther is everything else.
	CategoryOther
)

// Categories lists all categories in display order, most interesting first.
var Categories = []Category{
	CategoryAdmin,
	CategoryAPI,
	CategoryLogin,
	CategoryStatic,
	CategoryOther,
}

// String returns a human-readable representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryAdmin:
		return "ADMIN"
	case CategoryAPI:
		return "API"
	case CategoryLogin:
		return "LOGIN"
	case CategoryStatic:
		return "STATIC"
	case CategoryOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Description returns a short explanation of the category for report output.
func (c Category) Description() string {
	switch c {
	case CategoryAdmin:
		return "Administrative interfaces and control panels"
	case CategoryAPI:
		return "API endpoints"
	case CategoryLogin:
		return "Authentication entry points"
	case CategoryStatic:
		return "Scripts and stylesheets"
	case CategoryOther:
		return "Uncategorized resources"
	default:
		return "Unknown"
	}
}

// ClassifyPath classifies a URL path.
// Checks run most-specific first: a path like /admin/login.js is an admin
// discovery, not a static one.
func ClassifyPath(path string) Category {
	lower := strings.ToLower(path)

	switch {
	case strings.Contains(lower, "admin"),
		strings.Contains(lower, "panel"),
		strings.Contains(lower, "dashboard"):
		return CategoryAdmin
	case strings.Contains(lower, "api"):
		return CategoryAPI
	case strings.Contains(lower, "login"),
		strings.Contains(lower, "register"),
		strings.Contains(lower, "signin"),
		strings.Contains(lower, "auth"):
		return CategoryLogin
	case strings.HasSuffix(lower, ".js"),
		strings.HasSuffix(lower, ".css"):
		return CategoryStatic
	default:
		return CategoryOther
	}
}

// ClassifyURL classifies a full URL by its path component.
// Unparseable URLs fall back to classifying the raw string.
func ClassifyURL(rawURL string) Category {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ClassifyPath(rawURL)
	}
	return ClassifyPath(u.Path)
}
