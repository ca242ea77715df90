// Package config provides configuration structures and utilities for pathscan.
// It defines the crawl options populated from CLI flags, per-site overrides
// loaded from the .pathscan configuration file, and output preferences.
package config
