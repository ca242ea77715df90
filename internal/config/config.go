package config

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These are tuned for reconnaissance of a single ordinary web host; all of
// them can be overridden via CLI flags or the .pathscan configuration file.
const (
	// DefaultCrawlDepth bounds traversal to three link hops from the seed.
	// Depth 0 means only the seed URL is fetched. Larger sites may need
	// this increased via the --depth flag.
	DefaultCrawlDepth = 3

	// DefaultWorkers is the number of concurrent fetch workers per target.
	DefaultWorkers = 5

	// DefaultCrawlDelay is the minimum interval between HTTP requests.
	// This is a politeness setting; the delay is shared across all workers
	// of one crawl, not applied per worker.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultTimeout is the per-request HTTP timeout. It covers the whole
	// request including body read, not just connection establishment.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxBodySize limits how many response bytes are read per URL.
	// Responses larger than this are truncated before link extraction.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultBatchSize is the number of targets crawled concurrently when
	// multiple seed URLs are given.
	DefaultBatchSize = 2

	// DefaultOutputDir is where report artifacts are written.
	DefaultOutputDir = "."

	// DefaultUserAgent is the User-Agent header sent with every request.
	// A browser string rather than a scanner string: reconnaissance targets
	// frequently serve different content (or none) to obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:115.0) Gecko/20100101 Firefox/115.0"

	// AppName is the application name used for XDG directory paths.
	AppName = "pathscan"
)

// Config holds all configuration options for a pathscan invocation.
// It is populated from CLI flags plus the optional configuration file and
// passed through the application via dependency injection rather than
// global state.
type Config struct {
	// Targets is the list of seed URLs to crawl. Bare hosts are accepted;
	// the crawler normalizes them to http:// URLs.
	Targets []string

	// CrawlDepth is the maximum link distance from the seed URL.
	// Depth 0 fetches only the seed itself.
	CrawlDepth int

	// Workers is the number of concurrent fetch workers per target.
	Workers int

	// CrawlDelay is the minimum interval between HTTP requests of one
	// crawl. Zero disables the delay entirely.
	CrawlDelay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated, not rejected.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Insecure disables TLS certificate verification.
	// Reconnaissance targets often present self-signed or expired
	// certificates; this flag lets the crawl proceed anyway.
	Insecure bool

	// OutputDir is the directory report artifacts are written into.
	// Created with 0750 permissions if it does not exist.
	OutputDir string

	// NoSave disables writing report artifact files. The console summary
	// is printed either way.
	NoSave bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of targets crawled concurrently when
	// multiple seed URLs are given.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pathscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	// Populated by LoadConfigFile; nil when no config file was found.
	SiteConfigs *File

	// DBDir is the directory holding the SQLite crawl history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether finished runs are recorded in the crawl
	// history database. Disabled by the --no-db flag.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// Callers override specific fields after creation; the constructor exists
// because most defaults are non-zero.
func NewConfig() *Config {
	return &Config{
		CrawlDepth:  DefaultCrawlDepth,
		Workers:     DefaultWorkers,
		CrawlDelay:  DefaultCrawlDelay,
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
		OutputDir:   DefaultOutputDir,
		BatchSize:   DefaultBatchSize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for pathscan.
// On Linux: ~/.local/share/pathscan
// On macOS: ~/Library/Application Support/pathscan
// On Windows: %LOCALAPPDATA%\pathscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid.
// All violations are reported at once as a joined error; each one matches
// its sentinel via errors.Is.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Targets) == 0 {
		errs = append(errs, ErrNoTarget)
	}
	if c.CrawlDepth < 0 {
		errs = append(errs, ErrInvalidDepth)
	}
	if c.Workers <= 0 {
		errs = append(errs, ErrInvalidWorkers)
	}
	if c.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.CrawlDelay < 0 {
		errs = append(errs, ErrInvalidCrawlDelay)
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, ErrInvalidMaxBodySize)
	}
	if c.BatchSize <= 0 {
		errs = append(errs, ErrInvalidBatchSize)
	}

	return errors.Join(errs...)
}
