package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/crawler"
	"github.com/nao1215/pathscan/internal/database"
	"github.com/nao1215/pathscan/internal/fetch"
	"github.com/nao1215/pathscan/internal/log"
	"github.com/nao1215/pathscan/internal/model"
	"github.com/nao1215/pathscan/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]...",
		Short: "Crawl a web origin and map its reachable paths",
		Long: `Crawl maps the reachable paths of one or more web origins.

Starting from each seed URL it follows links to a bounded depth, staying on
the seed's host, and mines every response for path references: anchors,
forms, scripts, HTML comments, and path-like strings in free text. Error
pages are mined too, since they frequently disclose internal paths.

Each run prints a summary grouped by status code and discovery category,
writes report artifacts (text, JSON, Markdown, URL list), and records the
run in the local history database for later diffing.

Examples:
  # Crawl a single target with defaults
  pathscan crawl https://target.example.com

  # Deeper crawl with more workers and no politeness delay
  pathscan crawl -d 5 -w 10 --delay 0 https://target.example.com

  # Crawl several targets concurrently
  pathscan crawl --batch 4 https://a.example https://b.example

  # Staging host with a self-signed certificate
  pathscan crawl -k https://staging.example.com:8443

  # Print the summary only, keep nothing on disk
  pathscan crawl --no-save --no-db https://target.example.com

Configuration file (.pathscan) example:
  defaults:
    delay: 500ms
  sites:
    internal.example.com:
      cookie: "session=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the seed URL (0 fetches only the seed)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers per target")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests of one crawl (0 disables)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pathscan in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory report artifacts are written into")
	cmd.Flags().Bool("no-save", false,
		"Skip writing report artifact files")
	cmd.Flags().Bool("no-db", false,
		"Skip recording the run in the crawl history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with secret masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received shutdown signal, finishing in-flight fetches...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Insecure, err = cmd.Flags().GetBool("insecure")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.NoSave, err = cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional arguments (seed URLs)
	cfg.Targets = args

	return cfg, nil
}

// runCrawl executes the crawl across all targets.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"depth", cfg.CrawlDepth,
		"workers", cfg.Workers,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Use batch crawling for parallel runs if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}

	// Single target or sequential crawling
	return runSequentialCrawl(ctx, cfg, db, logger)
}

// runSequentialCrawl crawls targets one at a time, applying per-site
// configuration to each.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	failed := 0
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		scheduler := newSchedulerForTarget(cfg, siteConfigFor(cfg, target), logger)

		fmt.Printf("Crawling %s...\n", target)

		crawlReport, err := scheduler.Run(ctx, target)
		if err != nil {
			failed++
			logger.Error("crawl failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", target, err)
			if crawlReport == nil {
				continue
			}
			// An unreachable target still yields a partial report.
		}

		finishRun(ctx, cfg, db, crawlReport, logger)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(cfg.Targets))
	}
	return nil
}

// runBatchCrawl crawls multiple targets concurrently using BatchCrawler.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch crawling uses default site config only; site-specific configs (cookies, headers, depth) are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-site settings.\n\n")
	}

	scheduler := newSchedulerForTarget(cfg, defaultSiteConfig(cfg), logger)
	batchCrawler := crawler.NewBatchCrawler(scheduler,
		crawler.WithBatchConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)

	results := batchCrawler.Run(ctx, cfg.Targets)

	failed := 0
	for i, res := range results {
		fmt.Printf("[%d/%d] Crawl completed: %s\n", i+1, len(results), res.Target)

		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", res.Target, res.Err)
		}
		if res.Report == nil {
			continue
		}

		finishRun(ctx, cfg, db, res.Report, logger)
	}

	fmt.Printf("\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}

// finishRun renders the report, writes artifacts, and records the run.
// Output failures are logged but never abort the remaining targets.
func finishRun(ctx context.Context, cfg *config.Config, db *database.CrawlDB, crawlReport *model.CrawlReport, logger *slog.Logger) {
	if _, err := report.NewTextWriter(os.Stdout).Write(crawlReport); err != nil {
		logger.Error("report rendering failed", "target", crawlReport.Target, "error", err)
	}

	if !cfg.NoSave {
		artifacts := report.NewArtifacts(cfg.OutputDir, getVersion())
		paths, err := artifacts.Save(crawlReport)
		if err != nil {
			logger.Error("failed to save artifacts", "target", crawlReport.Target, "error", err)
			fmt.Fprintf(os.Stderr, "Failed to save report files: %v\n", err)
		} else {
			fmt.Println("Results saved:")
			for _, path := range paths {
				fmt.Printf("  %s\n", path)
			}
			fmt.Println()
		}
	}

	if db != nil {
		// Interrupted runs are recorded too, so the save must survive
		// the canceled crawl context.
		runID, err := db.SaveRun(context.WithoutCancel(ctx), crawlReport)
		if err != nil {
			logger.Error("failed to save run", "target", crawlReport.Target, "error", err)
		} else {
			logger.Info("run saved to history database", "target", crawlReport.Target, "runID", runID)
		}
	}
}

// siteConfigFor returns the merged site configuration for a target URL.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}

	normalizer, err := crawler.NewNormalizer(target)
	if err != nil {
		// An invalid target fails properly once the scheduler runs it.
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(normalizer.Host())
}

// defaultSiteConfig returns the defaults section of the config file.
func defaultSiteConfig(cfg *config.Config) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.Defaults
}

// newSchedulerForTarget creates a scheduler with the given configuration,
// site-specific settings layered over the global ones.
func newSchedulerForTarget(cfg *config.Config, siteCfg config.SiteConfig, logger *slog.Logger) *crawler.Scheduler {
	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithInsecureTLS(cfg.Insecure || siteCfg.Insecure),
		fetch.WithLogger(logger),
	}
	if siteCfg.Cookie != "" {
		fetchOpts = append(fetchOpts, fetch.WithCookie(siteCfg.Cookie))
	}
	if len(siteCfg.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHeaders(siteCfg.Headers))
	}

	depth := cfg.CrawlDepth
	if siteCfg.Depth > 0 {
		depth = siteCfg.Depth
	}
	workers := cfg.Workers
	if siteCfg.Workers > 0 {
		workers = siteCfg.Workers
	}
	delay := cfg.CrawlDelay
	if siteCfg.Delay > 0 {
		delay = siteCfg.Delay.Std()
	}

	return crawler.NewScheduler(fetch.NewClient(fetchOpts...),
		crawler.WithMaxDepth(depth),
		crawler.WithMaxWorkers(workers),
		crawler.WithDelay(delay),
		crawler.WithSchedulerLogger(logger),
	)
}
