package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/database"
	"github.com/nao1215/pathscan/internal/model"
	"github.com/spf13/cobra"
)

// NewDiffCmd creates the diff command.
// This command compares crawl runs stored in the local database.
func NewDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [host]",
		Short: "Compare two crawl runs of a host",
		Long: `Diff shows what changed on a host between two crawl runs.

By default the latest two recorded runs are compared. The output lists
URLs that are new, URLs that vanished, and URLs whose status code changed
since the previous run. New administrative or API paths appearing between
reconnaissance runs are usually the findings worth chasing first.

The comparison requires at least two recorded runs for the host. Use
'pathscan crawl' to record runs and 'pathscan history' to list them.

Examples:
  # Compare the latest two runs
  pathscan diff target.example.com

  # Compare the latest run with a specific earlier run
  pathscan diff --with-run-id 5 target.example.com

  # Output the comparison in JSON format
  pathscan diff --json target.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runDiffCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run by ID (use 'history <host>' to see IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runDiffCmd executes the diff command.
func runDiffCmd(cmd *cobra.Command, args []string) error {
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Use XDG data directory for database
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runDiff(context.Background(), db, args[0], withRunID, jsonOutput)
}

// runDiff selects the two runs to compare and outputs the result.
func runDiff(ctx context.Context, db *database.CrawlDB, host string, withRunID int64, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no crawl history found for %s", host)
	}

	// Latest run is always the current one
	current := runs[0]

	var previous database.RunMetadata
	if withRunID > 0 {
		run, err := db.GetRun(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run %d: %w", withRunID, err)
		}
		if run == nil {
			return fmt.Errorf("run %d not found", withRunID)
		}
		// Validate that the run ID belongs to the same host
		if run.Host != host {
			return fmt.Errorf("run %d belongs to %s, not %s", withRunID, run.Host, host)
		}
		if run.ID == current.ID {
			return fmt.Errorf("run %d is the latest run; pick an earlier one to compare against", withRunID)
		}
		previous = *run
	} else {
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
		}
		previous = runs[1]
	}

	previousVisits, err := db.GetRunVisits(ctx, previous.ID)
	if err != nil {
		return fmt.Errorf("failed to load visits of run %d: %w", previous.ID, err)
	}
	currentVisits, err := db.GetRunVisits(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("failed to load visits of run %d: %w", current.ID, err)
	}

	result := compareRuns(host, previous, current, previousVisits, currentVisits)

	if jsonOutput {
		return outputDiffJSON(result)
	}
	return outputDiffText(result)
}

// DiffResult holds the outcome of comparing two crawl runs of one host.
type DiffResult struct {
	// Host is the crawled host both runs belong to.
	Host string `json:"host"`

	// PreviousRun summarizes the older run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun summarizes the newer run.
	CurrentRun RunSummary `json:"current_run"`

	// NewURLs lists URLs observed in the current run only.
	NewURLs []string `json:"new_urls,omitempty"`

	// VanishedURLs lists URLs observed in the previous run only.
	VanishedURLs []string `json:"vanished_urls,omitempty"`

	// StatusChanges lists URLs whose status code changed between runs.
	StatusChanges []StatusChange `json:"status_changes,omitempty"`

	// UnchangedCount is the number of URLs with the same status in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// RunSummary contains metadata about one run for comparison display.
type RunSummary struct {
	// ID is the run's database ID.
	ID int64 `json:"id"`

	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`

	// TotalURLs is the number of URLs recorded by the run.
	TotalURLs int `json:"total_urls"`

	// SuccessfulRequests is the run's successful fetch count.
	SuccessfulRequests int `json:"successful_requests"`

	// FailedRequests is the run's failed fetch count.
	FailedRequests int `json:"failed_requests"`
}

// StatusChange records one URL whose observed status differs between runs.
type StatusChange struct {
	// URL is the affected URL.
	URL string `json:"url"`

	// From is the status code in the previous run (0 for failed fetches).
	From int `json:"from"`

	// To is the status code in the current run (0 for failed fetches).
	To int `json:"to"`
}

// compareRuns compares the visit sets of two runs and generates a diff.
func compareRuns(host string, previous, current database.RunMetadata, previousVisits, currentVisits map[string]model.VisitRecord) *DiffResult {
	result := &DiffResult{
		Host:        host,
		PreviousRun: newRunSummary(previous, len(previousVisits)),
		CurrentRun:  newRunSummary(current, len(currentVisits)),
	}

	// New URLs and status changes (keyed on the current run)
	for url, record := range currentVisits {
		prev, exists := previousVisits[url]
		if !exists {
			result.NewURLs = append(result.NewURLs, url)
			continue
		}
		if prev.StatusCode != record.StatusCode {
			result.StatusChanges = append(result.StatusChanges, StatusChange{
				URL:  url,
				From: prev.StatusCode,
				To:   record.StatusCode,
			})
		} else {
			result.UnchangedCount++
		}
	}

	// Vanished URLs (in previous but not in current)
	for url := range previousVisits {
		if _, exists := currentVisits[url]; !exists {
			result.VanishedURLs = append(result.VanishedURLs, url)
		}
	}

	sort.Strings(result.NewURLs)
	sort.Strings(result.VanishedURLs)
	sort.Slice(result.StatusChanges, func(i, j int) bool {
		return result.StatusChanges[i].URL < result.StatusChanges[j].URL
	})

	return result
}

// newRunSummary builds the display metadata for one run.
func newRunSummary(run database.RunMetadata, totalURLs int) RunSummary {
	return RunSummary{
		ID:                 run.ID,
		FinishedAt:         run.FinishedAt,
		TotalURLs:          totalURLs,
		SuccessfulRequests: run.SuccessfulRequests,
		FailedRequests:     run.FailedRequests,
	}
}

// outputDiffJSON outputs the comparison result in JSON format.
func outputDiffJSON(result *DiffResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputDiffText outputs the comparison result in human-readable text format.
func outputDiffText(result *DiffResult) error {
	fmt.Printf("Run Comparison: %s\n", result.Host)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nPrevious run: #%-5d %s  (%d URLs)\n",
		result.PreviousRun.ID,
		result.PreviousRun.FinishedAt.Format("2006-01-02 15:04:05"),
		result.PreviousRun.TotalURLs)
	fmt.Printf("Current run:  #%-5d %s  (%d URLs)\n",
		result.CurrentRun.ID,
		result.CurrentRun.FinishedAt.Format("2006-01-02 15:04:05"),
		result.CurrentRun.TotalURLs)

	fmt.Printf("\nURL delta: %s new, %s vanished, %d changed status\n",
		formatDelta(len(result.NewURLs)),
		formatDelta(-len(result.VanishedURLs)),
		len(result.StatusChanges))

	if len(result.NewURLs) > 0 {
		fmt.Printf("\nNew URLs (%d):\n", len(result.NewURLs))
		for _, url := range result.NewURLs {
			fmt.Printf("  [+] %s\n", url)
		}
	}

	if len(result.VanishedURLs) > 0 {
		fmt.Printf("\nVanished URLs (%d):\n", len(result.VanishedURLs))
		for _, url := range result.VanishedURLs {
			fmt.Printf("  [-] %s\n", url)
		}
	}

	if len(result.StatusChanges) > 0 {
		fmt.Printf("\nStatus Changes (%d):\n", len(result.StatusChanges))
		for _, change := range result.StatusChanges {
			fmt.Printf("  [~] %s: %s -> %s\n",
				change.URL, formatStatus(change.From), formatStatus(change.To))
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d URLs\n", result.UnchangedCount)
	}

	if len(result.NewURLs) == 0 && len(result.VanishedURLs) == 0 && len(result.StatusChanges) == 0 {
		fmt.Println("\nNo changes between the two runs.")
	}

	return nil
}

// formatStatus renders a status code, using ERR for failed fetches.
func formatStatus(code int) string {
	if code == 0 {
		return "ERR"
	}
	return strconv.Itoa(code)
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
