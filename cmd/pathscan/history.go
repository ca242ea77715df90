package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nao1215/pathscan/internal/config"
	"github.com/nao1215/pathscan/internal/database"
	"github.com/nao1215/pathscan/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command browses crawl runs stored in the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "List crawl runs stored in the local database",
		Long: `History lists past crawl runs recorded in the local database.

Without arguments it lists every crawled host. With a host argument it
lists that host's runs, newest first, with their counters and end state.
A stored run can be re-rendered in full with --show-run.

Examples:
  # List all crawled hosts
  pathscan history

  # List runs for a host
  pathscan history target.example.com

  # Re-render the stored report of run 7
  pathscan history --show-run 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("show-run", "r", 0,
		"Render the stored report of a run by ID (use 'history <host>' to see IDs)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	showRunID, err := cmd.Flags().GetInt64("show-run")
	if err != nil {
		return err
	}

	// Use XDG data directory for database
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if showRunID > 0 {
		return showStoredRun(ctx, db, showRunID)
	}
	if len(args) == 0 {
		return listCrawledHosts(ctx, db)
	}
	return listHostRuns(ctx, db, args[0])
}

// listCrawledHosts lists all hosts that have crawl records in the database.
func listCrawledHosts(ctx context.Context, db *database.CrawlDB) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Println("No crawl history found in the database.")
		fmt.Println("\nUse 'pathscan crawl <url>' to crawl a target.")
		return nil
	}

	fmt.Printf("Crawled hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Printf("  • %s\n", host)
	}
	fmt.Println("\nUse 'pathscan history <host>' to see the runs for a host.")

	return nil
}

// listHostRuns lists all crawl runs recorded for a specific host.
func listHostRuns(ctx context.Context, db *database.CrawlDB, host string) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No crawl history found for %s\n", host)
		fmt.Println("\nUse 'pathscan crawl' to crawl this host.")
		return nil
	}

	fmt.Printf("Crawl history for %s (%d runs):\n\n", host, len(runs))
	fmt.Printf("  %-6s  %-20s  %6s  %6s  %6s  %s\n", "ID", "Finished", "URLs", "OK", "Failed", "Status")
	fmt.Println("  " + strings.Repeat("-", 62))

	for _, run := range runs {
		fmt.Printf("  %-6d  %-20s  %6d  %6d  %6d  %s\n",
			run.ID,
			run.FinishedAt.Format("2006-01-02 15:04:05"),
			run.TotalRequests,
			run.SuccessfulRequests,
			run.FailedRequests,
			formatRunStatus(run),
		)
	}

	fmt.Println("\nUse 'pathscan diff <host>' to compare the latest two runs.")
	fmt.Println("Use 'pathscan history --show-run <id>' to re-render a stored report.")

	return nil
}

// formatRunStatus summarizes the end state of a run for the history table.
func formatRunStatus(run database.RunMetadata) string {
	switch {
	case run.Error != "":
		return "error: " + run.Error
	case run.Interrupted:
		return "interrupted"
	default:
		return "ok"
	}
}

// showStoredRun re-renders the full stored report of one run.
func showStoredRun(ctx context.Context, db *database.CrawlDB, runID int64) error {
	storedReport, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	if storedReport == nil {
		return fmt.Errorf("run %d not found (use 'pathscan history <host>' to see available IDs)", runID)
	}

	_, err = report.NewTextWriter(os.Stdout, report.WithShowAll()).Write(storedReport)
	return err
}
