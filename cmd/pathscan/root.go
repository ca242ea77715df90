// Package main provides the entry point for the pathscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pathscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pathscan",
		Short: "Reconnaissance crawler that maps the paths of a web origin",
		Long: `Pathscan is a reconnaissance crawler for web applications.

It crawls a single origin to a bounded depth and maps every reachable path,
mining not just links but HTML comments, JavaScript, and other markup for
path references. Results are printed as a summary, written as report
artifacts, and recorded in a local history database for run-to-run diffing.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
