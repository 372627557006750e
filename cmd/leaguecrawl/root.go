package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for leaguecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaguecrawl",
		Short: "Discover Sleeper fantasy leagues by walking the league/user graph",
		Long: `leaguecrawl starts from a seed league and alternates between expanding
users into the leagues they play in and expanding leagues into their users,
until no unexplored user or league remains.

Progress is checkpointed to a SQLite database after every cycle, so an
interrupted crawl resumes where it stopped. The checkpoint directory can be
mirrored to S3 or an S3-compatible store.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .leaguecrawl in current or home directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	cmd.PersistentFlags().StringP("data-dir", "D", "",
		"Checkpoint directory (default: XDG data directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewExportCmd())
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
