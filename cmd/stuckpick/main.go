package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stuckpick",
		Short: "Pick something from your lists when you're stuck",
		Long: `stuckpick suggests an item from CSV lists kept in a data directory.

Each row is name,tags,score. Liking a suggestion raises its score and
nudges every item sharing a tag with it; disliking lowers them. Higher
scores are suggested more often.

Run without a command for the interactive menu.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd)
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the CSV lists (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.stuckpick/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newFilesCmd(),
		newTagsCmd(),
		newShowCmd(),
		newPickCmd(),
		newSkipCmd(),
		newFeedbackCmd(),
		newRateCmd(),
		newBrowseTagCmd(),
		newListsCmd(),
		newHistoryCmd(),
		newStatsCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
