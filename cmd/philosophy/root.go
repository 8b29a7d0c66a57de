package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for philosophy.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "philosophy",
		Short: "Follow first links on Wikipedia until they reach Philosophy",
		Long: `philosophy walks Wikipedia by repeatedly following the first link in the
body of an article, skipping links in parentheses, italics, infoboxes and
similar boxes. Most walks end at the article "Philosophy".

Each walk ends for one of four reasons: it reached the target, it entered
a cycle, it hit a page without a usable link, or it followed as many links
as the step ceiling allows.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging (every followed link)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewWalkCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
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
