package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	wlog "github.com/nao1215/wikiscrape/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wikiscrape.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikiscrape",
		Short: "Polite, resumable wiki page archiver",
		Long: `wikiscrape saves the main text of wiki pages as plain-text files.

It scrapes the pages given on the command line, or crawls every page of
the seed sites with --crawl. Requests are spaced by a fixed delay, and
each crawl keeps a CSV report log of what was written, skipped or failed.
Re-run with --skip-existing to resume an interrupted crawl.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Add subcommands
	cmd.AddCommand(NewScrapeCmd())
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

// getBoolFlag retrieves a boolean flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the structured logger selected by the global flags.
// Logs always go to w, which is stderr outside of tests.
func setupLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	level := wlog.LevelFor(getBoolFlag(cmd, "verbose"), getBoolFlag(cmd, "quiet"))
	if getBoolFlag(cmd, "log-json") {
		return wlog.NewJSONLogger(w, level)
	}
	return wlog.NewLogger(w, level)
}
