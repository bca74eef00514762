// Package cli implements the feedscreener CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FeedScreener/internal/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "feedscreener",
	Short: "Rank a feed against a preference with an LLM judge",
	Long: "feedscreener polls configured feeds, scores each item against a " +
		"free-text preference via a rate-limited scoring service, and " +
		"reports a visibility class per item under the active strictness policy.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (default: $FEED_SCREENER_CONFIG)")
}

func loadConfig() config.Config {
	if configPath != "" {
		os.Setenv("FEED_SCREENER_CONFIG", configPath)
	}
	return config.Load()
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// Execute runs the CLI.
func Execute() error {
	return RootCmd.Execute()
}
