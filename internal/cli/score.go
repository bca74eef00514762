package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FeedScreener/internal/app"
	"FeedScreener/internal/domain"
	"FeedScreener/internal/logging"
)

var (
	scorePreference string
	scoreStrictness int
)

func init() {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Fetch feeds once, score every item, and print the result",
		Run:   runScore,
	}
	cmd.Flags().StringVarP(&scorePreference, "preference", "p", "", "Override the configured preference")
	cmd.Flags().IntVarP(&scoreStrictness, "strictness", "s", 0, "Override the configured strictness level (1-5)")

	RootCmd.AddCommand(cmd)
}

func runScore(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if scorePreference != "" {
		cfg.Scoring.Preference = scorePreference
	}
	if scoreStrictness != 0 {
		cfg.Scoring.Strictness = scoreStrictness
	}

	// Logs go to stderr so stdout stays clean for the table.
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level)

	application := app.New(cfg, logger)
	views, err := application.RunOnce(cmd.Context())
	if err != nil {
		exitErr("score", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tVISIBILITY\tPHASE\tCHANNEL\tTITLE")
	for _, v := range views {
		score := "-"
		if v.Phase == domain.PhaseScored {
			score = fmt.Sprintf("%.2f", v.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			score, v.Visibility, v.Phase, v.Item.Channel, v.Item.Title)
	}
	w.Flush()
}
