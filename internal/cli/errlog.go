package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"FeedScreener/internal/infrastructure/storage"
)

var errlogLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "errlog",
		Short: "Print persisted scoring diagnostics, most recent last",
		Run:   runErrlog,
	}
	cmd.Flags().IntVarP(&errlogLimit, "limit", "n", 20, "Maximum entries to print")

	RootCmd.AddCommand(cmd)
}

func runErrlog(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Storage.Path == "" {
		fmt.Fprintln(os.Stderr, "no session store configured; diagnostics are not persisted")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		exitErr("open store", err)
	}
	defer store.Close()

	entries, err := store.RecentErrors(cmd.Context(), errlogLimit)
	if err != nil {
		exitErr("read error log", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tSTATUS\tDETAIL")
	for _, e := range entries {
		status := "-"
		if e.Status != 0 {
			status = fmt.Sprintf("%d", e.Status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Kind, status, e.Detail)
	}
	w.Flush()
}
