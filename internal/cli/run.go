package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FeedScreener/internal/app"
	"FeedScreener/internal/logging"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll feeds and keep item visibility up to date",
		Run:   runRun,
	}

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	if err := application.Run(ctx); err != nil {
		exitErr("run", err)
	}
}
