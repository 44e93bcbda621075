package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/storage"
)

var (
	historyLimit int
	historyURL   string
)

// historyCmd creates the "history" subcommand.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to list")
	cmd.Flags().StringVar(&historyURL, "url", "", "only runs for this product URL")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	h, err := storage.NewSQLiteHistory(cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := h.ListRuns(ctx, historyURL, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tREVIEWS\tPOSITIVE\tRATING\tURL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f%%\t%.2f\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status, r.ReviewCount, r.PercentPositive, r.AverageRating, r.URL)
	}
	return tw.Flush()
}
