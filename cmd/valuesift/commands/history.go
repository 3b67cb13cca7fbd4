package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"valuesift/internal/report"
	"valuesift/internal/store"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or show one in full",
		Long: `Without --id, lists the most recent runs, newest first. With --id, prints
the stored options, the results report and every company outcome of that run.

Example:
  valuesift history --limit 5
  valuesift history --id 2f1c7a52-...`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	historyLimit int
	historyID    string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyID, "id", "", "show a single run")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyID != "" {
		run, err := db.GetRun(ctx, historyID)
		if err != nil {
			return fmt.Errorf("run %s: %w", historyID, err)
		}
		return page(cmd, "Run "+run.ID, func(out io.Writer) error {
			return report.WriteRun(out, run, theme())
		})
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	return page(cmd, "Run history", func(out io.Writer) error {
		return report.WriteRuns(out, runs, theme())
	})
}
