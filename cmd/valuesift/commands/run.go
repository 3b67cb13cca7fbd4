package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"valuesift/internal/config"
	"valuesift/internal/engine"
	"valuesift/internal/store"
	"valuesift/internal/strategy"
	"valuesift/internal/util"
)

var (
	runCmd = &cobra.Command{
		Use:   "run <options.yaml>",
		Short: "Evaluate and backtest the strategy described by an options file",
		Long: `Loads the financial data the options need, computes the metrics of every
company at the buy date, keeps the investable ones and backtests them up to
the sell date. The run is recorded in the history unless --no-save is given.

Metric names for --ignore: buy_share_price, cash_flows, cnav,
cnav_minus_buy_price, cnav_minus_nav, debt_to_equity_ratio, market_cap,
nav, pe_ratio, potential_roi.

Example:
  valuesift run options.yaml
  valuesift run options.yaml --ignore pe_ratio,market_cap --companies`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	runIgnore    []string
	runNoSave    bool
	runCompanies bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runIgnore, "ignore", nil, "metrics left out of the bounds check")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not record the run")
	runCmd.Flags().BoolVar(&runCompanies, "companies", false, "list the companies that gained")
}

func runRun(cmd *cobra.Command, args []string) error {
	opts, err := config.LoadOptions(args[0])
	if err != nil {
		return fmt.Errorf("options %s: %w", args[0], err)
	}
	ignored, err := strategy.ParseFieldSet(runIgnore)
	if err != nil {
		return fmt.Errorf("--ignore: %w", err)
	}

	var runs store.RunStore
	if !runNoSave {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs = db
	}

	res, err := engine.NewEngine(reprStore(), runs).Run(cmd.Context(), engine.Request{
		Options: opts,
		Ignored: ignored,
		Save:    !runNoSave,
	})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Run %s -> %s",
		res.Summary.BuyDate.Format(util.DateLayout), res.Summary.SellDate.Format(util.DateLayout))
	return page(cmd, title, func(out io.Writer) error {
		if err := res.Summary.Write(out); err != nil {
			return err
		}
		if runCompanies {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
			if err := res.Summary.WriteCompanies(out); err != nil {
				return err
			}
		}
		if res.RunID != "" {
			fmt.Fprintf(out, "\nRun %s recorded.\n", theme().ID.Render(res.RunID))
		}
		return nil
	})
}
