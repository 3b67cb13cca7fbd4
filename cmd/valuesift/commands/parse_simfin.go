package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"valuesift/internal/gather/simfin"
)

var parseSimFinCmd = &cobra.Command{
	Use:   "parse-simfin [in_dir]",
	Short: "Load the SimFin bulk CSV files into the data directory",
	Long: `Parses us-companies.csv, us-shareprices-daily.csv, us-balance-annual.csv,
us-income-annual.csv and us-cashflow-annual.csv from in_dir (default: the
storage.simfin_dir setting) and replaces the stored financial data with them.

Example:
  valuesift parse-simfin ./simfin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParseSimFin,
}

func init() {
	rootCmd.AddCommand(parseSimFinCmd)
}

func runParseSimFin(cmd *cobra.Command, args []string) error {
	dir := cfg.Storage.SimFinDir
	if len(args) == 1 {
		dir = args[0]
	}
	ctx := cmd.Context()
	start := time.Now()

	repr, err := simfin.New(dir).Fetch(ctx)
	if err != nil {
		return err
	}
	if err := reprStore().SaveRepr(ctx, repr); err != nil {
		return fmt.Errorf("saving repr: %w", err)
	}

	yearly, daily := repr.YearlyYears(), repr.DailyYears()
	slog.Info("simfin data stored",
		"dir", dir,
		"companies", len(repr.Companies),
		"yearly", len(yearly),
		"daily", len(daily),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d companies, %s yearly, %s daily\n",
		len(repr.Companies), yearSpan(yearly), yearSpan(daily))
	return nil
}

// yearSpan renders ascending years as "2010-2020" or "none".
func yearSpan(years []int) string {
	switch len(years) {
	case 0:
		return "none"
	case 1:
		return fmt.Sprint(years[0])
	}
	return fmt.Sprintf("%d-%d", years[0], years[len(years)-1])
}
