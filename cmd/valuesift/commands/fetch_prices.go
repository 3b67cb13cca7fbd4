package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"valuesift/internal/gather"
	"valuesift/internal/gather/us"
	"valuesift/internal/store"
	"valuesift/internal/util"
)

var (
	fetchPricesCmd = &cobra.Command{
		Use:   "fetch-prices",
		Short: "Refresh daily share prices from Alpaca",
		Long: `Requests daily bars for every stored company from the Alpaca market data
API and writes their high, low and volume into the stored daily tables.

The range defaults to gather.start_year through gather.end_year, and to the
latest finished trading day when no end year is configured.

Example:
  valuesift fetch-prices --start 2019-01-01 --end 2020-12-31`,
		Args: cobra.NoArgs,
		RunE: runFetchPrices,
	}

	fetchStart string
	fetchEnd   string
)

func init() {
	rootCmd.AddCommand(fetchPricesCmd)

	fetchPricesCmd.Flags().StringVar(&fetchStart, "start", "", "first day (YYYY-MM-DD)")
	fetchPricesCmd.Flags().StringVar(&fetchEnd, "end", "", "last day (YYYY-MM-DD)")
}

func runFetchPrices(cmd *cobra.Command, _ []string) error {
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		return errors.New("alpaca credentials are not configured (ALPACA_API_KEY / ALPACA_API_SECRET)")
	}
	r, err := fetchRange()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	ps := reprStore()
	if !ps.Exists() {
		return fmt.Errorf("no stored data in %s, run parse-simfin first", cfg.Storage.DataDir)
	}
	repr, err := ps.LoadRepr(ctx, store.AllYears, store.AllYears)
	if err != nil {
		return err
	}

	fetcher := us.NewDailyPriceFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.Feed,
		cfg.Gather.BatchSize,
		cfg.Gather.MaxWorkers,
		cfg.Gather.RateLimitPerMin,
	)
	updateErr := fetcher.Update(ctx, repr, r)
	if updateErr != nil && ctx.Err() != nil {
		return updateErr
	}

	// Keep whatever the successful batches brought in.
	if err := ps.SaveRepr(ctx, repr); err != nil {
		return fmt.Errorf("saving repr: %w", err)
	}
	if updateErr != nil {
		return updateErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated daily prices %s to %s\n",
		r.Start.Format(util.DateLayout), r.End.Format(util.DateLayout))
	return nil
}

// fetchRange resolves the flags and the gather settings into a date range.
func fetchRange() (gather.DateRange, error) {
	var r gather.DateRange
	var err error

	switch {
	case fetchStart != "":
		if r.Start, err = util.ParseDate(fetchStart); err != nil {
			return r, fmt.Errorf("--start: %w", err)
		}
	case cfg.Gather.StartYear > 0:
		r.Start = time.Date(cfg.Gather.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return r, errors.New("--start is required when gather.start_year is not set")
	}

	switch {
	case fetchEnd != "":
		if r.End, err = util.ParseDate(fetchEnd); err != nil {
			return r, fmt.Errorf("--end: %w", err)
		}
	case cfg.Gather.EndYear > 0:
		r.End = time.Date(cfg.Gather.EndYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		if r.End, err = us.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL); err != nil {
			return r, fmt.Errorf("determining end date: %w", err)
		}
	}

	return r, r.Verify()
}
