package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"valuesift/internal/financials"
	"valuesift/internal/gather"
	"valuesift/internal/util"
)

var _ gather.Updater = (*DailyPriceFetcher)(nil)

const (
	fetchAttempts   = 3
	fetchRetryDelay = 2 * time.Second
	fetchMaxDelay   = 30 * time.Second
)

// barsClient is the part of the Alpaca market data client the fetcher uses.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// DailyPriceFetcher fills the daily High, Low and Volume tables of a
// storage representation from Alpaca daily bars.
type DailyPriceFetcher struct {
	client     barsClient
	feed       string
	batchSize  int // symbols per API call
	maxWorkers int
	limiter    *rate.Limiter
	backoff    util.Backoff
	log        *slog.Logger
}

// NewDailyPriceFetcher creates a DailyPriceFetcher configured with the given
// Alpaca credentials and request pacing. A non-positive rateLimitPerMin
// disables pacing.
func NewDailyPriceFetcher(apiKey, apiSecret, dataURL, feed string, batchSize, maxWorkers, rateLimitPerMin int) *DailyPriceFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newDailyPriceFetcher(marketdata.NewClient(opts), feed, batchSize, maxWorkers, rateLimitPerMin)
}

func newDailyPriceFetcher(client barsClient, feed string, batchSize, maxWorkers, rateLimitPerMin int) *DailyPriceFetcher {
	limit := rate.Inf
	if rateLimitPerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(rateLimitPerMin))
	}
	return &DailyPriceFetcher{
		client:     client,
		feed:       feed,
		batchSize:  max(batchSize, 1),
		maxWorkers: max(maxWorkers, 1),
		limiter:    rate.NewLimiter(limit, 1),
		backoff:    util.Backoff{Attempts: fetchAttempts, Base: fetchRetryDelay, Max: fetchMaxDelay},
		log:        slog.Default().With("fetcher", "us-daily"),
	}
}

// Name returns the fetcher identifier.
func (f *DailyPriceFetcher) Name() string { return "us-daily" }

// Update requests daily bars for every company of repr over r and writes
// them into its daily tables. Days without a bar keep their value. Failed
// batches are logged and reported together once every batch has run.
func (f *DailyPriceFetcher) Update(ctx context.Context, repr *financials.StorageRepr, r gather.DateRange) error {
	if err := r.Verify(); err != nil {
		return err
	}
	companies, err := financials.NewCompanies(repr.Companies)
	if err != nil {
		return err
	}

	// Every table the workers write to exists before they start, so they
	// only ever touch distinct cells.
	for year := r.Start.Year(); year <= r.End.Year(); year++ {
		repr.EnsureDailyYear(year)
	}

	symbols := companies.Symbols()
	var batches [][]string
	for i := 0; i < len(symbols); i += f.batchSize {
		batches = append(batches, symbols[i:min(i+f.batchSize, len(symbols))])
	}
	if len(batches) == 0 {
		return nil
	}

	f.log.Info("starting price refresh",
		"start", r.Start.Format(util.DateLayout),
		"end", r.End.Format(util.DateLayout),
		"symbols", len(symbols),
		"batches", len(batches),
	)

	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	var (
		wg       sync.WaitGroup
		cells    atomic.Int64
		failed   atomic.Int64
		runStart = time.Now()
	)

	workers := min(f.maxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range batchCh {
				if ctx.Err() != nil {
					return
				}

				bars, err := f.fetchMultiBars(ctx, batches[batchIdx], r)
				if err != nil {
					failed.Add(1)
					f.log.Error("batch fetch failed",
						"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
						"err", err,
					)
					continue
				}
				n := applyBars(repr, bars, r)
				cells.Add(int64(n))

				f.log.Debug("batch done",
					"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
					"symbols", len(bars),
					"days", n,
				)
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	f.log.Info("price refresh complete",
		"days", cells.Load(),
		"failed", failed.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d batches failed", n, len(batches))
	}
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single paced
// and retried API call.
func (f *DailyPriceFetcher) fetchMultiBars(ctx context.Context, symbols []string, r gather.DateRange) (map[string][]marketdata.Bar, error) {
	var bars map[string][]marketdata.Bar
	err := util.Retry(ctx, f.backoff, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		bars, err = f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     r.Start,
			End:       r.End.AddDate(0, 0, 1),
			Feed:      marketdata.Feed(f.feed),
		})
		if err != nil {
			return fmt.Errorf("GetMultiBars: %w", err)
		}
		return nil
	})
	return bars, err
}

// applyBars writes the bars inside r into repr and returns the number of
// company days written. Symbols repr does not know are ignored.
//
// Daily bars are stamped at midnight New York time, which is the same
// calendar day in UTC.
func applyBars(repr *financials.StorageRepr, bars map[string][]marketdata.Bar, r gather.DateRange) int {
	var n int
	for symbol, companyBars := range bars {
		id, ok := repr.Companies[strings.ToUpper(symbol)]
		if !ok {
			continue
		}
		for _, b := range companyBars {
			day := util.Date(b.Timestamp.UTC())
			if !r.Contains(day) {
				continue
			}
			repr.SetDaily(day, financials.HighSharePrice, id, float32(b.High))
			repr.SetDaily(day, financials.LowSharePrice, id, float32(b.Low))
			repr.SetDaily(day, financials.Volume, id, float32(b.Volume))
			n++
		}
	}
	return n
}
