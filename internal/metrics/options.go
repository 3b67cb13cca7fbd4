package metrics

import (
	"fmt"
	"time"

	"valuesift/internal/financials"
	"valuesift/internal/util"
)

// Options are the strategy parameters of one run. The dates select the
// buy and sell days; the thresholds are consumed by the evaluator and the
// backtracker.
type Options struct {
	BuyDate  time.Time
	SellDate time.Time

	// CashFlowsBack is how many years before the buy year must also show a
	// positive cash flow.
	CashFlowsBack int

	MaxPERatio      float32
	MaxDebtToEquity float32
	MinPotentialROI float32
	MinMarketCap    float32
	ReturnPercent   float32
	IgnoreCNAVCmp   bool
}

// Verify rejects options that cannot describe a run.
func (o Options) Verify() error {
	if !util.Date(o.BuyDate).Before(util.Date(o.SellDate)) {
		return fmt.Errorf("%w: buy date %s is not before sell date %s", ErrInvalidOptions,
			o.BuyDate.Format(util.DateLayout), o.SellDate.Format(util.DateLayout))
	}
	if o.CashFlowsBack < 0 {
		return fmt.Errorf("%w: cash_flows_back %d is negative", ErrInvalidOptions, o.CashFlowsBack)
	}
	if o.ReturnPercent <= -1 {
		return fmt.Errorf("%w: return_percent %g would put the target at or below zero", ErrInvalidOptions, o.ReturnPercent)
	}
	return nil
}

// BuyYear is the fiscal year whose yearly data is used for the metrics.
func (o Options) BuyYear() int { return o.BuyDate.Year() }

// LoaderOptions returns the store coverage a run with these options needs:
// the cash flow look-back years through the buy year, and 52 weeks of daily
// data before the buy date through the sell date.
func (o Options) LoaderOptions() financials.LoaderOptions {
	buy := util.Date(o.BuyDate)
	return financials.LoaderOptions{
		YearlyMin: o.BuyYear() - o.CashFlowsBack,
		YearlyMax: o.BuyYear(),
		DailyMin:  buy.AddDate(0, 0, -52*7),
		DailyMax:  util.Date(o.SellDate),
	}
}
