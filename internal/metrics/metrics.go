// Package metrics derives the per-company valuation metrics of a buy date
// from a financials.Store.
//
// All formulas are elementwise over the company axis. A NaN input cell yields
// a NaN metric, which the evaluator later reads as insufficient data.
package metrics

import (
	"fmt"

	"valuesift/internal/financials"
)

// Metrics is the (field × company) table computed for one set of options.
type Metrics struct {
	opts Options
	n    int
	// data[f*n+c]
	data []float32
}

// Calculate computes every metric for every company of s at opts.BuyDate.
// Yearly inputs are read from the buy date's calendar year.
func Calculate(s *financials.Store, opts Options) (*Metrics, error) {
	if err := opts.Verify(); err != nil {
		return nil, err
	}

	year, err := s.YearToOffset(opts.BuyYear())
	if err != nil {
		return nil, fmt.Errorf("buy year: %w", err)
	}
	day, err := s.DateToOffset(opts.BuyDate)
	if err != nil {
		return nil, fmt.Errorf("buy date: %w", err)
	}
	if year < opts.CashFlowsBack {
		return nil, fmt.Errorf("%w: %d years back from %d, store starts at %d",
			ErrInsufficientCashFlowData, opts.CashFlowsBack, opts.BuyYear(), s.YearlyMin())
	}

	n := s.Companies().Len()
	m := &Metrics{
		opts: opts,
		n:    n,
		data: make([]float32, FieldCount*n),
	}

	yearly := func(f financials.YearlyField) []float32 { return s.YearlyAt(year, f) }
	var (
		cash        = yearly(financials.CashAndShortTermInvestments)
		ppe         = yearly(financials.PPE)
		liabilities = yearly(financials.TotalLiabilities)
		assets      = yearly(financials.TotalAssets)
		debt        = yearly(financials.TotalDebt)
		equity      = yearly(financials.TotalShareholdersEquity)
		shares      = yearly(financials.TotalOutstandingShares)
		eps         = yearly(financials.EPS)
		reportPrice = yearly(financials.SharePriceAtReport)
		buyPrice    = s.DailyAt(day, financials.HighSharePrice)
	)

	for c := 0; c < n; c++ {
		nav := (assets[c] - liabilities[c]) / shares[c]
		cnav := (ppe[c]/2 + cash[c] - liabilities[c]) / shares[c]

		m.set(BuySharePrice, c, buyPrice[c])
		m.set(NAV, c, nav)
		m.set(CNAV, c, cnav)
		m.set(PERatio, c, reportPrice[c]/eps[c])
		m.set(DebtToEquityRatio, c, debt[c]/equity[c])
		m.set(PotentialROI, c, (nav-cnav)/cnav)
		m.set(MarketCap, c, shares[c]*reportPrice[c])
		m.set(CNAVMinusNAV, c, cnav-nav)
		m.set(CNAVMinusBuyPrice, c, cnav-buyPrice[c])
		m.set(CashFlows, c, positiveCashFlows(s, year-opts.CashFlowsBack, year, c))
	}

	return m, nil
}

// positiveCashFlows returns 1 when every CashFlow in the year offsets
// [from, to] is strictly positive. An unknown year counts as not positive.
func positiveCashFlows(s *financials.Store, from, to, company int) float32 {
	for y := from; y <= to; y++ {
		if !(s.YearlyValue(y, financials.CashFlow, company) > 0) {
			return 0
		}
	}
	return 1
}

func (m *Metrics) set(f Field, company int, v float32) {
	m.data[int(f)*m.n+company] = v
}

// Options returns the options the table was computed with.
func (m *Metrics) Options() Options { return m.opts }

// Companies returns the length of the company axis.
func (m *Metrics) Companies() int { return m.n }

// Metric returns a read-only view of field over all companies.
func (m *Metrics) Metric(f Field) []float32 {
	start := int(f) * m.n
	return m.data[start : start+m.n : start+m.n]
}

// Value returns one metric of one company.
func (m *Metrics) Value(f Field, company int) float32 {
	return m.data[int(f)*m.n+company]
}

// Company returns all metrics of one company in field order. The result is
// a copy.
func (m *Metrics) Company(company int) []float32 {
	out := make([]float32, FieldCount)
	for f := range out {
		out[f] = m.data[f*m.n+company]
	}
	return out
}
