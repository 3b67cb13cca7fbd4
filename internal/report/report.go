// Package report summarises a strategy run and renders it as text.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"valuesift/internal/financials"
	"valuesift/internal/metrics"
	"valuesift/internal/store"
	"valuesift/internal/strategy"
)

const headerDateLayout = "02 January 2006"

// Entry is the backtrack result of one investable company.
type Entry struct {
	Symbol    string
	Outcome   strategy.Outcome
	BuyPrice  float32
	Price     float32
	MarketCap float32
}

// Summary is everything the results report prints.
type Summary struct {
	BuyDate  time.Time
	SellDate time.Time

	Considered     int
	SufficientData int
	Investable     int

	Stats strategy.Statistics

	// Entries are ordered by company id.
	Entries []Entry
}

// Build collects the summary of one run.
func Build(companies *financials.Companies, m *metrics.Metrics, ev *strategy.Evaluation, bt *strategy.Backtracked) Summary {
	counts := ev.Counts()
	opts := m.Options()
	s := Summary{
		BuyDate:        opts.BuyDate,
		SellDate:       opts.SellDate,
		Considered:     companies.Len(),
		SufficientData: counts.SufficientData,
		Investable:     counts.Investable,
		Stats:          bt.Stats(),
	}
	for _, r := range bt.Results() {
		s.Entries = append(s.Entries, Entry{
			Symbol:    companies.Symbol(r.Company),
			Outcome:   r.Outcome,
			BuyPrice:  r.BuyPrice,
			Price:     r.Price,
			MarketCap: m.Value(metrics.MarketCap, r.Company),
		})
	}
	return s
}

// FromRun rebuilds the summary of a persisted run. Outcome names that no
// longer parse are dropped from the entries.
func FromRun(run *store.Run) Summary {
	s := Summary{
		BuyDate:        run.BuyDate,
		SellDate:       run.SellDate,
		Considered:     run.Considered,
		SufficientData: run.SufficientData,
		Investable:     run.Investable,
		Stats: strategy.Statistics{
			ReachedReturnPercent: run.Reached,
			GainAtEnd:            run.GainAtEnd,
			LossAtEnd:            run.LossAtEnd,
		},
	}
	nan := float32(math.NaN())
	for _, o := range run.Outcomes {
		outcome, ok := parseOutcome(o.Outcome)
		if !ok {
			continue
		}
		s.Entries = append(s.Entries, Entry{
			Symbol:    o.Symbol,
			Outcome:   outcome,
			BuyPrice:  o.BuyPrice,
			Price:     o.Price,
			MarketCap: nan,
		})
	}
	return s
}

func parseOutcome(name string) (strategy.Outcome, bool) {
	for _, o := range strategy.AllOutcomes() {
		if o.String() == name {
			return o, true
		}
	}
	return 0, false
}

// Successful is the number of investable companies that ended above their
// buy price.
func (s Summary) Successful() int { return s.Stats.Successful() }

// SuccessRate is Successful as a percentage of the investable companies.
func (s Summary) SuccessRate() float64 { return Percent(s.Successful(), s.Investable) }

// Overall is "GAIN" when more than half of the investable companies were
// successful, else "LOSS".
func (s Summary) Overall() string {
	if s.SuccessRate() > 50 {
		return "GAIN"
	}
	return "LOSS"
}

// Which returns the entries with outcome o.
func (s Summary) Which(o strategy.Outcome) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Outcome == o {
			out = append(out, e)
		}
	}
	return out
}

// Write renders the results report. Reporting stops after the first count
// that leaves nothing to divide by.
func (s Summary) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "RESULTS for investment: %s to %s\n",
		s.BuyDate.Format(headerDateLayout), s.SellDate.Format(headerDateLayout))
	fmt.Fprintf(&b, "Total companies considered: %s,\n", FormatInt(s.Considered))
	fmt.Fprintf(&b, "Companies with sufficient data: %s,\n", FormatInt(s.SufficientData))
	if s.SufficientData == 0 {
		b.WriteString("Insufficient data to continue.\n")
		return writeString(w, b.String())
	}

	fmt.Fprintf(&b, "Companies that were deemed investable: %s (%s of sufficient),\n",
		FormatInt(s.Investable), FormatPercent(s.Investable, s.SufficientData))
	if s.Investable == 0 {
		b.WriteString("Insufficient data to continue.\n")
		return writeString(w, b.String())
	}

	fmt.Fprintf(&b, "Companies that yielded return percent: %s (%s of investable),\n",
		FormatInt(s.Stats.ReachedReturnPercent), FormatPercent(s.Stats.ReachedReturnPercent, s.Investable))
	fmt.Fprintf(&b, "Companies that only increased in price: %s (%s of investable),\n",
		FormatInt(s.Stats.GainAtEnd), FormatPercent(s.Stats.GainAtEnd, s.Investable))
	fmt.Fprintf(&b, "Companies that decreased in price: %s (%s of investable),\n",
		FormatInt(s.Stats.LossAtEnd), FormatPercent(s.Stats.LossAtEnd, s.Investable))
	fmt.Fprintf(&b, "Total successful predictions: %s (%.2f%% of investable),\n",
		FormatInt(s.Successful()), s.SuccessRate())
	fmt.Fprintf(&b, "Overall: %s\n", s.Overall())
	return writeString(w, b.String())
}

// WriteCompanies renders the per-company lists for the two successful
// outcomes, one "SYMBOL: buy to price" line per company.
func (s Summary) WriteCompanies(w io.Writer) error {
	var b strings.Builder
	for _, section := range []struct {
		title   string
		outcome strategy.Outcome
	}{
		{"Companies which reached return percent", strategy.ReachedReturnPercent},
		{"Companies which gained in the end", strategy.GainAtEnd},
	} {
		entries := s.Which(section.outcome)
		fmt.Fprintf(&b, "%s: %d\n", section.title, len(entries))
		for _, e := range entries {
			fmt.Fprintf(&b, "  %s: %s to %s (%s", e.Symbol, FormatPrice(e.BuyPrice), FormatPrice(e.Price),
				FormatChange(e.BuyPrice, e.Price))
			if e.MarketCap == e.MarketCap {
				fmt.Fprintf(&b, ", cap %s", FormatMoney(float64(e.MarketCap)))
			}
			b.WriteString(")\n")
		}
	}
	return writeString(w, b.String())
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
