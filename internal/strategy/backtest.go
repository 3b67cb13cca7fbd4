package strategy

import (
	"fmt"
	"iter"
	"time"

	"valuesift/internal/financials"
	"valuesift/internal/metrics"
)

// Outcome classifies how an investable company fared over the holding
// period.
type Outcome int

const (
	// ReachedReturnPercent means the daily high met the target on some day.
	ReachedReturnPercent Outcome = iota
	// GainAtEnd means the target was never met but the last high was above
	// the buy price.
	GainAtEnd
	// LossAtEnd means the target was never met and the last high was at or
	// below the buy price.
	LossAtEnd
)

// AllOutcomes lists the outcomes in report order.
func AllOutcomes() []Outcome {
	return []Outcome{ReachedReturnPercent, GainAtEnd, LossAtEnd}
}

func (o Outcome) String() string {
	switch o {
	case ReachedReturnPercent:
		return "reached_return_percent"
	case GainAtEnd:
		return "gain_at_end"
	case LossAtEnd:
		return "loss_at_end"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the backtrack outcome of one company. Price is the high that
// met the target, or the last high of the period.
type Result struct {
	Company  int
	BuyPrice float32
	Outcome  Outcome
	Price    float32
}

// Statistics counts outcomes over all investable companies.
type Statistics struct {
	ReachedReturnPercent int
	GainAtEnd            int
	LossAtEnd            int
}

// Total returns the number of backtracked companies.
func (s Statistics) Total() int {
	return s.ReachedReturnPercent + s.GainAtEnd + s.LossAtEnd
}

// Count returns the count of one outcome.
func (s Statistics) Count(o Outcome) int {
	switch o {
	case ReachedReturnPercent:
		return s.ReachedReturnPercent
	case GainAtEnd:
		return s.GainAtEnd
	case LossAtEnd:
		return s.LossAtEnd
	}
	return 0
}

// Successful is the number of companies that ended above their buy price.
func (s Statistics) Successful() int {
	return s.ReachedReturnPercent + s.GainAtEnd
}

// Backtracked holds the outcome of every investable company, ordered by
// company id.
type Backtracked struct {
	results []Result
	stats   Statistics
}

// Backtrack scans the daily highs of every investable company from buy to
// sell inclusive. The first day whose high is at or above
// BuySharePrice*(1+returnPercent) decides ReachedReturnPercent; otherwise
// the last day's high is compared with the buy price.
//
// The caller must ensure the store covers both dates; lookup errors are
// returned as is.
func Backtrack(ev *Evaluation, m *metrics.Metrics, s *financials.Store, buy, sell time.Time, returnPercent float32) (*Backtracked, error) {
	start, err := s.DateToOffset(buy)
	if err != nil {
		return nil, fmt.Errorf("buy date: %w", err)
	}
	end, err := s.DateToOffset(sell)
	if err != nil {
		return nil, fmt.Errorf("sell date: %w", err)
	}

	bt := &Backtracked{}
	for c := range ev.CompaniesInvestable() {
		buyPrice := m.Value(metrics.BuySharePrice, c)
		r := scan(s, c, start, end, buyPrice, buyPrice*(1+returnPercent))
		bt.results = append(bt.results, r)
		switch r.Outcome {
		case ReachedReturnPercent:
			bt.stats.ReachedReturnPercent++
		case GainAtEnd:
			bt.stats.GainAtEnd++
		case LossAtEnd:
			bt.stats.LossAtEnd++
		}
	}
	return bt, nil
}

func scan(s *financials.Store, company, start, end int, buyPrice, target float32) Result {
	r := Result{Company: company, BuyPrice: buyPrice, Outcome: LossAtEnd}
	var last float32
	for d := start; d <= end; d++ {
		last = s.DailyValue(d, financials.HighSharePrice, company)
		if last >= target {
			r.Outcome = ReachedReturnPercent
			r.Price = last
			return r
		}
	}
	r.Price = last
	if last > buyPrice {
		r.Outcome = GainAtEnd
	}
	return r
}

// Stats returns the outcome counts.
func (b *Backtracked) Stats() Statistics { return b.stats }

// Results returns a copy of every result ordered by company id.
func (b *Backtracked) Results() []Result {
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// CompaniesWhich yields (company id, price) for every company with outcome
// o, in ascending id order.
func (b *Backtracked) CompaniesWhich(o Outcome) iter.Seq2[int, float32] {
	return func(yield func(int, float32) bool) {
		for _, r := range b.results {
			if r.Outcome == o && !yield(r.Company, r.Price) {
				return
			}
		}
	}
}
