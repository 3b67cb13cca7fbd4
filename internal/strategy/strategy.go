// Package strategy classifies companies against per-metric acceptance bounds
// and backtracks the investable ones over the holding period.
package strategy

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"valuesift/internal/metrics"
)

// Interval is an open acceptance interval. A value passes when
// Min < v < Max.
type Interval struct {
	Min float32
	Max float32
}

// Unbounded is (-Inf, +Inf).
var Unbounded = Interval{Min: float32(math.Inf(-1)), Max: float32(math.Inf(1))}

// Contains reports whether v lies strictly inside the interval.
func (i Interval) Contains(v float32) bool {
	return i.Min < v && v < i.Max
}

func (i Interval) String() string {
	return fmt.Sprintf("(%g, %g)", i.Min, i.Max)
}

// Bounds holds one Interval per metric field.
type Bounds struct {
	intervals [metrics.FieldCount]Interval
}

// NewBounds returns bounds that accept every value.
func NewBounds() *Bounds {
	b := &Bounds{}
	for i := range b.intervals {
		b.intervals[i] = Unbounded
	}
	return b
}

// Set replaces the interval for f and returns b for chaining.
func (b *Bounds) Set(f metrics.Field, min, max float32) *Bounds {
	b.intervals[f] = Interval{Min: min, Max: max}
	return b
}

// Get returns the interval for f.
func (b *Bounds) Get(f metrics.Field) Interval {
	return b.intervals[f]
}

// BoundsFromOptions maps the strategy thresholds onto bounds:
//
//	CNAVMinusBuyPrice  (0, +Inf)    unless IgnoreCNAVCmp
//	CashFlows          (0, +Inf)
//	CNAVMinusNAV       (-Inf, 0)
//	DebtToEquityRatio  (-Inf, MaxDebtToEquity)
//	MarketCap          (MinMarketCap, +Inf)
//	PERatio            (-Inf, MaxPERatio)
//	PotentialROI       (MinPotentialROI, +Inf)
func BoundsFromOptions(opts metrics.Options) *Bounds {
	inf := float32(math.Inf(1))
	b := NewBounds()
	if !opts.IgnoreCNAVCmp {
		b.Set(metrics.CNAVMinusBuyPrice, 0, inf)
	}
	b.Set(metrics.CashFlows, 0, inf)
	b.Set(metrics.CNAVMinusNAV, -inf, 0)
	b.Set(metrics.DebtToEquityRatio, -inf, opts.MaxDebtToEquity)
	b.Set(metrics.MarketCap, opts.MinMarketCap, inf)
	b.Set(metrics.PERatio, -inf, opts.MaxPERatio)
	b.Set(metrics.PotentialROI, opts.MinPotentialROI, inf)
	return b
}

// FieldSet is a set of metric fields, used to exclude fields from the
// bounds check.
type FieldSet uint32

// NewFieldSet returns a set holding fields.
func NewFieldSet(fields ...metrics.Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s = s.With(f)
	}
	return s
}

// With returns s with f added.
func (s FieldSet) With(f metrics.Field) FieldSet { return s | 1<<uint(f) }

// Has reports whether f is in s.
func (s FieldSet) Has(f metrics.Field) bool { return s&(1<<uint(f)) != 0 }

// Fields returns the members of s in field order.
func (s FieldSet) Fields() []metrics.Field {
	var out []metrics.Field
	for _, f := range metrics.AllFields() {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FieldSet) String() string {
	names := make([]string, 0, metrics.FieldCount)
	for _, f := range s.Fields() {
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}

// ParseFieldSet builds a set from metric names.
func ParseFieldSet(names []string) (FieldSet, error) {
	var s FieldSet
	for _, name := range names {
		f, err := metrics.ParseField(name)
		if err != nil {
			return 0, err
		}
		s = s.With(f)
	}
	return s, nil
}

// Verdict is the evaluator's classification of one company.
type Verdict int

const (
	// InsufficientData means at least one metric was NaN.
	InsufficientData Verdict = iota
	Investable
	NotInvestable
)

func (v Verdict) String() string {
	switch v {
	case InsufficientData:
		return "insufficient_data"
	case Investable:
		return "investable"
	case NotInvestable:
		return "not_investable"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Evaluation holds one verdict per company, indexed by company id.
type Evaluation struct {
	verdicts []Verdict
}

// Evaluate classifies every company of m. Any NaN metric, ignored or not,
// yields InsufficientData. Otherwise the company is Investable when every
// field outside ignored lies strictly inside its bounds.
func Evaluate(m *metrics.Metrics, bounds *Bounds, ignored FieldSet) *Evaluation {
	n := m.Companies()
	ev := &Evaluation{verdicts: make([]Verdict, n)}
	for c := 0; c < n; c++ {
		ev.verdicts[c] = classify(m, bounds, ignored, c)
	}
	return ev
}

func classify(m *metrics.Metrics, bounds *Bounds, ignored FieldSet, c int) Verdict {
	for f := metrics.Field(0); f < metrics.FieldCount; f++ {
		if v := m.Value(f, c); v != v {
			return InsufficientData
		}
	}
	for f := metrics.Field(0); f < metrics.FieldCount; f++ {
		if ignored.Has(f) {
			continue
		}
		if !bounds.Get(f).Contains(m.Value(f, c)) {
			return NotInvestable
		}
	}
	return Investable
}

// Len returns the number of companies evaluated.
func (e *Evaluation) Len() int { return len(e.verdicts) }

// Verdict returns the verdict for a company id.
func (e *Evaluation) Verdict(company int) Verdict { return e.verdicts[company] }

// Verdicts returns a copy of all verdicts ordered by company id.
func (e *Evaluation) Verdicts() []Verdict {
	out := make([]Verdict, len(e.verdicts))
	copy(out, e.verdicts)
	return out
}

// CompaniesWithSufficientData yields, in ascending order, the ids of
// companies whose metrics were all known.
func (e *Evaluation) CompaniesWithSufficientData() iter.Seq[int] {
	return e.which(func(v Verdict) bool { return v != InsufficientData })
}

// CompaniesInvestable yields, in ascending order, the ids of investable
// companies.
func (e *Evaluation) CompaniesInvestable() iter.Seq[int] {
	return e.which(func(v Verdict) bool { return v == Investable })
}

func (e *Evaluation) which(keep func(Verdict) bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for c, v := range e.verdicts {
			if keep(v) && !yield(c) {
				return
			}
		}
	}
}

// EvaluationCounts tallies verdicts.
type EvaluationCounts struct {
	Considered       int
	SufficientData   int
	Investable       int
	NotInvestable    int
	InsufficientData int
}

// Counts tallies the verdicts of e.
func (e *Evaluation) Counts() EvaluationCounts {
	counts := EvaluationCounts{Considered: len(e.verdicts)}
	for _, v := range e.verdicts {
		switch v {
		case Investable:
			counts.Investable++
		case NotInvestable:
			counts.NotInvestable++
		case InsufficientData:
			counts.InsufficientData++
		}
	}
	counts.SufficientData = counts.Investable + counts.NotInvestable
	return counts
}
