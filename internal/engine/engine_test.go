package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"valuesift/internal/financials"
	"valuesift/internal/metrics"
	"valuesift/internal/store"
	"valuesift/internal/strategy"
)

var (
	buyDate  = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	sellDate = time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)
)

// fakeReprs serves a fixed representation, filtered to the requested years
// the way the Parquet store does.
type fakeReprs struct {
	repr          *financials.StorageRepr
	yearly, daily store.YearRange
}

func (f *fakeReprs) SaveRepr(context.Context, *financials.StorageRepr) error { return nil }

func (f *fakeReprs) LoadRepr(_ context.Context, yearly, daily store.YearRange) (*financials.StorageRepr, error) {
	f.yearly, f.daily = yearly, daily
	out := financials.NewStorageRepr(f.repr.Companies)
	for year, t := range f.repr.Yearly {
		if yearly.Contains(year) {
			out.Yearly[year] = t
		}
	}
	for year, t := range f.repr.Daily {
		if daily.Contains(year) {
			out.Daily[year] = t
		}
	}
	return out, nil
}

type fakeRuns struct {
	saved []*store.Run
}

func (f *fakeRuns) SaveRun(_ context.Context, run *store.Run) error {
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeRuns) GetRun(context.Context, string) (*store.Run, error) {
	return nil, store.ErrRunNotFound
}

func (f *fakeRuns) ListRuns(context.Context, int) ([]store.Run, error) { return nil, nil }

// fixtureRepr has three companies over 2019-2020:
//
//	AAA  investable, its high reaches 160 a month after buying
//	BBB  P/E 12, above the limit
//	CCC  no EPS, so insufficient data
func fixtureRepr() *financials.StorageRepr {
	repr := financials.NewStorageRepr(map[string]int{"AAA": 0, "BBB": 1, "CCC": 2})
	yearly := map[financials.YearlyField]float32{
		financials.CashAndShortTermInvestments: 500,
		financials.PPE:                         200,
		financials.TotalLiabilities:            400,
		financials.TotalAssets:                 1000,
		financials.TotalDebt:                   100,
		financials.TotalShareholdersEquity:     400,
		financials.TotalOutstandingShares:      1,
		financials.EPS:                         2,
		financials.SharePriceAtReport:          12,
		financials.CashFlow:                    50,
	}
	for c := range 3 {
		for year := 2019; year <= 2020; year++ {
			for f, v := range yearly {
				repr.SetYearly(year, f, c, v)
			}
		}
		for d := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() <= 2020; d = d.AddDate(0, 0, 1) {
			repr.SetDaily(d, financials.HighSharePrice, c, 100)
		}
	}
	repr.SetYearly(2020, financials.EPS, 1, 1)
	repr.SetYearly(2020, financials.EPS, 2, float32(math.NaN()))
	repr.SetDaily(time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), financials.HighSharePrice, 0, 160)
	return repr
}

func testOptions() metrics.Options {
	return metrics.Options{
		BuyDate:         buyDate,
		SellDate:        sellDate,
		CashFlowsBack:   1,
		MaxPERatio:      10,
		MaxDebtToEquity: 1,
		MinPotentialROI: 0.5,
		MinMarketCap:    10,
		ReturnPercent:   0.5,
	}
}

func newTestEngine(repr *financials.StorageRepr) (*Engine, *fakeReprs, *fakeRuns) {
	reprs := &fakeReprs{repr: repr}
	runs := &fakeRuns{}
	e := NewEngine(reprs, runs)
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.newID = func() string { return "run-1" }
	return e, reprs, runs
}

func TestRun(t *testing.T) {
	e, reprs, runs := newTestEngine(fixtureRepr())

	res, err := e.Run(context.Background(), Request{Options: testOptions(), Save: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if reprs.yearly != store.Years(2019, 2020) || reprs.daily != store.Years(2019, 2020) {
		t.Errorf("requested yearly %v daily %v, want 2019..2020 for both", reprs.yearly, reprs.daily)
	}

	s := res.Summary
	if s.Considered != 3 || s.SufficientData != 2 || s.Investable != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", s.Considered, s.SufficientData, s.Investable)
	}
	if s.Stats.ReachedReturnPercent != 1 || s.Overall() != "GAIN" {
		t.Errorf("stats = %+v, overall %s", s.Stats, s.Overall())
	}
	if len(s.Entries) != 1 || s.Entries[0].Symbol != "AAA" || s.Entries[0].Price != 160 {
		t.Errorf("entries = %+v", s.Entries)
	}

	if res.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", res.RunID)
	}
	if len(runs.saved) != 1 {
		t.Fatalf("saved %d runs, want 1", len(runs.saved))
	}
	run := runs.saved[0]
	if run.Considered != 3 || run.Investable != 1 || run.Reached != 1 {
		t.Errorf("saved run counts = %+v", run)
	}
	if !strings.Contains(run.Options, "buy_date: \"2020-06-01\"") && !strings.Contains(run.Options, "buy_date: 2020-06-01") {
		t.Errorf("options snapshot missing buy date:\n%s", run.Options)
	}
	if len(run.Outcomes) != 1 || run.Outcomes[0].Outcome != "reached_return_percent" {
		t.Errorf("saved outcomes = %+v", run.Outcomes)
	}
}

func TestRunIgnoredMetric(t *testing.T) {
	e, _, runs := newTestEngine(fixtureRepr())

	res, err := e.Run(context.Background(), Request{
		Options: testOptions(),
		Ignored: strategy.NewFieldSet(metrics.PERatio),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// BBB passes once P/E is ignored. CCC still lacks data for it.
	if res.Summary.Investable != 2 {
		t.Errorf("Investable = %d, want 2", res.Summary.Investable)
	}
	if res.RunID != "" || len(runs.saved) != 0 {
		t.Errorf("unsaved run was recorded: id %q, %d saved", res.RunID, len(runs.saved))
	}
}

func TestRunMissingYears(t *testing.T) {
	repr := fixtureRepr()
	delete(repr.Yearly, 2019)
	delete(repr.Daily, 2019)
	e, _, runs := newTestEngine(repr)

	_, err := e.Run(context.Background(), Request{Options: testOptions(), Save: true})
	if !errors.Is(err, financials.ErrMissingYear) {
		t.Fatalf("Run error = %v, want ErrMissingYear", err)
	}
	if !strings.Contains(err.Error(), "yearly 2019") || !strings.Contains(err.Error(), "daily 2019") {
		t.Errorf("error %q does not name both gaps", err)
	}
	if len(runs.saved) != 0 {
		t.Error("failed run was saved")
	}
}

func TestRunInvalidOptions(t *testing.T) {
	e, _, _ := newTestEngine(fixtureRepr())
	opts := testOptions()
	opts.SellDate = opts.BuyDate

	_, err := e.Run(context.Background(), Request{Options: opts})
	if !errors.Is(err, metrics.ErrInvalidOptions) {
		t.Errorf("Run error = %v, want ErrInvalidOptions", err)
	}
}

func TestRunWithoutRunStore(t *testing.T) {
	e := NewEngine(&fakeReprs{repr: fixtureRepr()}, nil)
	if _, err := e.Run(context.Background(), Request{Options: testOptions(), Save: true}); !errors.Is(err, ErrNoRunStore) {
		t.Errorf("Run error = %v, want ErrNoRunStore", err)
	}
	if _, err := e.Run(context.Background(), Request{Options: testOptions()}); err != nil {
		t.Errorf("unsaved Run: %v", err)
	}
}

func TestCheckCoverage(t *testing.T) {
	repr := financials.NewStorageRepr(map[string]int{"AAA": 0})
	repr.EnsureYear(2018)
	repr.EnsureYear(2020)
	repr.EnsureDailyYear(2020)

	lo := financials.LoaderOptions{
		YearlyMin: 2018,
		YearlyMax: 2020,
		DailyMin:  time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		DailyMax:  time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	c := CheckCoverage(repr, lo)
	if len(c.MissingYearly) != 1 || c.MissingYearly[0] != 2019 {
		t.Errorf("MissingYearly = %v, want [2019]", c.MissingYearly)
	}
	if len(c.MissingDaily) != 2 || c.MissingDaily[0] != 2019 || c.MissingDaily[1] != 2021 {
		t.Errorf("MissingDaily = %v, want [2019 2021]", c.MissingDaily)
	}

	repr.EnsureYear(2019)
	repr.EnsureDailyYear(2019)
	repr.EnsureDailyYear(2021)
	if err := CheckCoverage(repr, lo).Err(); err != nil {
		t.Errorf("full coverage: %v", err)
	}
}
