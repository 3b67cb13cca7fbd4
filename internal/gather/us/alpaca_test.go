package us

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"valuesift/internal/financials"
	"valuesift/internal/gather"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    [][]string
	failures int // calls to fail before answering
	bars     map[string][]marketdata.Bar
}

func (c *fakeClient) GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, slices.Clone(symbols))
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("429 too many requests")
	}
	out := make(map[string][]marketdata.Bar)
	for _, s := range symbols {
		if b, ok := c.bars[s]; ok {
			out[s] = b
		}
	}
	return out, nil
}

// nyMidnight is how Alpaca stamps a daily bar.
func nyMidnight(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 4, 0, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRepr() *financials.StorageRepr {
	return financials.NewStorageRepr(map[string]int{"AAA": 0, "BBB": 1, "CCC": 2})
}

func newTestFetcher(c *fakeClient, batchSize int) *DailyPriceFetcher {
	f := newDailyPriceFetcher(c, "iex", batchSize, 2, 0)
	f.backoff.Base = time.Millisecond
	return f
}

func TestDailyPriceFetcherName(t *testing.T) {
	f := NewDailyPriceFetcher("key", "secret", "https://data.alpaca.markets", "sip", 100, 4, 180)
	if got := f.Name(); got != "us-daily" {
		t.Errorf("DailyPriceFetcher.Name() = %q, want %q", got, "us-daily")
	}
}

func TestUpdate(t *testing.T) {
	client := &fakeClient{
		failures: 1,
		bars: map[string][]marketdata.Bar{
			"AAA": {
				{Timestamp: nyMidnight(2019, 12, 31), High: 11, Low: 9, Volume: 500},
				{Timestamp: nyMidnight(2020, 1, 2), High: 12.5, Low: 10, Volume: 700},
				// Outside the requested range.
				{Timestamp: nyMidnight(2020, 2, 1), High: 99, Low: 99, Volume: 1},
			},
			"CCC": {
				{Timestamp: nyMidnight(2020, 1, 2), High: 3, Low: 2, Volume: 10},
			},
		},
	}
	repr := testRepr()
	r := gather.DateRange{Start: day(2019, 12, 30), End: day(2020, 1, 31)}

	if err := newTestFetcher(client, 2).Update(context.Background(), repr, r); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Two batches plus one retried call.
	if len(client.calls) != 3 {
		t.Errorf("got %d calls, want 3: %v", len(client.calls), client.calls)
	}
	for _, call := range client.calls {
		if len(call) > 2 {
			t.Errorf("batch %v larger than 2", call)
		}
	}

	if got := repr.DailyYears(); !slices.Equal(got, []int{2019, 2020}) {
		t.Errorf("DailyYears() = %v, want [2019 2020]", got)
	}
	checks := []struct {
		date    time.Time
		field   financials.DailyField
		company int
		want    float32
	}{
		{day(2019, 12, 31), financials.HighSharePrice, 0, 11},
		{day(2019, 12, 31), financials.LowSharePrice, 0, 9},
		{day(2019, 12, 31), financials.Volume, 0, 500},
		{day(2020, 1, 2), financials.HighSharePrice, 0, 12.5},
		{day(2020, 1, 2), financials.HighSharePrice, 2, 3},
	}
	for _, c := range checks {
		if got := repr.DailyValue(c.date, c.field, c.company); got != c.want {
			t.Errorf("%s %s[%d] = %v, want %v", c.date.Format("2006-01-02"), c.field, c.company, got, c.want)
		}
	}
	if got := repr.DailyValue(day(2020, 2, 1), financials.HighSharePrice, 0); !math.IsNaN(float64(got)) {
		t.Errorf("bar outside the range was written: %v", got)
	}
	if got := repr.DailyValue(day(2020, 1, 2), financials.HighSharePrice, 1); !math.IsNaN(float64(got)) {
		t.Errorf("BBB without bars = %v, want NaN", got)
	}
}

func TestUpdateKeepsExistingValues(t *testing.T) {
	repr := testRepr()
	repr.SetDaily(day(2020, 1, 3), financials.HighSharePrice, 1, 42)

	client := &fakeClient{bars: map[string][]marketdata.Bar{
		"BBB": {{Timestamp: nyMidnight(2020, 1, 2), High: 40, Low: 39, Volume: 1}},
	}}
	r := gather.DateRange{Start: day(2020, 1, 1), End: day(2020, 1, 31)}
	if err := newTestFetcher(client, 10).Update(context.Background(), repr, r); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := repr.DailyValue(day(2020, 1, 3), financials.HighSharePrice, 1); got != 42 {
		t.Errorf("existing value = %v, want 42", got)
	}
}

func TestUpdateReportsFailedBatches(t *testing.T) {
	client := &fakeClient{failures: 100}
	r := gather.DateRange{Start: day(2020, 1, 1), End: day(2020, 1, 31)}
	err := newTestFetcher(client, 2).Update(context.Background(), testRepr(), r)
	if err == nil {
		t.Fatal("Update succeeded with every call failing")
	}
	if len(client.calls) != 2*fetchAttempts {
		t.Errorf("got %d calls, want %d", len(client.calls), 2*fetchAttempts)
	}
}

func TestUpdateRejectsBadRange(t *testing.T) {
	r := gather.DateRange{Start: day(2020, 2, 1), End: day(2020, 1, 1)}
	if err := newTestFetcher(&fakeClient{}, 2).Update(context.Background(), testRepr(), r); err == nil {
		t.Error("Update accepted a range ending before it starts")
	}
}

func TestApplyBarsSymbolCase(t *testing.T) {
	repr := testRepr()
	bars := map[string][]marketdata.Bar{
		"aaa": {{Timestamp: nyMidnight(2020, 3, 2), High: 7, Low: 6, Volume: 3}},
		"ZZZ": {{Timestamp: nyMidnight(2020, 3, 2), High: 1, Low: 1, Volume: 1}},
	}
	r := gather.DateRange{Start: day(2020, 1, 1), End: day(2020, 12, 31)}
	if n := applyBars(repr, bars, r); n != 1 {
		t.Errorf("applyBars wrote %d days, want 1", n)
	}
	if got := repr.DailyValue(day(2020, 3, 2), financials.HighSharePrice, 0); got != 7 {
		t.Errorf("AAA high = %v, want 7", got)
	}
}

func TestLatestFinished(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tz database: %v", err)
	}
	days := []string{"2024-03-04", "2024-03-05", "2024-03-06"}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"during session", time.Date(2024, 3, 6, 11, 0, 0, 0, et), "2024-03-05"},
		{"after cutoff", time.Date(2024, 3, 6, 21, 0, 0, 0, et), "2024-03-06"},
		{"weekend", time.Date(2024, 3, 9, 12, 0, 0, 0, et), "2024-03-06"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := latestFinished(days, tc.now)
			if err != nil {
				t.Fatalf("latestFinished: %v", err)
			}
			if got.Format("2006-01-02") != tc.want {
				t.Errorf("latestFinished = %s, want %s", got.Format("2006-01-02"), tc.want)
			}
		})
	}

	if _, err := latestFinished([]string{"2024-03-06"}, time.Date(2024, 3, 6, 9, 0, 0, 0, et)); !errors.Is(err, errNoTradingDay) {
		t.Errorf("latestFinished with only an unfinished day: err = %v, want errNoTradingDay", err)
	}
}
