package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"valuesift/internal/financials"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	if got, want := ps.yearlyPath(2019), filepath.Join("/data", "repr", "yearly", "2019.parquet"); got != want {
		t.Errorf("yearlyPath mismatch:\n  got  %s\n  want %s", got, want)
	}
	if got, want := ps.dailyPath(2020), filepath.Join("/data", "repr", "daily", "2020.parquet"); got != want {
		t.Errorf("dailyPath mismatch:\n  got  %s\n  want %s", got, want)
	}
	if got, want := ps.companiesPath(), filepath.Join("/data", "repr", "companies.parquet"); got != want {
		t.Errorf("companiesPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func sampleRepr() *financials.StorageRepr {
	repr := financials.NewStorageRepr(map[string]int{"AAPL": 0, "MSFT": 1})
	for year := 2018; year <= 2020; year++ {
		for _, f := range financials.AllYearlyFields() {
			repr.SetYearly(year, f, 0, float32(year)+float32(f))
		}
		// MSFT only reports cash flow.
		repr.SetYearly(year, financials.CashFlow, 1, 42)
	}
	for _, d := range []time.Time{
		time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
	} {
		repr.SetDaily(d, financials.HighSharePrice, 0, 150.5)
		repr.SetDaily(d, financials.LowSharePrice, 0, 148.25)
		repr.SetDaily(d, financials.Volume, 1, 1e6)
	}
	return repr
}

func TestParquetStoreSaveLoadRepr(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if ps.Exists() {
		t.Fatal("Exists() = true on an empty directory")
	}
	want := sampleRepr()
	if err := ps.SaveRepr(ctx, want); err != nil {
		t.Fatalf("SaveRepr: %v", err)
	}
	if !ps.Exists() {
		t.Fatal("Exists() = false after SaveRepr")
	}

	got, err := ps.LoadRepr(ctx, AllYears, AllYears)
	if err != nil {
		t.Fatalf("LoadRepr: %v", err)
	}
	if len(got.Companies) != 2 || got.Companies["MSFT"] != 1 {
		t.Errorf("Companies = %v, want AAPL:0 MSFT:1", got.Companies)
	}
	if len(got.Yearly) != 3 || len(got.Daily) != 2 {
		t.Fatalf("loaded %d yearly and %d daily tables, want 3 and 2", len(got.Yearly), len(got.Daily))
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for year, table := range want.Yearly {
		for i, v := range table {
			g := got.Yearly[year][i]
			if math.IsNaN(float64(v)) != math.IsNaN(float64(g)) || (!math.IsNaN(float64(v)) && v != g) {
				t.Fatalf("yearly %d cell %d = %v, want %v", year, i, g, v)
			}
		}
	}
	for year, table := range want.Daily {
		for i, v := range table {
			g := got.Daily[year][i]
			if math.IsNaN(float64(v)) != math.IsNaN(float64(g)) || (!math.IsNaN(float64(v)) && v != g) {
				t.Fatalf("daily %d cell %d = %v, want %v", year, i, g, v)
			}
		}
	}

	leap := time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)
	if v := got.DailyValue(leap, financials.HighSharePrice, 0); v != 150.5 {
		t.Errorf("AAPL high on 2020-02-29 = %v, want 150.5", v)
	}
	if v := got.DailyValue(leap, financials.HighSharePrice, 1); !math.IsNaN(float64(v)) {
		t.Errorf("MSFT high on 2020-02-29 = %v, want NaN", v)
	}
}

func TestParquetStoreLoadReprRange(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	if err := ps.SaveRepr(ctx, sampleRepr()); err != nil {
		t.Fatalf("SaveRepr: %v", err)
	}

	got, err := ps.LoadRepr(ctx, Years(2019, 2025), Years(2020, 2020))
	if err != nil {
		t.Fatalf("LoadRepr: %v", err)
	}
	if _, ok := got.Yearly[2018]; ok {
		t.Error("yearly 2018 loaded outside the requested range")
	}
	if len(got.Yearly) != 2 {
		t.Errorf("loaded %d yearly tables, want 2", len(got.Yearly))
	}
	if _, ok := got.Daily[2019]; ok || len(got.Daily) != 1 {
		t.Errorf("daily years = %v, want [2020]", got.DailyYears())
	}
}

func TestParquetStoreSaveRemovesStaleYears(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	repr := sampleRepr()
	if err := ps.SaveRepr(ctx, repr); err != nil {
		t.Fatalf("SaveRepr: %v", err)
	}
	delete(repr.Yearly, 2018)
	if err := ps.SaveRepr(ctx, repr); err != nil {
		t.Fatalf("SaveRepr: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "repr", "yearly", "2018.parquet")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale yearly file still present: %v", err)
	}
}

func TestParquetStoreLoadMissing(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	if _, err := ps.LoadRepr(context.Background(), AllYears, AllYears); err == nil {
		t.Error("LoadRepr on an empty directory returned nil error")
	}
}

func TestParquetStoreRejectsInvalidRepr(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	repr := sampleRepr()
	repr.Yearly[2019] = repr.Yearly[2019][:3]

	err := ps.SaveRepr(context.Background(), repr)
	if !errors.Is(err, financials.ErrShapeMismatch) {
		t.Errorf("SaveRepr error = %v, want ErrShapeMismatch", err)
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreSaveGetRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &Run{
		ID:             "run-1",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		BuyDate:        time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		SellDate:       time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		Options:        "buy_date: 2019-03-01\n",
		Ignored:        "pe_ratio",
		Considered:     100,
		SufficientData: 60,
		Investable:     3,
		Reached:        1,
		GainAtEnd:      0,
		LossAtEnd:      2,
		Outcomes: []RunOutcome{
			{Symbol: "MSFT", Outcome: "loss_at_end", BuyPrice: 100, Price: 80.5},
			{Symbol: "AAPL", Outcome: "reached_return_percent", BuyPrice: 10, Price: 15.25},
			// No high on the sell date.
			{Symbol: "IBM", Outcome: "loss_at_end", BuyPrice: 50, Price: float32(math.NaN())},
		},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) || !got.BuyDate.Equal(run.BuyDate) || !got.SellDate.Equal(run.SellDate) {
		t.Errorf("dates = %v %v %v, want %v %v %v",
			got.CreatedAt, got.BuyDate, got.SellDate, run.CreatedAt, run.BuyDate, run.SellDate)
	}
	if got.Options != run.Options || got.Ignored != run.Ignored {
		t.Errorf("Options/Ignored = %q/%q", got.Options, got.Ignored)
	}
	if got.Investable != 3 || got.Reached != 1 || got.SufficientData != 60 {
		t.Errorf("counts = %+v", got)
	}
	if len(got.Outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(got.Outcomes))
	}
	// Ordered by symbol.
	if got.Outcomes[0].Symbol != "AAPL" || got.Outcomes[0].Price != 15.25 {
		t.Errorf("Outcomes[0] = %+v", got.Outcomes[0])
	}
	if o := got.Outcomes[1]; o.Symbol != "IBM" || o.BuyPrice != 50 || !math.IsNaN(float64(o.Price)) {
		t.Errorf("Outcomes[1] = %+v, want IBM with a NaN price", o)
	}

	if err := s.SaveRun(ctx, run); err == nil {
		t.Error("saving a duplicate run id returned nil error")
	}
}

func TestSQLiteStoreGetRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteStoreListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := s.SaveRun(ctx, &Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			BuyDate:   base,
			SellDate:  base.AddDate(1, 0, 0),
			Options:   "{}",
		})
		if err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns(2) ids = %v, want [c b]", runIDs(runs))
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func runIDs(runs []Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
