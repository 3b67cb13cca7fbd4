package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"valuesift/internal/financials"
	"valuesift/internal/util"
)

// Compile-time interface check.
var _ ReprStore = (*ParquetStore)(nil)

// maxConcurrentFiles bounds the number of year files read or written at once.
const maxConcurrentFiles = 8

// ParquetStore implements ReprStore using Parquet files on disk.
//
// Layout:
//
//	<DataDir>/repr/companies.parquet
//	<DataDir>/repr/yearly/<YYYY>.parquet
//	<DataDir>/repr/daily/<YYYY>.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// CompanyRecord is the Parquet schema for the company index.
type CompanyRecord struct {
	Symbol string `parquet:"symbol"`
	ID     int32  `parquet:"id"`
}

// YearlyRecord is the Parquet schema for one company's yearly fundamentals.
// Unknown values are stored as NaN.
type YearlyRecord struct {
	Company                     int32   `parquet:"company"`
	CashAndShortTermInvestments float32 `parquet:"cash_and_short_term_investments"`
	PPE                         float32 `parquet:"ppe"`
	TotalLiabilities            float32 `parquet:"total_liabilities"`
	TotalAssets                 float32 `parquet:"total_assets"`
	TotalDebt                   float32 `parquet:"total_debt"`
	TotalShareholdersEquity     float32 `parquet:"total_shareholders_equity"`
	TotalOutstandingShares      float32 `parquet:"total_outstanding_shares"`
	EPS                         float32 `parquet:"eps"`
	SharePriceAtReport          float32 `parquet:"share_price_at_report"`
	CashFlow                    float32 `parquet:"cash_flow"`
}

// DailyRecord is the Parquet schema for one company's prices on one day.
// Days on which all three values are unknown are not written.
type DailyRecord struct {
	Company  int32   `parquet:"company"`
	EpochDay int32   `parquet:"epoch_day"`
	High     float32 `parquet:"high"`
	Low      float32 `parquet:"low"`
	Volume   float32 `parquet:"volume"`
}

// ---------------------------------------------------------------------------
// ReprStore implementation
// ---------------------------------------------------------------------------

// SaveRepr writes the company index and one file per yearly and daily table.
// Year files not present in repr are removed so that the directory mirrors
// repr exactly.
func (s *ParquetStore) SaveRepr(ctx context.Context, repr *financials.StorageRepr) error {
	if err := repr.Validate(); err != nil {
		return err
	}

	companies := make([]CompanyRecord, 0, len(repr.Companies))
	for sym, id := range repr.Companies {
		companies = append(companies, CompanyRecord{Symbol: sym, ID: int32(id)})
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })
	if err := writeParquetFile(s.companiesPath(), companies); err != nil {
		return fmt.Errorf("writing companies: %w", err)
	}

	n := len(repr.Companies)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)

	for _, year := range repr.YearlyYears() {
		table := repr.Yearly[year]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeParquetFile(s.yearlyPath(year), yearlyRecords(table, n)); err != nil {
				return fmt.Errorf("writing yearly %d: %w", year, err)
			}
			return nil
		})
	}
	for _, year := range repr.DailyYears() {
		table := repr.Daily[year]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeParquetFile(s.dailyPath(year), dailyRecords(year, table, n)); err != nil {
				return fmt.Errorf("writing daily %d: %w", year, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.removeStale(filepath.Join(s.reprDir(), "yearly"), repr.Yearly); err != nil {
		return err
	}
	return s.removeStale(filepath.Join(s.reprDir(), "daily"), repr.Daily)
}

// LoadRepr reads the company index and the year files inside the given
// ranges. Files are read concurrently; the result is assembled only after
// every read has finished.
func (s *ParquetStore) LoadRepr(ctx context.Context, yearly, daily YearRange) (*financials.StorageRepr, error) {
	companies, err := readParquetFile[CompanyRecord](s.companiesPath())
	if err != nil {
		return nil, fmt.Errorf("reading companies: %w", err)
	}
	ids := make(map[string]int, len(companies))
	for _, c := range companies {
		ids[c.Symbol] = int(c.ID)
	}
	repr := financials.NewStorageRepr(ids)
	n := len(ids)

	yearlyYears, err := s.listYears(filepath.Join(s.reprDir(), "yearly"), yearly)
	if err != nil {
		return nil, err
	}
	dailyYears, err := s.listYears(filepath.Join(s.reprDir(), "daily"), daily)
	if err != nil {
		return nil, err
	}

	yearlyTables := make([][]float32, len(yearlyYears))
	dailyTables := make([][]float32, len(dailyYears))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)

	for i, year := range yearlyYears {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := readParquetFile[YearlyRecord](s.yearlyPath(year))
			if err != nil {
				return fmt.Errorf("reading yearly %d: %w", year, err)
			}
			table, err := yearlyTable(records, n)
			if err != nil {
				return fmt.Errorf("yearly %d: %w", year, err)
			}
			yearlyTables[i] = table
			return nil
		})
	}
	for i, year := range dailyYears {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := readParquetFile[DailyRecord](s.dailyPath(year))
			if err != nil {
				return fmt.Errorf("reading daily %d: %w", year, err)
			}
			table, err := dailyTable(year, records, n)
			if err != nil {
				return fmt.Errorf("daily %d: %w", year, err)
			}
			dailyTables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, year := range yearlyYears {
		repr.Yearly[year] = yearlyTables[i]
	}
	for i, year := range dailyYears {
		repr.Daily[year] = dailyTables[i]
	}
	return repr, nil
}

// listYears returns the years with a file in dir that fall inside r,
// ascending. A missing directory yields no years.
func (s *ParquetStore) listYears(dir string, r YearRange) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".parquet"))
		if err != nil || !r.Contains(year) {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// Exists reports whether a company index has been saved.
func (s *ParquetStore) Exists() bool {
	_, err := os.Stat(s.companiesPath())
	return err == nil
}

func (s *ParquetStore) removeStale(dir string, keep map[int][]float32) error {
	years, err := s.listYears(dir, AllYears)
	if err != nil {
		return err
	}
	for _, year := range years {
		if _, ok := keep[year]; ok {
			continue
		}
		path := filepath.Join(dir, strconv.Itoa(year)+".parquet")
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Table <-> record conversion
// ---------------------------------------------------------------------------

func yearlyRecords(table []float32, n int) []YearlyRecord {
	at := func(f financials.YearlyField, c int) float32 { return table[int(f)*n+c] }
	records := make([]YearlyRecord, n)
	for c := 0; c < n; c++ {
		records[c] = YearlyRecord{
			Company:                     int32(c),
			CashAndShortTermInvestments: at(financials.CashAndShortTermInvestments, c),
			PPE:                         at(financials.PPE, c),
			TotalLiabilities:            at(financials.TotalLiabilities, c),
			TotalAssets:                 at(financials.TotalAssets, c),
			TotalDebt:                   at(financials.TotalDebt, c),
			TotalShareholdersEquity:     at(financials.TotalShareholdersEquity, c),
			TotalOutstandingShares:      at(financials.TotalOutstandingShares, c),
			EPS:                         at(financials.EPS, c),
			SharePriceAtReport:          at(financials.SharePriceAtReport, c),
			CashFlow:                    at(financials.CashFlow, c),
		}
	}
	return records
}

func yearlyTable(records []YearlyRecord, n int) ([]float32, error) {
	table := financials.NaNTable(financials.YearlyTableLen(n))
	for _, r := range records {
		c := int(r.Company)
		if c < 0 || c >= n {
			return nil, fmt.Errorf("%w: company %d", financials.ErrShapeMismatch, c)
		}
		values := [financials.YearlyFieldCount]float32{
			r.CashAndShortTermInvestments,
			r.PPE,
			r.TotalLiabilities,
			r.TotalAssets,
			r.TotalDebt,
			r.TotalShareholdersEquity,
			r.TotalOutstandingShares,
			r.EPS,
			r.SharePriceAtReport,
			r.CashFlow,
		}
		for f, v := range values {
			table[f*n+c] = v
		}
	}
	return table, nil
}

func dailyRecords(year int, table []float32, n int) []DailyRecord {
	first := util.EpochDay(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	days := util.DaysInYear(year)
	at := func(d int, f financials.DailyField, c int) float32 {
		return table[(d*financials.DailyFieldCount+int(f))*n+c]
	}

	var records []DailyRecord
	for c := 0; c < n; c++ {
		for d := 0; d < days; d++ {
			r := DailyRecord{
				Company:  int32(c),
				EpochDay: int32(first + d),
				High:     at(d, financials.HighSharePrice, c),
				Low:      at(d, financials.LowSharePrice, c),
				Volume:   at(d, financials.Volume, c),
			}
			if isNaN(r.High) && isNaN(r.Low) && isNaN(r.Volume) {
				continue
			}
			records = append(records, r)
		}
	}
	return records
}

func dailyTable(year int, records []DailyRecord, n int) ([]float32, error) {
	first := util.EpochDay(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	days := util.DaysInYear(year)
	table := financials.NaNTable(financials.DailyTableLen(year, n))
	for _, r := range records {
		c, d := int(r.Company), int(r.EpochDay)-first
		if c < 0 || c >= n || d < 0 || d >= days {
			return nil, fmt.Errorf("%w: company %d day %d", financials.ErrShapeMismatch, c, r.EpochDay)
		}
		row := d * financials.DailyFieldCount * n
		table[row+int(financials.HighSharePrice)*n+c] = r.High
		table[row+int(financials.LowSharePrice)*n+c] = r.Low
		table[row+int(financials.Volume)*n+c] = r.Volume
	}
	return table, nil
}

func isNaN(v float32) bool { return v != v }

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

func (s *ParquetStore) reprDir() string {
	return filepath.Join(s.DataDir, "repr")
}

func (s *ParquetStore) companiesPath() string {
	return filepath.Join(s.reprDir(), "companies.parquet")
}

// yearlyPath returns <DataDir>/repr/yearly/<YYYY>.parquet.
func (s *ParquetStore) yearlyPath(year int) string {
	return filepath.Join(s.reprDir(), "yearly", strconv.Itoa(year)+".parquet")
}

// dailyPath returns <DataDir>/repr/daily/<YYYY>.parquet.
func (s *ParquetStore) dailyPath(year int) string {
	return filepath.Join(s.reprDir(), "daily", strconv.Itoa(year)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
