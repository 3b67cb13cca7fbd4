// Package simfin loads the SimFin bulk download (the semicolon separated
// "us-*" CSV files) into a storage representation.
package simfin

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"valuesift/internal/financials"
	"valuesift/internal/gather"
	"valuesift/internal/util"
)

var _ gather.Fetcher = (*Fetcher)(nil)

var (
	// ErrFileNotFound is returned when one of the bulk files is missing.
	ErrFileNotFound = errors.New("simfin file not found")
	// ErrParse is returned for a cell or row that cannot be read.
	ErrParse = errors.New("simfin parse error")
)

const (
	CompaniesFile   = "us-companies.csv"
	SharePricesFile = "us-shareprices-daily.csv"
	BalanceFile     = "us-balance-annual.csv"
	IncomeFile      = "us-income-annual.csv"
	CashFlowFile    = "us-cashflow-annual.csv"
)

// Files lists every file Fetch reads, in reading order.
var Files = []string{CompaniesFile, SharePricesFile, BalanceFile, IncomeFile, CashFlowFile}

const (
	separator      = ';'
	readBufferSize = 1 << 15
	ctxCheckRows   = 4096

	// The report share price is the first known daily high this many days
	// after the publish date.
	minDaysAfterReport = 1
	maxDaysAfterReport = 10

	epsNetIncomeShare = 0.9
)

// Column positions.
const (
	colTicker = 0

	// Share prices.
	colPriceDate = 2
	colLow       = 4
	colHigh      = 5
	colVolume    = 9

	// Shared by the annual statements.
	colFiscalYear  = 3
	colPublishDate = 6

	// Balance sheet.
	colCash             = 9
	colPPE              = 13
	colTotalAssets      = 17
	colShortTermDebt    = 19
	colLongTermDebt     = 21
	colTotalLiabilities = 23
	colTotalEquity      = 27

	// Income statement.
	colShares    = 8
	colNetIncome = 25

	// Cash flow statement.
	colNetCash = 17
)

// Fetcher reads the bulk files from a local directory.
type Fetcher struct {
	dir string
	log *slog.Logger
}

// New returns a Fetcher over the files in dir.
func New(dir string) *Fetcher {
	return &Fetcher{
		dir: dir,
		log: slog.Default().With("fetcher", "simfin"),
	}
}

// Name returns the fetcher identifier.
func (f *Fetcher) Name() string { return "simfin" }

// Fetch parses the companies first, then the daily share prices, then the
// three annual statements. The share prices must be known before the
// balance sheet since it looks up the price after each publish date.
func (f *Fetcher) Fetch(ctx context.Context) (*financials.StorageRepr, error) {
	for _, name := range Files {
		path := filepath.Join(f.dir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
	}

	companies, err := f.readCompanies(ctx)
	if err != nil {
		return nil, err
	}
	f.log.Info("companies parsed", "count", companies.Len())

	repr := financials.NewStorageRepr(companies.Map())
	p := &parser{repr: repr}

	steps := []struct {
		name string
		row  func([]string, int) error
	}{
		{SharePricesFile, p.sharePriceRow},
		{BalanceFile, p.balanceRow},
		{IncomeFile, p.incomeRow},
		{CashFlowFile, p.cashFlowRow},
	}
	for _, step := range steps {
		start := time.Now()
		rows, err := f.readSheet(ctx, step.name, func(rec []string) error {
			id, err := companies.ID(rec[colTicker])
			if err != nil {
				return errSkip
			}
			return step.row(rec, id)
		})
		if err != nil {
			return nil, err
		}
		f.log.Info("sheet parsed", "file", step.name, "rows", rows, "elapsed", time.Since(start))
	}

	return repr, nil
}

// readCompanies assigns ids in file order, the first listing of a ticker
// keeping its id. Delisted duplicates carry an "_old" suffix and are skipped.
func (f *Fetcher) readCompanies(ctx context.Context) (*financials.Companies, error) {
	var symbols []string
	_, err := f.readSheet(ctx, CompaniesFile, func(rec []string) error {
		ticker := rec[colTicker]
		if ticker == "" || strings.Contains(ticker, "_old") {
			return errSkip
		}
		symbols = append(symbols, ticker)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return financials.CompaniesFromSymbols(symbols), nil
}

var errSkip = errors.New("skip row")

// readSheet calls fn for every row after the header and returns the number
// of rows fn accepted.
func (f *Fetcher) readSheet(ctx context.Context, name string, fn func([]string) error) (int, error) {
	file, err := os.Open(filepath.Join(f.dir, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	defer file.Close()

	r := csv.NewReader(bufio.NewReaderSize(file, readBufferSize))
	r.Comma = separator
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	var kept int
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return kept, nil
		}
		if err != nil {
			return kept, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
		}
		if line == 1 {
			continue
		}
		if line%ctxCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return kept, err
			}
		}

		switch err := fn(rec); {
		case errors.Is(err, errSkip):
		case err != nil:
			return kept, fmt.Errorf("%s line %d: %w", name, line, err)
		default:
			kept++
		}
	}
}

type parser struct {
	repr *financials.StorageRepr
}

func (p *parser) sharePriceRow(rec []string, id int) error {
	date, err := dateCell(rec, colPriceDate)
	if err != nil {
		return err
	}
	cells := []struct {
		col   int
		field financials.DailyField
	}{
		{colHigh, financials.HighSharePrice},
		{colLow, financials.LowSharePrice},
		{colVolume, financials.Volume},
	}
	for _, c := range cells {
		v, err := floatCell(rec, c.col)
		if err != nil {
			return err
		}
		p.repr.SetDaily(date, c.field, id, v)
	}
	return nil
}

func (p *parser) balanceRow(rec []string, id int) error {
	year, err := yearCell(rec, colFiscalYear)
	if err != nil {
		return err
	}
	published, err := dateCell(rec, colPublishDate)
	if err != nil {
		return err
	}

	v, err := floatCells(rec, colCash, colPPE, colTotalAssets, colShortTermDebt,
		colLongTermDebt, colTotalLiabilities, colTotalEquity)
	if err != nil {
		return err
	}

	p.repr.SetYearly(year, financials.CashAndShortTermInvestments, id, v[0])
	p.repr.SetYearly(year, financials.PPE, id, v[1])
	p.repr.SetYearly(year, financials.TotalAssets, id, v[2])
	p.repr.SetYearly(year, financials.TotalDebt, id, v[3]+v[4])
	p.repr.SetYearly(year, financials.TotalLiabilities, id, v[5])
	p.repr.SetYearly(year, financials.TotalShareholdersEquity, id, v[6])
	p.repr.SetYearly(year, financials.SharePriceAtReport, id, p.priceAfter(published, id))
	return nil
}

// priceAfter returns the first known daily high within the report window
// after published, NaN when there is none.
func (p *parser) priceAfter(published time.Time, id int) float32 {
	for d := minDaysAfterReport; d <= maxDaysAfterReport; d++ {
		v := p.repr.DailyValue(published.AddDate(0, 0, d), financials.HighSharePrice, id)
		if !math.IsNaN(float64(v)) {
			return v
		}
	}
	return float32(math.NaN())
}

func (p *parser) incomeRow(rec []string, id int) error {
	year, err := yearCell(rec, colFiscalYear)
	if err != nil {
		return err
	}
	v, err := floatCells(rec, colShares, colNetIncome)
	if err != nil {
		return err
	}
	shares, netIncome := v[0], v[1]

	p.repr.SetYearly(year, financials.TotalOutstandingShares, id, shares)
	p.repr.SetYearly(year, financials.EPS, id, netIncome*epsNetIncomeShare/shares)
	return nil
}

func (p *parser) cashFlowRow(rec []string, id int) error {
	year, err := yearCell(rec, colFiscalYear)
	if err != nil {
		return err
	}
	v, err := floatCell(rec, colNetCash)
	if err != nil {
		return err
	}
	p.repr.SetYearly(year, financials.CashFlow, id, v)
	return nil
}

// ---------------------------------------------------------------------------
// Cells
// ---------------------------------------------------------------------------

func cell(rec []string, col int) (string, error) {
	if col >= len(rec) {
		return "", fmt.Errorf("%w: row has %d columns, need column %d", ErrParse, len(rec), col)
	}
	return strings.TrimSpace(rec[col]), nil
}

// floatCell parses a numeric cell. An empty cell is a missing value.
func floatCell(rec []string, col int) (float32, error) {
	s, err := cell(rec, col)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return float32(math.NaN()), nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: column %d: not a number: %q", ErrParse, col, s)
	}
	return float32(v), nil
}

func floatCells(rec []string, cols ...int) ([]float32, error) {
	out := make([]float32, len(cols))
	for i, col := range cols {
		v, err := floatCell(rec, col)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func yearCell(rec []string, col int) (int, error) {
	s, err := cell(rec, col)
	if err != nil {
		return 0, err
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: column %d: not a year: %q", ErrParse, col, s)
	}
	return year, nil
}

func dateCell(rec []string, col int) (time.Time, error) {
	s, err := cell(rec, col)
	if err != nil {
		return time.Time{}, err
	}
	t, err := util.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: column %d: not a date: %q", ErrParse, col, s)
	}
	return t, nil
}
