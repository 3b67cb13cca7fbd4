package financials

import (
	"fmt"
	"math"
	"sort"
	"time"

	"valuesift/internal/util"
)

// StorageRepr is the per-year form of the financial data produced by the
// loaders and persisted by the store package. It is the only input the Store
// is built from.
//
// Yearly tables are field-major (field × company): index f*N + c.
// Daily tables are (day-of-year × field × company): index (d*F + f)*N + c,
// with one row per calendar day, 365 or 366 rows.
type StorageRepr struct {
	Companies map[string]int
	Yearly    map[int][]float32
	Daily     map[int][]float32
}

// NewStorageRepr returns an empty representation over the given companies.
func NewStorageRepr(companies map[string]int) *StorageRepr {
	return &StorageRepr{
		Companies: companies,
		Yearly:    make(map[int][]float32),
		Daily:     make(map[int][]float32),
	}
}

// NaNTable returns a table of n cells all holding the missing sentinel.
func NaNTable(n int) []float32 {
	t := make([]float32, n)
	nan := float32(math.NaN())
	for i := range t {
		t[i] = nan
	}
	return t
}

// YearlyTableLen is the expected length of one yearly table.
func YearlyTableLen(companies int) int {
	return YearlyFieldCount * companies
}

// DailyTableLen is the expected length of the daily table for year.
func DailyTableLen(year, companies int) int {
	return util.DaysInYear(year) * DailyFieldCount * companies
}

// EnsureYear returns the yearly table for year, creating a NaN filled one
// when absent.
func (r *StorageRepr) EnsureYear(year int) []float32 {
	t, ok := r.Yearly[year]
	if !ok {
		t = NaNTable(YearlyTableLen(len(r.Companies)))
		r.Yearly[year] = t
	}
	return t
}

// EnsureDailyYear returns the daily table for year, creating a NaN filled
// one when absent.
func (r *StorageRepr) EnsureDailyYear(year int) []float32 {
	t, ok := r.Daily[year]
	if !ok {
		t = NaNTable(DailyTableLen(year, len(r.Companies)))
		r.Daily[year] = t
	}
	return t
}

// SetYearly stores v for (year, field, company).
func (r *StorageRepr) SetYearly(year int, field YearlyField, company int, v float32) {
	n := len(r.Companies)
	r.EnsureYear(year)[int(field)*n+company] = v
}

// YearlyValue returns the value for (year, field, company), NaN when the
// year is absent.
func (r *StorageRepr) YearlyValue(year int, field YearlyField, company int) float32 {
	t, ok := r.Yearly[year]
	if !ok {
		return float32(math.NaN())
	}
	return t[int(field)*len(r.Companies)+company]
}

// SetDaily stores v for (date, field, company).
func (r *StorageRepr) SetDaily(date time.Time, field DailyField, company int, v float32) {
	n := len(r.Companies)
	day := util.YearDay0(date)
	r.EnsureDailyYear(date.Year())[(day*DailyFieldCount+int(field))*n+company] = v
}

// DailyValue returns the value for (date, field, company), NaN when the
// calendar year is absent.
func (r *StorageRepr) DailyValue(date time.Time, field DailyField, company int) float32 {
	t, ok := r.Daily[date.Year()]
	if !ok {
		return float32(math.NaN())
	}
	n := len(r.Companies)
	return t[(util.YearDay0(date)*DailyFieldCount+int(field))*n+company]
}

// YearlyYears returns the years that have a yearly table, ascending.
func (r *StorageRepr) YearlyYears() []int {
	return sortedKeys(r.Yearly)
}

// DailyYears returns the years that have a daily table, ascending.
func (r *StorageRepr) DailyYears() []int {
	return sortedKeys(r.Daily)
}

// Validate checks that the company ids are dense and every table has the
// length its year and the company count imply.
func (r *StorageRepr) Validate() error {
	if _, err := NewCompanies(r.Companies); err != nil {
		return err
	}
	n := len(r.Companies)
	for year, t := range r.Yearly {
		if want := YearlyTableLen(n); len(t) != want {
			return fmt.Errorf("%w: yearly %d has %d cells, want %d", ErrShapeMismatch, year, len(t), want)
		}
	}
	for year, t := range r.Daily {
		if want := DailyTableLen(year, n); len(t) != want {
			return fmt.Errorf("%w: daily %d has %d cells, want %d", ErrShapeMismatch, year, len(t), want)
		}
	}
	return nil
}

func sortedKeys(m map[int][]float32) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
