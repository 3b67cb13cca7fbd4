// Package financials holds the indexed, in-memory form of the yearly and
// daily financial data: the company index, the two dense numeric tables and
// the offset arithmetic that maps years, dates and symbols onto table axes.
//
// A missing value is stored as NaN and is a valid cell value. Consumers must
// let it propagate through arithmetic rather than treat it as an error.
package financials

import (
	"fmt"
	"time"

	"valuesift/internal/util"
)

// LoaderOptions selects the coverage of a Store. Both ranges are inclusive.
type LoaderOptions struct {
	YearlyMin int
	YearlyMax int
	DailyMin  time.Time
	DailyMax  time.Time
}

// Verify rejects inverted ranges.
func (o LoaderOptions) Verify() error {
	if o.YearlyMin > o.YearlyMax {
		return fmt.Errorf("%w: yearly range %d..%d", ErrInvalidOptions, o.YearlyMin, o.YearlyMax)
	}
	if util.Date(o.DailyMin).After(util.Date(o.DailyMax)) {
		return fmt.Errorf("%w: daily range %s..%s", ErrInvalidOptions,
			o.DailyMin.Format(util.DateLayout), o.DailyMax.Format(util.DateLayout))
	}
	return nil
}

// Store owns the yearly and daily tables, each indexed by
// (time offset, field, company). It is read-only once built.
type Store struct {
	companies *Companies

	yearlyMin int
	yearlyMax int
	dailyMin  time.Time
	dailyMax  time.Time

	// yearly[(y*YearlyFieldCount+f)*n+c]
	yearly []float32
	// daily[(d*DailyFieldCount+f)*n+c]
	daily []float32
}

// Load builds a Store from repr covering exactly the ranges in opts. Every
// year of the yearly range and every calendar year touched by the daily range
// must be present in repr; a gap is a hard error.
func Load(repr *StorageRepr, opts LoaderOptions) (*Store, error) {
	if err := opts.Verify(); err != nil {
		return nil, err
	}
	if err := repr.Validate(); err != nil {
		return nil, err
	}

	companies, err := NewCompanies(repr.Companies)
	if err != nil {
		return nil, err
	}
	n := companies.Len()

	s := &Store{
		companies: companies,
		yearlyMin: opts.YearlyMin,
		yearlyMax: opts.YearlyMax,
		dailyMin:  util.Date(opts.DailyMin),
		dailyMax:  util.Date(opts.DailyMax),
	}

	yearStride := YearlyFieldCount * n
	s.yearly = make([]float32, s.Years()*yearStride)
	for year := s.yearlyMin; year <= s.yearlyMax; year++ {
		data, ok := repr.Yearly[year]
		if !ok {
			return nil, fmt.Errorf("%w: year %d not found for yearly data", ErrMissingYear, year)
		}
		off := (year - s.yearlyMin) * yearStride
		copy(s.yearly[off:off+yearStride], data)
	}

	dayStride := DailyFieldCount * n
	s.daily = make([]float32, s.Days()*dayStride)
	minYear, maxYear := s.dailyMin.Year(), s.dailyMax.Year()
	cursor := 0
	for year := minYear; year <= maxYear; year++ {
		data, ok := repr.Daily[year]
		if !ok {
			return nil, fmt.Errorf("%w: year %d not found for daily data", ErrMissingYear, year)
		}

		first, last := 0, util.DaysInYear(year)-1
		if year == minYear {
			first = util.YearDay0(s.dailyMin)
		}
		if year == maxYear {
			last = util.YearDay0(s.dailyMax)
		}

		count := last - first + 1
		copy(s.daily[cursor*dayStride:(cursor+count)*dayStride], data[first*dayStride:(last+1)*dayStride])
		cursor += count
	}

	return s, nil
}

// Companies returns the company index.
func (s *Store) Companies() *Companies { return s.companies }

// YearlyMin returns the first year covered by the yearly table.
func (s *Store) YearlyMin() int { return s.yearlyMin }

// YearlyMax returns the last year covered by the yearly table.
func (s *Store) YearlyMax() int { return s.yearlyMax }

// DailyMin returns the first date covered by the daily table.
func (s *Store) DailyMin() time.Time { return s.dailyMin }

// DailyMax returns the last date covered by the daily table.
func (s *Store) DailyMax() time.Time { return s.dailyMax }

// Years returns the length of the year axis.
func (s *Store) Years() int { return s.yearlyMax - s.yearlyMin + 1 }

// Days returns the length of the day axis.
func (s *Store) Days() int { return util.DaysBetween(s.dailyMin, s.dailyMax) + 1 }

// CoversYear reports whether year lies inside the yearly range.
func (s *Store) CoversYear(year int) bool {
	return year >= s.yearlyMin && year <= s.yearlyMax
}

// CoversDate reports whether date lies inside the daily range.
func (s *Store) CoversDate(date time.Time) bool {
	d := util.DaysBetween(s.dailyMin, date)
	return d >= 0 && d < s.Days()
}

// YearToOffset maps a calendar year onto the year axis.
func (s *Store) YearToOffset(year int) (int, error) {
	if !s.CoversYear(year) {
		return 0, fmt.Errorf("%w: %d not in %d..%d", ErrOutOfRangeYear, year, s.yearlyMin, s.yearlyMax)
	}
	return year - s.yearlyMin, nil
}

// OffsetToYear is the inverse of YearToOffset.
func (s *Store) OffsetToYear(offset int) (int, error) {
	if offset < 0 || offset >= s.Years() {
		return 0, fmt.Errorf("%w: offset %d not in 0..%d", ErrOutOfRangeYear, offset, s.Years()-1)
	}
	return s.yearlyMin + offset, nil
}

// DateToOffset maps a calendar date onto the day axis. The clock part of
// date is ignored.
func (s *Store) DateToOffset(date time.Time) (int, error) {
	if !s.CoversDate(date) {
		return 0, fmt.Errorf("%w: %s not in %s..%s", ErrOutOfRangeDate,
			date.Format(util.DateLayout), s.dailyMin.Format(util.DateLayout), s.dailyMax.Format(util.DateLayout))
	}
	return util.DaysBetween(s.dailyMin, date), nil
}

// OffsetToDate is the inverse of DateToOffset.
func (s *Store) OffsetToDate(offset int) (time.Time, error) {
	if offset < 0 || offset >= s.Days() {
		return time.Time{}, fmt.Errorf("%w: offset %d not in 0..%d", ErrOutOfRangeDate, offset, s.Days()-1)
	}
	return util.FromEpochDay(util.EpochDay(s.dailyMin) + offset), nil
}

// CompanyToID resolves a ticker symbol to its company id.
func (s *Store) CompanyToID(symbol string) (int, error) {
	return s.companies.ID(symbol)
}

// YearlySlice returns a view over all companies of field in year. The view
// aliases the store's table and must not be modified.
func (s *Store) YearlySlice(year int, field YearlyField) ([]float32, error) {
	off, err := s.YearToOffset(year)
	if err != nil {
		return nil, err
	}
	return s.YearlyAt(off, field), nil
}

// DailySlice returns a view over all companies of field on date. The view
// aliases the store's table and must not be modified.
func (s *Store) DailySlice(date time.Time, field DailyField) ([]float32, error) {
	off, err := s.DateToOffset(date)
	if err != nil {
		return nil, err
	}
	return s.DailyAt(off, field), nil
}

// YearlyAt is YearlySlice addressed by a year offset already known to be in
// range.
func (s *Store) YearlyAt(offset int, field YearlyField) []float32 {
	n := s.companies.Len()
	start := (offset*YearlyFieldCount + int(field)) * n
	return s.yearly[start : start+n : start+n]
}

// DailyAt is DailySlice addressed by a day offset already known to be in
// range.
func (s *Store) DailyAt(offset int, field DailyField) []float32 {
	n := s.companies.Len()
	start := (offset*DailyFieldCount + int(field)) * n
	return s.daily[start : start+n : start+n]
}

// YearlyValue returns one cell of the yearly table by offsets.
func (s *Store) YearlyValue(offset int, field YearlyField, company int) float32 {
	return s.yearly[(offset*YearlyFieldCount+int(field))*s.companies.Len()+company]
}

// DailyValue returns one cell of the daily table by offsets.
func (s *Store) DailyValue(offset int, field DailyField, company int) float32 {
	return s.daily[(offset*DailyFieldCount+int(field))*s.companies.Len()+company]
}
