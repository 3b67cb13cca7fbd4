package engine

import (
	"fmt"
	"strconv"
	"strings"

	"valuesift/internal/financials"
)

// Coverage lists the years a run needs that the loaded representation does
// not have.
type Coverage struct {
	MissingYearly []int
	MissingDaily  []int
}

// OK reports whether nothing is missing.
func (c Coverage) OK() bool {
	return len(c.MissingYearly) == 0 && len(c.MissingDaily) == 0
}

// Err returns nil when nothing is missing, otherwise an ErrMissingYear
// naming every missing year.
func (c Coverage) Err() error {
	if c.OK() {
		return nil
	}
	var parts []string
	if len(c.MissingYearly) > 0 {
		parts = append(parts, "yearly "+joinYears(c.MissingYearly))
	}
	if len(c.MissingDaily) > 0 {
		parts = append(parts, "daily "+joinYears(c.MissingDaily))
	}
	return fmt.Errorf("%w: %s", financials.ErrMissingYear, strings.Join(parts, ", "))
}

// CheckCoverage compares repr with the years lo selects. Load fails on the
// first gap; this reports all of them before any table is copied.
func CheckCoverage(repr *financials.StorageRepr, lo financials.LoaderOptions) Coverage {
	var c Coverage
	for year := lo.YearlyMin; year <= lo.YearlyMax; year++ {
		if _, ok := repr.Yearly[year]; !ok {
			c.MissingYearly = append(c.MissingYearly, year)
		}
	}
	for year := lo.DailyMin.Year(); year <= lo.DailyMax.Year(); year++ {
		if _, ok := repr.Daily[year]; !ok {
			c.MissingDaily = append(c.MissingDaily, year)
		}
	}
	return c
}

func joinYears(years []int) string {
	s := make([]string, len(years))
	for i, y := range years {
		s[i] = strconv.Itoa(y)
	}
	return strings.Join(s, " ")
}
