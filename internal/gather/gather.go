package gather

import (
	"context"
	"fmt"
	"time"

	"valuesift/internal/financials"
)

// Fetcher builds a complete storage representation from a data source.
type Fetcher interface {
	// Name returns the fetcher identifier.
	Name() string
	// Fetch reads the source and returns the representation it describes.
	Fetch(ctx context.Context) (*financials.StorageRepr, error)
}

// Updater fills the daily tables of an existing representation.
type Updater interface {
	// Name returns the updater identifier.
	Name() string
	// Update writes every value the source has for the dates in r into repr.
	Update(ctx context.Context, repr *financials.StorageRepr, r DateRange) error
}

// DateRange represents an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Verify rejects a range whose end is before its start.
func (r DateRange) Verify() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("date range %v..%v: both ends are required", r.Start, r.End)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("date range %s..%s: end before start",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return nil
}

// Contains reports whether t falls on a day within r.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
