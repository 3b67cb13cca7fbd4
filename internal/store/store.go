// Package store defines storage interfaces for the financial storage
// representation and the history of strategy runs.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"valuesift/internal/financials"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	Min int
	Max int
}

// AllYears matches every year on disk.
var AllYears = YearRange{Min: math.MinInt, Max: math.MaxInt}

// Years returns the inclusive range [min, max].
func Years(min, max int) YearRange { return YearRange{Min: min, Max: max} }

// Contains reports whether year lies inside r.
func (r YearRange) Contains(year int) bool { return year >= r.Min && year <= r.Max }

// ReprStore persists and retrieves the financial storage representation.
type ReprStore interface {
	// SaveRepr replaces the stored representation with repr.
	SaveRepr(ctx context.Context, repr *financials.StorageRepr) error

	// LoadRepr reads the company index plus the yearly and daily tables of
	// the years inside the given ranges. Years absent on disk are left out
	// of the result.
	LoadRepr(ctx context.Context, yearly, daily YearRange) (*financials.StorageRepr, error)
}

// RunStore persists and retrieves strategy runs.
type RunStore interface {
	// SaveRun inserts a run and its per-company outcomes.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run with its outcomes.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	// Outcomes are not populated.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is the persisted summary of one strategy run.
type Run struct {
	ID        string
	CreatedAt time.Time
	BuyDate   time.Time
	SellDate  time.Time
	// Options is the YAML snapshot of the strategy options.
	Options string
	// Ignored lists the metric fields excluded from the bounds check.
	Ignored string

	Considered     int
	SufficientData int
	Investable     int
	Reached        int
	GainAtEnd      int
	LossAtEnd      int

	Outcomes []RunOutcome
}

// RunOutcome is the backtrack result of one company within a run.
type RunOutcome struct {
	Symbol   string
	Outcome  string
	BuyPrice float32
	Price    float32
}
