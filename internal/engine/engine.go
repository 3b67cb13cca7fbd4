// Package engine runs the strategy end to end: it loads the needed slice of
// the stored financial data, computes the metrics, evaluates and backtracks
// every company, and records the run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"valuesift/internal/config"
	"valuesift/internal/financials"
	"valuesift/internal/metrics"
	"valuesift/internal/report"
	"valuesift/internal/store"
	"valuesift/internal/strategy"
)

// ErrNoRunStore is returned when a run asks to be saved but the engine has
// no run store.
var ErrNoRunStore = errors.New("no run store configured")

// Engine orchestrates a strategy run by delegating to a repr store for the
// financial data and a run store for the history.
type Engine struct {
	reprs store.ReprStore
	runs  store.RunStore
	log   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine creates a new Engine wired with the given stores. runs may be nil
// when no run is ever saved.
func NewEngine(reprs store.ReprStore, runs store.RunStore) *Engine {
	return &Engine{
		reprs: reprs,
		runs:  runs,
		log:   slog.Default().With("component", "engine"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Request describes one run.
type Request struct {
	Options metrics.Options
	// Ignored metrics are left out of the bounds check.
	Ignored strategy.FieldSet
	// Save records the run in the run store.
	Save bool
}

// Result carries every stage of a finished run.
type Result struct {
	// RunID is empty when the run was not saved.
	RunID string

	Store       *financials.Store
	Metrics     *metrics.Metrics
	Evaluation  *strategy.Evaluation
	Backtracked *strategy.Backtracked
	Summary     report.Summary
}

// Run executes req. A run that fails before the backtrack is never saved.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	opts := req.Options
	if err := opts.Verify(); err != nil {
		return nil, err
	}
	if req.Save && e.runs == nil {
		return nil, ErrNoRunStore
	}
	lo := opts.LoaderOptions()
	runStart := time.Now()

	stage := time.Now()
	repr, err := e.reprs.LoadRepr(ctx,
		store.Years(lo.YearlyMin, lo.YearlyMax),
		store.Years(lo.DailyMin.Year(), lo.DailyMax.Year()))
	if err != nil {
		return nil, fmt.Errorf("loading repr: %w", err)
	}
	if err := CheckCoverage(repr, lo).Err(); err != nil {
		return nil, err
	}
	s, err := financials.Load(repr, lo)
	if err != nil {
		return nil, err
	}
	e.log.Info("store loaded",
		"companies", s.Companies().Len(),
		"years", s.Years(),
		"days", s.Days(),
		"elapsed", time.Since(stage),
	)

	stage = time.Now()
	m, err := metrics.Calculate(s, opts)
	if err != nil {
		return nil, err
	}
	ev := strategy.Evaluate(m, strategy.BoundsFromOptions(opts), req.Ignored)
	counts := ev.Counts()
	e.log.Info("companies evaluated",
		"sufficient", counts.SufficientData,
		"investable", counts.Investable,
		"ignored", req.Ignored.String(),
		"elapsed", time.Since(stage),
	)

	stage = time.Now()
	bt, err := strategy.Backtrack(ev, m, s, opts.BuyDate, opts.SellDate, opts.ReturnPercent)
	if err != nil {
		return nil, err
	}
	stats := bt.Stats()
	e.log.Info("backtrack complete",
		"reached", stats.ReachedReturnPercent,
		"gain", stats.GainAtEnd,
		"loss", stats.LossAtEnd,
		"elapsed", time.Since(stage),
	)

	res := &Result{
		Store:       s,
		Metrics:     m,
		Evaluation:  ev,
		Backtracked: bt,
		Summary:     report.Build(s.Companies(), m, ev, bt),
	}

	if req.Save {
		run, err := e.record(req, res.Summary)
		if err != nil {
			return nil, err
		}
		if err := e.runs.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		res.RunID = run.ID
	}

	e.log.Info("run complete", "id", res.RunID, "elapsed", time.Since(runStart))
	return res, nil
}

// record converts a finished run into its persisted form.
func (e *Engine) record(req Request, s report.Summary) (*store.Run, error) {
	snapshot, err := config.MarshalOptions(req.Options)
	if err != nil {
		return nil, fmt.Errorf("options snapshot: %w", err)
	}
	run := &store.Run{
		ID:             e.newID(),
		CreatedAt:      e.now(),
		BuyDate:        s.BuyDate,
		SellDate:       s.SellDate,
		Options:        string(snapshot),
		Ignored:        req.Ignored.String(),
		Considered:     s.Considered,
		SufficientData: s.SufficientData,
		Investable:     s.Investable,
		Reached:        s.Stats.ReachedReturnPercent,
		GainAtEnd:      s.Stats.GainAtEnd,
		LossAtEnd:      s.Stats.LossAtEnd,
	}
	for _, entry := range s.Entries {
		run.Outcomes = append(run.Outcomes, store.RunOutcome{
			Symbol:   entry.Symbol,
			Outcome:  entry.Outcome.String(),
			BuyPrice: entry.BuyPrice,
			Price:    entry.Price,
		})
	}
	return run, nil
}
