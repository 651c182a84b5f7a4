// Package metrics maintains the per-period performance rollups. Every closed
// trade updates six rollup rows (hourly through total) keyed by its exit
// instant, using incremental formulas so rows are never recomputed from raw
// trades.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fxjournal/internal/database"
	"fxjournal/internal/models"
	"fxjournal/internal/timeutil"
)

// Repository is the slice of the store the aggregator needs. GetMetric must
// return database.ErrNotFound (wrapped is fine) for untouched periods.
type Repository interface {
	GetMetric(userID, periodType, periodValue string) (*models.PerformanceMetric, error)
	CreateMetric(m *models.PerformanceMetric) error
	UpdateMetric(m *models.PerformanceMetric) error
}

// TradeInput is the slice of a trade the rollups care about.
type TradeInput struct {
	UserID          string
	ExitAt          time.Time
	ProfitLoss      decimal.Decimal
	Pips            decimal.Decimal
	HoldTimeSeconds int64
}

// Win reports the outcome classification: zero profit counts as a win.
func (in TradeInput) Win() bool {
	return !in.ProfitLoss.IsNegative()
}

// Aggregator applies and removes trades against the rollup table.
type Aggregator struct {
	repo   Repository
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator
func NewAggregator(repo Repository, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

type periodKey struct {
	Type  string
	Value string
}

func periodKeysFor(exitAt time.Time) []periodKey {
	keys := timeutil.KeysFor(exitAt)
	return []periodKey{
		{models.PeriodHourly, keys.Hourly},
		{models.PeriodDaily, keys.Daily},
		{models.PeriodWeekly, keys.Weekly},
		{models.PeriodMonthly, keys.Monthly},
		{models.PeriodYearly, keys.Yearly},
		{models.PeriodTotal, keys.Total},
	}
}

// Apply folds one trade into all six period rollups. The six updates are
// independent and run concurrently; any failure aborts the whole call.
func (a *Aggregator) Apply(ctx context.Context, in TradeInput) error {
	g, _ := errgroup.WithContext(ctx)
	for _, key := range periodKeysFor(in.ExitAt) {
		key := key
		g.Go(func() error {
			return a.applyPeriod(in, key)
		})
	}
	return g.Wait()
}

// ApplyBatch applies trades strictly in order, one at a time. Sequencing is
// a correctness requirement, not an optimization: two trades landing in the
// same period key would race the read-modify-write cycle and corrupt the
// incremental averages if applied concurrently.
func (a *Aggregator) ApplyBatch(ctx context.Context, trades []TradeInput) error {
	for i, in := range trades {
		if err := a.Apply(ctx, in); err != nil {
			return fmt.Errorf("trade %d of %d: %w", i+1, len(trades), err)
		}
	}
	return nil
}

// Remove is the inverse of Apply: counts and accumulators come back down,
// floored at zero, and the running averages are rebuilt from the pre-removal
// totals. Only meaningful when the trade was previously applied with the
// same profit/pips/hold values. Streak counters stay untouched; removal
// cannot un-walk history, so they are best-effort under edits and deletes.
func (a *Aggregator) Remove(ctx context.Context, in TradeInput) error {
	g, _ := errgroup.WithContext(ctx)
	for _, key := range periodKeysFor(in.ExitAt) {
		key := key
		g.Go(func() error {
			return a.removePeriod(in, key)
		})
	}
	return g.Wait()
}

// Update replaces an applied trade: Remove(old) then Apply(new). When old
// and new cross a period boundary the streak drift this implies is accepted.
func (a *Aggregator) Update(ctx context.Context, old, new TradeInput) error {
	if err := a.Remove(ctx, old); err != nil {
		return fmt.Errorf("failed to remove old trade: %w", err)
	}
	return a.Apply(ctx, new)
}

func (a *Aggregator) applyPeriod(in TradeInput, key periodKey) error {
	m, err := a.repo.GetMetric(in.UserID, key.Type, key.Value)
	if errors.Is(err, database.ErrNotFound) {
		return a.seedMetric(in, key)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s rollup: %w", key.Type, err)
	}

	if in.Win() {
		oldCount := m.WinCount
		m.WinCount++
		m.WinProfit = m.WinProfit.Add(in.ProfitLoss)
		m.WinPips = m.WinPips.Add(in.Pips)
		m.AvgWinHoldSeconds = incrementalMean(m.AvgWinHoldSeconds, oldCount, float64(in.HoldTimeSeconds))
		m.CurrentWinStreak++
		m.CurrentLossStreak = 0
		if m.CurrentWinStreak > m.MaxWinStreak {
			m.MaxWinStreak = m.CurrentWinStreak
		}
	} else {
		oldCount := m.LossCount
		m.LossCount++
		m.LossLoss = m.LossLoss.Add(in.ProfitLoss.Abs())
		m.LossPips = m.LossPips.Add(in.Pips.Abs())
		m.AvgLossHoldSeconds = incrementalMean(m.AvgLossHoldSeconds, oldCount, float64(in.HoldTimeSeconds))
		m.CurrentLossStreak++
		m.CurrentWinStreak = 0
		if m.CurrentLossStreak > m.MaxLossStreak {
			m.MaxLossStreak = m.CurrentLossStreak
		}
	}

	if err := a.repo.UpdateMetric(m); err != nil {
		return fmt.Errorf("failed to update %s rollup: %w", key.Type, err)
	}
	return nil
}

func (a *Aggregator) seedMetric(in TradeInput, key periodKey) error {
	m := &models.PerformanceMetric{
		UserID:      in.UserID,
		PeriodType:  key.Type,
		PeriodValue: key.Value,
		WinProfit:   decimal.Zero,
		LossLoss:    decimal.Zero,
		WinPips:     decimal.Zero,
		LossPips:    decimal.Zero,
	}
	if in.Win() {
		m.WinCount = 1
		m.WinProfit = in.ProfitLoss
		m.WinPips = in.Pips
		m.AvgWinHoldSeconds = float64(in.HoldTimeSeconds)
		m.CurrentWinStreak = 1
		m.MaxWinStreak = 1
	} else {
		m.LossCount = 1
		m.LossLoss = in.ProfitLoss.Abs()
		m.LossPips = in.Pips.Abs()
		m.AvgLossHoldSeconds = float64(in.HoldTimeSeconds)
		m.CurrentLossStreak = 1
		m.MaxLossStreak = 1
	}

	if err := a.repo.CreateMetric(m); err != nil {
		return fmt.Errorf("failed to seed %s rollup: %w", key.Type, err)
	}
	return nil
}

func (a *Aggregator) removePeriod(in TradeInput, key periodKey) error {
	m, err := a.repo.GetMetric(in.UserID, key.Type, key.Value)
	if errors.Is(err, database.ErrNotFound) {
		// Nothing to decrement. The caller is removing a trade that never
		// reached this rollup, which happens after period-crossing edits.
		a.logger.Warn().
			Str("period_type", key.Type).
			Str("period_value", key.Value).
			Msg("remove skipped, rollup missing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s rollup: %w", key.Type, err)
	}

	if in.Win() {
		oldCount := m.WinCount
		m.WinCount = floorInt(m.WinCount - 1)
		m.WinProfit = floorDecimal(m.WinProfit.Sub(in.ProfitLoss))
		m.WinPips = floorDecimal(m.WinPips.Sub(in.Pips))
		m.AvgWinHoldSeconds = decrementalMean(m.AvgWinHoldSeconds, oldCount, float64(in.HoldTimeSeconds))
	} else {
		oldCount := m.LossCount
		m.LossCount = floorInt(m.LossCount - 1)
		m.LossLoss = floorDecimal(m.LossLoss.Sub(in.ProfitLoss.Abs()))
		m.LossPips = floorDecimal(m.LossPips.Sub(in.Pips.Abs()))
		m.AvgLossHoldSeconds = decrementalMean(m.AvgLossHoldSeconds, oldCount, float64(in.HoldTimeSeconds))
	}

	if err := a.repo.UpdateMetric(m); err != nil {
		return fmt.Errorf("failed to update %s rollup: %w", key.Type, err)
	}
	return nil
}

// incrementalMean folds one new value into a running average.
func incrementalMean(oldAvg float64, oldCount int, value float64) float64 {
	return (oldAvg*float64(oldCount) + value) / float64(oldCount+1)
}

// decrementalMean rebuilds the average after removing one value, using the
// pre-removal total.
func decrementalMean(oldAvg float64, oldCount int, value float64) float64 {
	newCount := oldCount - 1
	if newCount <= 0 {
		return 0
	}
	return (oldAvg*float64(oldCount) - value) / float64(newCount)
}

func floorInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func floorDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
