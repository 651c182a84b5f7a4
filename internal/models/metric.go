package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period resolutions for performance rollups.
const (
	PeriodHourly  = "hourly"
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodTotal   = "total"
)

// PerformanceMetric is one rollup row per (user, period_type, period_value).
// Loss accumulators hold positive magnitudes. The current_* streaks track the
// most recent run and reset on the opposite outcome; the max_* streaks are
// true historical maxima folded on every apply. Streaks are best-effort under
// edits and deletes: removal cannot un-walk history, so Remove leaves them.
type PerformanceMetric struct {
	ID                 int             `json:"id"`
	UserID             string          `json:"user_id"`
	PeriodType         string          `json:"period_type"`
	PeriodValue        string          `json:"period_value"`
	WinCount           int             `json:"win_count"`
	LossCount          int             `json:"loss_count"`
	WinProfit          decimal.Decimal `json:"win_profit"`
	LossLoss           decimal.Decimal `json:"loss_loss"`
	WinPips            decimal.Decimal `json:"win_pips"`
	LossPips           decimal.Decimal `json:"loss_pips"`
	AvgWinHoldSeconds  float64         `json:"avg_win_hold_seconds"`
	AvgLossHoldSeconds float64         `json:"avg_loss_hold_seconds"`
	CurrentWinStreak   int             `json:"current_win_streak"`
	CurrentLossStreak  int             `json:"current_loss_streak"`
	MaxWinStreak       int             `json:"max_win_streak"`
	MaxLossStreak      int             `json:"max_loss_streak"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
