package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fxjournal/internal/models"
)

const metricColumns = `id, user_id, period_type, period_value,
	       win_count, loss_count, win_profit, loss_loss, win_pips, loss_pips,
	       avg_win_hold_seconds, avg_loss_hold_seconds,
	       current_win_streak, current_loss_streak, max_win_streak, max_loss_streak,
	       created_at, updated_at`

// GetMetric fetches the rollup row for one (user, period_type, period_value)
// key. Returns ErrNotFound when the period has not been touched yet; that is
// the aggregator's seed-new-record path, not a failure.
func (db *DB) GetMetric(userID, periodType, periodValue string) (*models.PerformanceMetric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM performance_metrics
		WHERE user_id = $1 AND period_type = $2 AND period_value = $3
	`
	row := db.conn.QueryRow(query, userID, periodType, periodValue)
	m, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("metric %s/%s: %w", periodType, periodValue, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metric: %w", err)
	}
	return m, nil
}

// CreateMetric inserts a new rollup row
func (db *DB) CreateMetric(m *models.PerformanceMetric) error {
	query := `
		INSERT INTO performance_metrics (
			user_id, period_type, period_value,
			win_count, loss_count, win_profit, loss_loss, win_pips, loss_pips,
			avg_win_hold_seconds, avg_loss_hold_seconds,
			current_win_streak, current_loss_streak, max_win_streak, max_loss_streak,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16
		)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		m.UserID, m.PeriodType, m.PeriodValue,
		m.WinCount, m.LossCount,
		m.WinProfit.String(), m.LossLoss.String(), m.WinPips.String(), m.LossPips.String(),
		m.AvgWinHoldSeconds, m.AvgLossHoldSeconds,
		m.CurrentWinStreak, m.CurrentLossStreak, m.MaxWinStreak, m.MaxLossStreak,
		now,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create metric: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// UpdateMetric overwrites the counters of an existing rollup row
func (db *DB) UpdateMetric(m *models.PerformanceMetric) error {
	query := `
		UPDATE performance_metrics SET
			win_count = $2, loss_count = $3,
			win_profit = $4, loss_loss = $5, win_pips = $6, loss_pips = $7,
			avg_win_hold_seconds = $8, avg_loss_hold_seconds = $9,
			current_win_streak = $10, current_loss_streak = $11,
			max_win_streak = $12, max_loss_streak = $13,
			updated_at = $14
		WHERE id = $1
	`
	now := time.Now()
	result, err := db.conn.Exec(query,
		m.ID, m.WinCount, m.LossCount,
		m.WinProfit.String(), m.LossLoss.String(), m.WinPips.String(), m.LossPips.String(),
		m.AvgWinHoldSeconds, m.AvgLossHoldSeconds,
		m.CurrentWinStreak, m.CurrentLossStreak, m.MaxWinStreak, m.MaxLossStreak,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to update metric: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("metric %d: %w", m.ID, ErrNotFound)
	}
	m.UpdatedAt = now
	return nil
}

// GetMetricsByPeriodType lists all of a user's rollups at one resolution,
// ordered by period key.
func (db *DB) GetMetricsByPeriodType(userID, periodType string) ([]*models.PerformanceMetric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM performance_metrics
		WHERE user_id = $1 AND period_type = $2
		ORDER BY period_value ASC
	`
	rows, err := db.conn.Query(query, userID, periodType)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*models.PerformanceMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMetric(row rowScanner) (*models.PerformanceMetric, error) {
	var m models.PerformanceMetric
	var winProfit, lossLoss, winPips, lossPips string

	err := row.Scan(
		&m.ID, &m.UserID, &m.PeriodType, &m.PeriodValue,
		&m.WinCount, &m.LossCount, &winProfit, &lossLoss, &winPips, &lossPips,
		&m.AvgWinHoldSeconds, &m.AvgLossHoldSeconds,
		&m.CurrentWinStreak, &m.CurrentLossStreak, &m.MaxWinStreak, &m.MaxLossStreak,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.WinProfit, err = decimal.NewFromString(winProfit); err != nil {
		return nil, fmt.Errorf("invalid win_profit %q: %w", winProfit, err)
	}
	if m.LossLoss, err = decimal.NewFromString(lossLoss); err != nil {
		return nil, fmt.Errorf("invalid loss_loss %q: %w", lossLoss, err)
	}
	if m.WinPips, err = decimal.NewFromString(winPips); err != nil {
		return nil, fmt.Errorf("invalid win_pips %q: %w", winPips, err)
	}
	if m.LossPips, err = decimal.NewFromString(lossPips); err != nil {
		return nil, fmt.Errorf("invalid loss_pips %q: %w", lossPips, err)
	}
	return &m, nil
}
