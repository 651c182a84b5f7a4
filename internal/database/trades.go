package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fxjournal/internal/models"
)

const tradeColumns = `id, user_id, symbol_id, entry_date, entry_time, exit_date, exit_time,
	       entry_price, exit_price, lot_size, pips, profit_loss,
	       trade_type, hold_time_seconds, order_no, memo, created_at`

// CreateTrade inserts a new trade record
func (db *DB) CreateTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (
			user_id, symbol_id, entry_date, entry_time, exit_date, exit_time,
			entry_price, exit_price, lot_size, pips, profit_loss,
			trade_type, hold_time_seconds, order_no, memo, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query,
		t.UserID, t.SymbolID, t.EntryDate, t.EntryTime, t.ExitDate, t.ExitTime,
		nullDecimal(t.EntryPrice), nullDecimal(t.ExitPrice), nullDecimal(t.LotSize),
		nullDecimal(t.Pips), nullDecimal(t.ProfitLoss),
		t.TradeType, t.HoldTimeSeconds, t.OrderNo, t.Memo, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// GetTradeByID retrieves a trade by ID
func (db *DB) GetTradeByID(id int) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`
	return db.scanSingleTrade(db.conn.QueryRow(query, id))
}

// GetTradesByUser retrieves trades for a user, newest entry first
func (db *DB) GetTradesByUser(userID string, limit int) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY entry_date DESC NULLS LAST, entry_time DESC NULLS LAST
		LIMIT $2
	`
	return db.scanTrades(db.conn.Query(query, userID, limit))
}

// GetTradesByEntryDateRange retrieves a user's trades whose entry date is
// within [start, end). Dates are ISO strings so the range scan is
// lexicographic.
func (db *DB) GetTradesByEntryDateRange(userID, start, end string) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1 AND entry_date >= $2 AND entry_date < $3
		ORDER BY entry_date ASC, entry_time ASC
	`
	return db.scanTrades(db.conn.Query(query, userID, start, end))
}

// UpdateTrade updates an existing trade record
func (db *DB) UpdateTrade(t *models.Trade) error {
	query := `
		UPDATE trades SET
			symbol_id = $2, entry_date = $3, entry_time = $4, exit_date = $5, exit_time = $6,
			entry_price = $7, exit_price = $8, lot_size = $9, pips = $10, profit_loss = $11,
			trade_type = $12, hold_time_seconds = $13, order_no = $14, memo = $15
		WHERE id = $1
	`
	result, err := db.conn.Exec(query,
		t.ID, t.SymbolID, t.EntryDate, t.EntryTime, t.ExitDate, t.ExitTime,
		nullDecimal(t.EntryPrice), nullDecimal(t.ExitPrice), nullDecimal(t.LotSize),
		nullDecimal(t.Pips), nullDecimal(t.ProfitLoss),
		t.TradeType, t.HoldTimeSeconds, t.OrderNo, t.Memo,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// TradeExistsByOrderNo reports whether the user already has a trade with the
// given broker order number. Used to dedup replayed fill events.
func (db *DB) TradeExistsByOrderNo(userID, orderNo string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trades WHERE user_id = $1 AND order_no = $2)`

	var exists bool
	if err := db.conn.QueryRow(query, userID, orderNo).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check trade existence: %w", err)
	}
	return exists, nil
}

// DeleteTradeCascade removes a trade and its tag/emotion links in one
// transaction.
func (db *DB) DeleteTradeCascade(id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trade_tags WHERE trade_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete trade tag links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trade_emotions WHERE trade_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete trade emotion links: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade delete: %w", err)
	}
	return nil
}

func (db *DB) scanSingleTrade(row *sql.Row) (*models.Trade, error) {
	var t models.Trade
	var entryDate, entryTime, exitDate, exitTime sql.NullString
	var entryPrice, exitPrice, lotSize, pips, profitLoss sql.NullString
	var tradeType, holdTime sql.NullInt64

	err := row.Scan(
		&t.ID, &t.UserID, &t.SymbolID, &entryDate, &entryTime, &exitDate, &exitTime,
		&entryPrice, &exitPrice, &lotSize, &pips, &profitLoss,
		&tradeType, &holdTime, &t.OrderNo, &t.Memo, &t.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trade: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	applyTradeNulls(&t, entryDate, entryTime, exitDate, exitTime,
		entryPrice, exitPrice, lotSize, pips, profitLoss, tradeType, holdTime)
	return &t, nil
}

func (db *DB) scanTrades(rows *sql.Rows, err error) ([]*models.Trade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var entryDate, entryTime, exitDate, exitTime sql.NullString
		var entryPrice, exitPrice, lotSize, pips, profitLoss sql.NullString
		var tradeType, holdTime sql.NullInt64

		err := rows.Scan(
			&t.ID, &t.UserID, &t.SymbolID, &entryDate, &entryTime, &exitDate, &exitTime,
			&entryPrice, &exitPrice, &lotSize, &pips, &profitLoss,
			&tradeType, &holdTime, &t.OrderNo, &t.Memo, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		applyTradeNulls(&t, entryDate, entryTime, exitDate, exitTime,
			entryPrice, exitPrice, lotSize, pips, profitLoss, tradeType, holdTime)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

func applyTradeNulls(t *models.Trade,
	entryDate, entryTime, exitDate, exitTime sql.NullString,
	entryPrice, exitPrice, lotSize, pips, profitLoss sql.NullString,
	tradeType, holdTime sql.NullInt64,
) {
	t.EntryDate = stringPtr(entryDate)
	t.EntryTime = stringPtr(entryTime)
	t.ExitDate = stringPtr(exitDate)
	t.ExitTime = stringPtr(exitTime)
	t.EntryPrice = decimalPtr(entryPrice)
	t.ExitPrice = decimalPtr(exitPrice)
	t.LotSize = decimalPtr(lotSize)
	t.Pips = decimalPtr(pips)
	t.ProfitLoss = decimalPtr(profitLoss)
	if tradeType.Valid {
		v := int(tradeType.Int64)
		t.TradeType = &v
	}
	if holdTime.Valid {
		v := holdTime.Int64
		t.HoldTimeSeconds = &v
	}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func decimalPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
