package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade direction codes. The Hirose export reports the closing action, so the
// broker mapper inverts the raw column before it lands here: stored 0 is always
// the opening buy, stored 1 the opening sell.
const (
	TradeTypeBuy  = 0
	TradeTypeSell = 1
)

// Trade is the canonical journal record. Entry/exit timing is stored as
// separate UTC date and time-of-day strings because broker exports arrive as
// local date + local time pairs that are converted explicitly. Numeric fields
// are pointers so "not yet entered" stays distinct from zero.
type Trade struct {
	ID              int              `json:"id"`
	UserID          string           `json:"user_id"`
	SymbolID        int              `json:"symbol_id"`
	EntryDate       *string          `json:"entry_date,omitempty"` // 2006-01-02 (UTC)
	EntryTime       *string          `json:"entry_time,omitempty"` // 15:04:05 (UTC)
	ExitDate        *string          `json:"exit_date,omitempty"`
	ExitTime        *string          `json:"exit_time,omitempty"`
	EntryPrice      *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice       *decimal.Decimal `json:"exit_price,omitempty"`
	LotSize         *decimal.Decimal `json:"lot_size,omitempty"`
	Pips            *decimal.Decimal `json:"pips,omitempty"`
	ProfitLoss      *decimal.Decimal `json:"profit_loss,omitempty"`
	TradeType       *int             `json:"trade_type,omitempty"`
	HoldTimeSeconds *int64           `json:"hold_time_seconds,omitempty"`
	OrderNo         string           `json:"order_no,omitempty"`
	Memo            string           `json:"memo"`
	CreatedAt       time.Time        `json:"created_at"`
}

// EntryInstant combines the UTC date and time-of-day columns back into a
// single instant. ok is false when either component is missing.
func (t *Trade) EntryInstant() (time.Time, bool) {
	return combineDateTime(t.EntryDate, t.EntryTime)
}

// ExitInstant is the exit-side counterpart of EntryInstant.
func (t *Trade) ExitInstant() (time.Time, bool) {
	return combineDateTime(t.ExitDate, t.ExitTime)
}

func combineDateTime(date, clock *string) (time.Time, bool) {
	if date == nil || clock == nil {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", *date+" "+*clock, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
