package models

import "time"

// Kafka event types.
const (
	EventTradeFilled = "TRADE_FILLED"
	EventCSVImported = "CSV_IMPORTED"
)

// TradeFillEvent is an externally detected trade fill pushed through Kafka,
// e.g. by a terminal-side watcher. Numeric fields arrive as strings so the
// consumer controls parsing and precision.
type TradeFillEvent struct {
	EventType string        `json:"event_type"`
	Source    string        `json:"source"`
	UserID    string        `json:"user_id"`
	Data      TradeFillData `json:"data"`
}

// TradeFillData carries the fill itself.
type TradeFillData struct {
	OrderID    string  `json:"order_id"`
	Pair       string  `json:"pair"`
	Side       string  `json:"side"` // "buy" or "sell"
	Lots       string  `json:"lots"`
	EntryPrice string  `json:"entry_price"`
	ExitPrice  string  `json:"exit_price"`
	Pips       string  `json:"pips"`
	ProfitLoss string  `json:"profit_loss"`
	EntryAt    *string `json:"entry_at,omitempty"` // RFC3339
	ExitAt     *string `json:"exit_at,omitempty"`
}

// ImportEvent announces a completed CSV import.
type ImportEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Imported  int       `json:"imported"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}
