package hirose

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxjournal/internal/timeutil"
)

// Broker scale factors. Hirose reports 1,000-unit lots and a x10 pip scale;
// the journal stores 10,000-unit lots and plain pips.
var brokerScale = decimal.NewFromInt(10)

// MappedTrade is one export row converted to canonical units, ready for
// symbol resolution and insertion.
type MappedTrade struct {
	Pair            string
	OrderNo         string
	EntryAt         time.Time
	ExitAt          time.Time
	EntryPrice      decimal.Decimal
	ExitPrice       decimal.Decimal
	LotSize         decimal.Decimal
	Pips            decimal.Decimal
	ProfitLoss      decimal.Decimal
	TradeType       int
	HoldTimeSeconds int64
	Memo            string
}

// MapRow converts one raw export row into canonical field values.
//
// The 売買 column holds the CLOSING action, so it is inverted on purpose:
// a raw 売 (sell-to-close) means the position was opened as a buy, and a raw
// 買 means it was opened as a sell. Any change to this mapping needs a
// matching change in every consumer of the trade_type column.
func MapRow(row RawRow, policy timeutil.Policy) (MappedTrade, error) {
	tradeType, err := invertSide(row.Side)
	if err != nil {
		return MappedTrade{}, err
	}

	lots, err := parseAmount(row.Lots)
	if err != nil {
		return MappedTrade{}, fmt.Errorf("lot count %q: %w", row.Lots, err)
	}
	pips, err := parseAmount(row.PipPL)
	if err != nil {
		return MappedTrade{}, fmt.Errorf("pip P/L %q: %w", row.PipPL, err)
	}
	profit, err := parseAmount(row.SettlementPL)
	if err != nil {
		return MappedTrade{}, fmt.Errorf("settlement P/L %q: %w", row.SettlementPL, err)
	}

	entryPrice, err := parseAmount(row.OpenRate)
	if err != nil {
		return MappedTrade{}, fmt.Errorf("open rate %q: %w", row.OpenRate, err)
	}
	exitPrice, err := parseAmount(row.CloseRate)
	if err != nil {
		return MappedTrade{}, fmt.Errorf("close rate %q: %w", row.CloseRate, err)
	}

	entryAt := timeutil.ParseBrokerDateTime(row.OpenedAt, policy)
	exitAt := timeutil.ParseBrokerDateTime(row.SettledAt, policy)

	hold := int64(exitAt.Sub(entryAt).Seconds())
	if hold < 0 {
		hold = 0
	}

	return MappedTrade{
		Pair:            row.Pair,
		OrderNo:         row.OrderNo,
		EntryAt:         entryAt,
		ExitAt:          exitAt,
		EntryPrice:      entryPrice,
		ExitPrice:       exitPrice,
		LotSize:         lots.Div(brokerScale),
		Pips:            pips.Div(brokerScale),
		ProfitLoss:      profit,
		TradeType:       tradeType,
		HoldTimeSeconds: hold,
		Memo:            "", // the export carries no memo column
	}, nil
}

func invertSide(side string) (int, error) {
	switch strings.TrimSpace(side) {
	case "売":
		return 0, nil // closed by selling -> opened as buy
	case "買":
		return 1, nil // closed by buying -> opened as sell
	}
	return 0, fmt.Errorf("unrecognized side %q", side)
}

// parseAmount parses a broker numeric string, tolerating thousands
// separators.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(s)
}
