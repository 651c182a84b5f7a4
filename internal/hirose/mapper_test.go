package hirose

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/timeutil"
)

func winRow() RawRow {
	return RawRow{
		SettledAt:    "2025/06/13 15:00:00",
		OrderNo:      "1001",
		Pair:         "USD/JPY",
		Side:         "売",
		Lots:         "1.0",
		OpenedAt:     "2025/06/13 14:50:00",
		OpenRate:     "144.250",
		CloseRate:    "144.280",
		PipPL:        "30",
		SettlementPL: "3,000",
	}
}

func TestMapRow(t *testing.T) {
	t.Run("maps a winning row", func(t *testing.T) {
		mapped, err := MapRow(winRow(), timeutil.PolicyJST)
		require.NoError(t, err)

		assert.Equal(t, "USD/JPY", mapped.Pair)
		assert.Equal(t, "1001", mapped.OrderNo)
		assert.Equal(t, time.Date(2025, 6, 13, 5, 50, 0, 0, time.UTC), mapped.EntryAt)
		assert.Equal(t, time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC), mapped.ExitAt)
		assert.True(t, decimal.RequireFromString("144.25").Equal(mapped.EntryPrice))
		assert.True(t, decimal.RequireFromString("144.28").Equal(mapped.ExitPrice))
		assert.True(t, decimal.RequireFromString("0.1").Equal(mapped.LotSize), "broker lots are scaled down by 10")
		assert.True(t, decimal.RequireFromString("3").Equal(mapped.Pips), "broker pip P/L is scaled down by 10")
		assert.True(t, decimal.RequireFromString("3000").Equal(mapped.ProfitLoss), "thousands separators stripped")
		assert.Equal(t, 0, mapped.TradeType, "closed by selling means opened as buy")
		assert.Equal(t, int64(600), mapped.HoldTimeSeconds)
		assert.Empty(t, mapped.Memo)
	})

	t.Run("buy close inverts to sell open", func(t *testing.T) {
		row := winRow()
		row.Side = "買"
		row.PipPL = "-15"
		row.SettlementPL = "-1500"

		mapped, err := MapRow(row, timeutil.PolicyJST)
		require.NoError(t, err)
		assert.Equal(t, 1, mapped.TradeType)
		assert.True(t, decimal.RequireFromString("-1.5").Equal(mapped.Pips))
		assert.True(t, decimal.RequireFromString("-1500").Equal(mapped.ProfitLoss))
	})

	t.Run("side tolerates surrounding whitespace", func(t *testing.T) {
		row := winRow()
		row.Side = " 売 "
		mapped, err := MapRow(row, timeutil.PolicyJST)
		require.NoError(t, err)
		assert.Equal(t, 0, mapped.TradeType)
	})

	t.Run("unknown side fails the row", func(t *testing.T) {
		row := winRow()
		row.Side = "both"
		_, err := MapRow(row, timeutil.PolicyJST)
		assert.ErrorContains(t, err, "unrecognized side")
	})

	t.Run("unparsable amounts fail the row", func(t *testing.T) {
		for _, mutate := range []func(*RawRow){
			func(r *RawRow) { r.Lots = "many" },
			func(r *RawRow) { r.PipPL = "" },
			func(r *RawRow) { r.SettlementPL = "x" },
			func(r *RawRow) { r.OpenRate = "" },
			func(r *RawRow) { r.CloseRate = "oops" },
		} {
			row := winRow()
			mutate(&row)
			_, err := MapRow(row, timeutil.PolicyJST)
			assert.Error(t, err)
		}
	})

	t.Run("hold time floors at zero when timestamps are inverted", func(t *testing.T) {
		row := winRow()
		row.OpenedAt = "2025/06/13 15:10:00"
		mapped, err := MapRow(row, timeutil.PolicyJST)
		require.NoError(t, err)
		assert.Equal(t, int64(0), mapped.HoldTimeSeconds)
	})
}
