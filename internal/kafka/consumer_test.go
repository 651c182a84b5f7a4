package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/journal"
	"fxjournal/internal/models"
)

type fakeJournal struct {
	created []journal.TradeInput
	users   []string
}

func (j *fakeJournal) CreateTrade(ctx context.Context, userID string, in journal.TradeInput) (*models.Trade, error) {
	j.created = append(j.created, in)
	j.users = append(j.users, userID)
	return &models.Trade{ID: len(j.created), UserID: userID}, nil
}

type fakeDedup struct {
	existing map[string]bool
}

func (d *fakeDedup) TradeExistsByOrderNo(userID, orderNo string) (bool, error) {
	return d.existing[userID+"|"+orderNo], nil
}

func testConsumer(j TradeWriter, d DedupStore) *Consumer {
	return &Consumer{journal: j, store: d, logger: zerolog.Nop()}
}

func fillEvent() models.TradeFillEvent {
	entryAt := "2025-06-13T05:50:00Z"
	exitAt := "2025-06-13T06:00:00Z"
	return models.TradeFillEvent{
		EventType: models.EventTradeFilled,
		Source:    "terminal-watcher",
		UserID:    "u1",
		Data: models.TradeFillData{
			OrderID:    "1001",
			Pair:       "USD/JPY",
			Side:       "buy",
			Lots:       "0.1",
			EntryPrice: "144.250",
			ExitPrice:  "144.280",
			Pips:       "3",
			ProfitLoss: "3000",
			EntryAt:    &entryAt,
			ExitAt:     &exitAt,
		},
	}
}

func message(t *testing.T, event models.TradeFillEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.UserID), Value: payload}
}

func TestProcessMessage(t *testing.T) {
	t.Run("journals a fill", func(t *testing.T) {
		j := &fakeJournal{}
		c := testConsumer(j, &fakeDedup{})

		require.NoError(t, c.processMessage(context.Background(), message(t, fillEvent())))
		require.Len(t, j.created, 1)
		assert.Equal(t, "u1", j.users[0])

		in := j.created[0]
		assert.Equal(t, "USD/JPY", in.Symbol)
		assert.Equal(t, "1001", in.OrderNo)
		assert.Equal(t, models.TradeTypeBuy, *in.TradeType)
		assert.Equal(t, time.Date(2025, 6, 13, 5, 50, 0, 0, time.UTC), *in.EntryAt)
		assert.Equal(t, time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC), *in.ExitAt)
		assert.True(t, decimal.RequireFromString("0.1").Equal(*in.LotSize))
		assert.True(t, decimal.RequireFromString("3000").Equal(*in.ProfitLoss))
	})

	t.Run("ignores other event types", func(t *testing.T) {
		j := &fakeJournal{}
		c := testConsumer(j, &fakeDedup{})

		event := fillEvent()
		event.EventType = "SOMETHING_ELSE"
		require.NoError(t, c.processMessage(context.Background(), message(t, event)))
		assert.Empty(t, j.created)
	})

	t.Run("skips duplicate order numbers", func(t *testing.T) {
		j := &fakeJournal{}
		dedup := &fakeDedup{existing: map[string]bool{"u1|1001": true}}
		c := testConsumer(j, dedup)

		require.NoError(t, c.processMessage(context.Background(), message(t, fillEvent())))
		assert.Empty(t, j.created)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		c := testConsumer(&fakeJournal{}, &fakeDedup{})
		err := c.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
		assert.ErrorContains(t, err, "failed to unmarshal")
	})
}

func TestFillToInput(t *testing.T) {
	t.Run("sell side stores as sell", func(t *testing.T) {
		data := fillEvent().Data
		data.Side = "SELL"
		in, err := fillToInput(data)
		require.NoError(t, err)
		assert.Equal(t, models.TradeTypeSell, *in.TradeType)
	})

	t.Run("invalid side fails", func(t *testing.T) {
		data := fillEvent().Data
		data.Side = "hold"
		_, err := fillToInput(data)
		assert.ErrorContains(t, err, "invalid fill side")
	})

	t.Run("invalid numerics fail", func(t *testing.T) {
		for _, mutate := range []func(*models.TradeFillData){
			func(d *models.TradeFillData) { d.Lots = "" },
			func(d *models.TradeFillData) { d.EntryPrice = "abc" },
			func(d *models.TradeFillData) { d.ProfitLoss = "" },
		} {
			data := fillEvent().Data
			mutate(&data)
			_, err := fillToInput(data)
			assert.Error(t, err)
		}
	})
}

func TestParseFillTime(t *testing.T) {
	rfc := "2025-06-13T06:00:00+09:00"
	assert.Equal(t, time.Date(2025, 6, 12, 21, 0, 0, 0, time.UTC), parseFillTime(&rfc))

	bare := "2025-06-13T06:00:00"
	assert.Equal(t, time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC), parseFillTime(&bare))

	junk := "yesterday"
	assert.WithinDuration(t, time.Now().UTC(), parseFillTime(&junk), 5*time.Second)
	assert.WithinDuration(t, time.Now().UTC(), parseFillTime(nil), 5*time.Second)
}
