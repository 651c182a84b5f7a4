package analytics

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/models"
)

type fakeStore struct {
	trades   []*models.Trade
	tags     map[int][]string
	emotions map[int][]string
}

func (s *fakeStore) GetTradesByEntryDateRange(userID, start, end string) ([]*models.Trade, error) {
	var out []*models.Trade
	for _, t := range s.trades {
		if t.UserID != userID || t.EntryDate == nil {
			continue
		}
		if *t.EntryDate >= start && *t.EntryDate < end {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTagNamesByTradeIDs(tradeIDs []int) (map[int][]string, error) {
	return s.tags, nil
}

func (s *fakeStore) GetEmotionNamesByTradeIDs(tradeIDs []int) (map[int][]string, error) {
	return s.emotions, nil
}

var nextID int

func testTrade(userID, entryDate, entryTime, profit, pips string, hold int64) *models.Trade {
	nextID++
	p := decimal.RequireFromString(profit)
	pp := decimal.RequireFromString(pips)
	return &models.Trade{
		ID:              nextID,
		UserID:          userID,
		EntryDate:       &entryDate,
		EntryTime:       &entryTime,
		ProfitLoss:      &p,
		Pips:            &pp,
		HoldTimeSeconds: &hold,
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	store := &fakeStore{trades: []*models.Trade{
		testTrade("u1", "2025-06-05", "08:00:00", "3000", "30", 600),
		testTrade("u1", "2025-06-20", "09:00:00", "-1500", "-15", 300),
		testTrade("u1", "2025-09-01", "10:00:00", "500", "5", 120),
		testTrade("u1", "2024-12-31", "10:00:00", "999", "9", 60), // outside the year
		testTrade("u2", "2025-06-05", "10:00:00", "777", "7", 60), // other user
	}}
	svc := NewService(store, nil, zerolog.Nop())

	buckets, err := svc.MonthlyBreakdown(context.Background(), "u1", 2025, Filter{})
	require.NoError(t, err)
	require.Len(t, buckets, 12)

	june := buckets[5]
	assert.Equal(t, 6, june.Month)
	assert.Equal(t, 2, june.Trades)
	assert.Equal(t, 1, june.Wins)
	assert.Equal(t, 1, june.Losses)
	assert.InDelta(t, 50, june.WinRate, 1e-9)
	assert.True(t, decimal.RequireFromString("1500").Equal(june.TotalProfit))
	assert.True(t, decimal.RequireFromString("3000").Equal(june.AvgWinProfit))
	assert.True(t, decimal.RequireFromString("1500").Equal(june.AvgLossLoss))
	assert.True(t, decimal.RequireFromString("30").Equal(june.AvgWinPips))
	assert.True(t, decimal.RequireFromString("15").Equal(june.AvgLossPips))
	assert.InDelta(t, 600, june.AvgWinHoldSeconds, 1e-9)
	assert.InDelta(t, 300, june.AvgLossHoldSeconds, 1e-9)

	september := buckets[8]
	assert.Equal(t, 1, september.Trades)
	assert.InDelta(t, 100, september.WinRate, 1e-9)

	// Empty buckets report a zero win rate, not NaN.
	january := buckets[0]
	assert.Zero(t, january.Trades)
	assert.Zero(t, january.WinRate)
	assert.True(t, january.TotalProfit.IsZero())
}

func TestMonthlyBreakdownSkipsUnsettledTrades(t *testing.T) {
	settled := testTrade("u1", "2025-06-05", "08:00:00", "100", "1", 60)
	open := testTrade("u1", "2025-06-06", "08:00:00", "0", "0", 0)
	open.ProfitLoss = nil

	store := &fakeStore{trades: []*models.Trade{settled, open}}
	svc := NewService(store, nil, zerolog.Nop())

	buckets, err := svc.MonthlyBreakdown(context.Background(), "u1", 2025, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, buckets[5].Trades)
}

func TestHourlyBreakdown(t *testing.T) {
	store := &fakeStore{trades: []*models.Trade{
		testTrade("u1", "2025-06-05", "08:15:00", "100", "1", 60),
		testTrade("u1", "2025-06-12", "08:45:00", "-50", "-0.5", 30),
		testTrade("u1", "2025-06-20", "21:00:00", "200", "2", 90),
		testTrade("u1", "2025-07-01", "08:00:00", "999", "9", 60), // next month
	}}
	svc := NewService(store, nil, zerolog.Nop())

	buckets, err := svc.HourlyBreakdown(context.Background(), "u1", 2025, 6, Filter{})
	require.NoError(t, err)
	require.Len(t, buckets, 24)

	assert.Equal(t, 8, buckets[8].Hour)
	assert.Equal(t, 2, buckets[8].Trades)
	assert.InDelta(t, 50, buckets[8].WinRate, 1e-9)
	assert.Equal(t, 1, buckets[21].Trades)
	assert.Zero(t, buckets[7].Trades)
}

func TestFilterByTagsAndEmotions(t *testing.T) {
	a := testTrade("u1", "2025-06-05", "08:00:00", "100", "1", 60)
	b := testTrade("u1", "2025-06-06", "08:00:00", "200", "2", 60)
	c := testTrade("u1", "2025-06-07", "08:00:00", "300", "3", 60)

	store := &fakeStore{
		trades: []*models.Trade{a, b, c},
		tags: map[int][]string{
			a.ID: {"breakout"},
			b.ID: {"breakout", "news"},
			c.ID: {"range"},
		},
		emotions: map[int][]string{
			a.ID: {"calm"},
			b.ID: {"fomo"},
			c.ID: {"calm"},
		},
	}
	svc := NewService(store, nil, zerolog.Nop())
	ctx := context.Background()

	t.Run("tag filter ORs within the dimension", func(t *testing.T) {
		buckets, err := svc.MonthlyBreakdown(ctx, "u1", 2025, Filter{Tags: []string{"breakout", "range"}})
		require.NoError(t, err)
		assert.Equal(t, 3, buckets[5].Trades)
	})

	t.Run("tag and emotion filters AND across dimensions", func(t *testing.T) {
		buckets, err := svc.MonthlyBreakdown(ctx, "u1", 2025, Filter{
			Tags:     []string{"breakout"},
			Emotions: []string{"calm"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, buckets[5].Trades)
		assert.True(t, decimal.RequireFromString("100").Equal(buckets[5].TotalProfit))
	})

	t.Run("no matches yields empty buckets", func(t *testing.T) {
		buckets, err := svc.MonthlyBreakdown(ctx, "u1", 2025, Filter{Tags: []string{"scalp"}})
		require.NoError(t, err)
		assert.Zero(t, buckets[5].Trades)
	})
}
