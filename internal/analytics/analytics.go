// Package analytics computes on-demand breakdowns from raw trades.
//
// Unlike the rollup table, which buckets by exit instant, these breakdowns
// bucket by ENTRY instant: they answer "how do trades I opened at this time
// perform", which is a different question from "what did I realize in this
// period". Both sources of truth are kept on purpose.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fxjournal/internal/models"
)

// cache key layout: analytics:{kind}:{userID}:{window}
const (
	cacheKeyPrefix = "analytics"
	cacheTTL       = 5 * time.Minute
)

// TradeStore is the slice of the store the analytics layer reads from.
type TradeStore interface {
	GetTradesByEntryDateRange(userID, start, end string) ([]*models.Trade, error)
	GetTagNamesByTradeIDs(tradeIDs []int) (map[int][]string, error)
	GetEmotionNamesByTradeIDs(tradeIDs []int) (map[int][]string, error)
}

// Filter narrows a breakdown to trades carrying at least one of the given
// tags AND at least one of the given emotions. An empty slice leaves that
// dimension unfiltered: OR within a dimension, AND across dimensions.
type Filter struct {
	Tags     []string
	Emotions []string
}

func (f Filter) empty() bool {
	return len(f.Tags) == 0 && len(f.Emotions) == 0
}

// BucketStats summarizes one time bucket.
type BucketStats struct {
	Trades             int             `json:"trades"`
	Wins               int             `json:"wins"`
	Losses             int             `json:"losses"`
	WinRate            float64         `json:"win_rate"` // percent; 0 for empty buckets
	TotalProfit        decimal.Decimal `json:"total_profit"`
	AvgWinProfit       decimal.Decimal `json:"avg_win_profit"`
	AvgLossLoss        decimal.Decimal `json:"avg_loss_loss"` // positive magnitude
	AvgWinPips         decimal.Decimal `json:"avg_win_pips"`
	AvgLossPips        decimal.Decimal `json:"avg_loss_pips"`
	AvgWinHoldSeconds  float64         `json:"avg_win_hold_seconds"`
	AvgLossHoldSeconds float64         `json:"avg_loss_hold_seconds"`
}

// MonthBucket is one calendar month of a yearly breakdown.
type MonthBucket struct {
	Month int `json:"month"` // 1-12
	BucketStats
}

// HourBucket is one hour-of-day of an intra-month breakdown.
type HourBucket struct {
	Hour int `json:"hour"` // 0-23
	BucketStats
}

// Service computes breakdowns, optionally caching unfiltered results in
// Redis. A nil or unreachable Redis degrades to computing every request.
type Service struct {
	store  TradeStore
	cache  *redis.Client
	logger zerolog.Logger
}

// NewService creates a Service. cache may be nil.
func NewService(store TradeStore, cache *redis.Client, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// MonthlyBreakdown buckets one year of a user's trades by entry month.
func (s *Service) MonthlyBreakdown(ctx context.Context, userID string, year int, f Filter) ([]MonthBucket, error) {
	cacheKey := fmt.Sprintf("%s:monthly:%s:%d", cacheKeyPrefix, userID, year)
	if f.empty() {
		var cached []MonthBucket
		if s.cacheGet(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	start := fmt.Sprintf("%04d-01-01", year)
	end := fmt.Sprintf("%04d-01-01", year+1)
	trades, err := s.filteredTrades(userID, start, end, f)
	if err != nil {
		return nil, err
	}

	groups := make([][]*models.Trade, 13)
	for _, t := range trades {
		entry, ok := t.EntryInstant()
		if !ok {
			continue
		}
		m := int(entry.Month())
		groups[m] = append(groups[m], t)
	}

	out := make([]MonthBucket, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, MonthBucket{Month: m, BucketStats: reduce(groups[m])})
	}

	if f.empty() {
		s.cacheSet(ctx, cacheKey, out)
	}
	return out, nil
}

// HourlyBreakdown buckets one month of a user's trades by entry hour of day.
func (s *Service) HourlyBreakdown(ctx context.Context, userID string, year int, month time.Month, f Filter) ([]HourBucket, error) {
	cacheKey := fmt.Sprintf("%s:hourly:%s:%04d-%02d", cacheKeyPrefix, userID, year, month)
	if f.empty() {
		var cached []HourBucket
		if s.cacheGet(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := monthStart.Format("2006-01-02")
	end := monthStart.AddDate(0, 1, 0).Format("2006-01-02")
	trades, err := s.filteredTrades(userID, start, end, f)
	if err != nil {
		return nil, err
	}

	groups := make([][]*models.Trade, 24)
	for _, t := range trades {
		entry, ok := t.EntryInstant()
		if !ok {
			continue
		}
		h := entry.Hour()
		groups[h] = append(groups[h], t)
	}

	out := make([]HourBucket, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, HourBucket{Hour: h, BucketStats: reduce(groups[h])})
	}

	if f.empty() {
		s.cacheSet(ctx, cacheKey, out)
	}
	return out, nil
}

// filteredTrades fetches the window and applies the tag/emotion filter via
// link-table batch lookups.
func (s *Service) filteredTrades(userID, start, end string, f Filter) ([]*models.Trade, error) {
	trades, err := s.store.GetTradesByEntryDateRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}
	if f.empty() || len(trades) == 0 {
		return trades, nil
	}

	ids := make([]int, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}

	var tagNames, emotionNames map[int][]string
	if len(f.Tags) > 0 {
		if tagNames, err = s.store.GetTagNamesByTradeIDs(ids); err != nil {
			return nil, fmt.Errorf("failed to fetch tag links: %w", err)
		}
	}
	if len(f.Emotions) > 0 {
		if emotionNames, err = s.store.GetEmotionNamesByTradeIDs(ids); err != nil {
			return nil, fmt.Errorf("failed to fetch emotion links: %w", err)
		}
	}

	var kept []*models.Trade
	for _, t := range trades {
		if len(f.Tags) > 0 && !anyMatch(tagNames[t.ID], f.Tags) {
			continue
		}
		if len(f.Emotions) > 0 && !anyMatch(emotionNames[t.ID], f.Emotions) {
			continue
		}
		kept = append(kept, t)
	}
	return kept, nil
}

func anyMatch(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// reduce folds one bucket of trades into its summary. Trades without a
// profit/loss cannot be classified and are skipped. Pips averages cover only
// trades with pips set; holding-time averages only positive holds.
func reduce(trades []*models.Trade) BucketStats {
	stats := BucketStats{
		TotalProfit:  decimal.Zero,
		AvgWinProfit: decimal.Zero,
		AvgLossLoss:  decimal.Zero,
		AvgWinPips:   decimal.Zero,
		AvgLossPips:  decimal.Zero,
	}

	winProfit, lossLoss := decimal.Zero, decimal.Zero
	winPips, lossPips := decimal.Zero, decimal.Zero
	var winPipsN, lossPipsN int
	var winHold, lossHold float64
	var winHoldN, lossHoldN int

	for _, t := range trades {
		if t.ProfitLoss == nil {
			continue
		}
		stats.Trades++
		stats.TotalProfit = stats.TotalProfit.Add(*t.ProfitLoss)

		win := !t.ProfitLoss.IsNegative()
		if win {
			stats.Wins++
			winProfit = winProfit.Add(*t.ProfitLoss)
		} else {
			stats.Losses++
			lossLoss = lossLoss.Add(t.ProfitLoss.Abs())
		}

		if t.Pips != nil {
			if win {
				winPips = winPips.Add(*t.Pips)
				winPipsN++
			} else {
				lossPips = lossPips.Add(t.Pips.Abs())
				lossPipsN++
			}
		}

		if t.HoldTimeSeconds != nil && *t.HoldTimeSeconds > 0 {
			if win {
				winHold += float64(*t.HoldTimeSeconds)
				winHoldN++
			} else {
				lossHold += float64(*t.HoldTimeSeconds)
				lossHoldN++
			}
		}
	}

	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Wins+stats.Losses) * 100
	}
	if stats.Wins > 0 {
		stats.AvgWinProfit = winProfit.Div(decimal.NewFromInt(int64(stats.Wins)))
	}
	if stats.Losses > 0 {
		stats.AvgLossLoss = lossLoss.Div(decimal.NewFromInt(int64(stats.Losses)))
	}
	if winPipsN > 0 {
		stats.AvgWinPips = winPips.Div(decimal.NewFromInt(int64(winPipsN)))
	}
	if lossPipsN > 0 {
		stats.AvgLossPips = lossPips.Div(decimal.NewFromInt(int64(lossPipsN)))
	}
	if winHoldN > 0 {
		stats.AvgWinHoldSeconds = winHold / float64(winHoldN)
	}
	if lossHoldN > 0 {
		stats.AvgLossHoldSeconds = lossHold / float64(lossHoldN)
	}
	return stats
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache payload invalid")
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
