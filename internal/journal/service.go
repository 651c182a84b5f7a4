// Package journal is the write-side service for manual trade entry: it keeps
// the trade row, its tag/emotion links and the performance rollups in step.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fxjournal/internal/metrics"
	"fxjournal/internal/models"
	"fxjournal/internal/timeutil"
)

// ErrExitBeforeEntry rejects trades whose exit timing precedes entry. This
// is an input-boundary check; the store does not enforce it.
var ErrExitBeforeEntry = errors.New("exit timing precedes entry timing")

// Store is the slice of the store the journal service needs.
type Store interface {
	CreateTrade(t *models.Trade) error
	GetTradeByID(id int) (*models.Trade, error)
	UpdateTrade(t *models.Trade) error
	DeleteTradeCascade(id int) error
	GetOrCreateSymbol(name string) (*models.Symbol, error)
	GetOrCreateTag(userID, name string) (*models.Tag, error)
	GetOrCreateEmotion(userID, name string) (*models.Emotion, error)
	LinkTradeTag(tradeID, tagID int) error
	LinkTradeEmotion(tradeID, emotionID int) error
	UnlinkTradeTags(tradeID int) error
	UnlinkTradeEmotions(tradeID int) error
}

// Rollups is the slice of the metrics aggregator the service drives.
type Rollups interface {
	Apply(ctx context.Context, in metrics.TradeInput) error
	Remove(ctx context.Context, in metrics.TradeInput) error
	Update(ctx context.Context, old, new metrics.TradeInput) error
}

// TradeInput is a manual trade entry. Nil fields mean "not entered".
type TradeInput struct {
	Symbol     string
	EntryAt    *time.Time
	ExitAt     *time.Time
	EntryPrice *decimal.Decimal
	ExitPrice  *decimal.Decimal
	LotSize    *decimal.Decimal
	Pips       *decimal.Decimal
	ProfitLoss *decimal.Decimal
	TradeType  *int
	OrderNo    string
	Memo       string
	Tags       []string
	Emotions   []string
}

// Service coordinates trade writes.
type Service struct {
	store   Store
	rollups Rollups
	logger  zerolog.Logger
}

// NewService creates a Service
func NewService(store Store, rollups Rollups, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		rollups: rollups,
		logger:  logger.With().Str("component", "journal").Logger(),
	}
}

// CreateTrade validates and persists a manual entry, links its labels and
// folds it into the rollups when it carries a settled result.
func (s *Service) CreateTrade(ctx context.Context, userID string, in TradeInput) (*models.Trade, error) {
	if err := validateTiming(in); err != nil {
		return nil, err
	}

	symbol, err := s.store.GetOrCreateSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}

	trade := buildTrade(userID, symbol.ID, in)
	if err := s.store.CreateTrade(trade); err != nil {
		return nil, err
	}

	if err := s.linkLabels(trade.ID, userID, in.Tags, in.Emotions); err != nil {
		return nil, err
	}

	if input, ok := rollupInput(trade); ok {
		if err := s.rollups.Apply(ctx, input); err != nil {
			return nil, fmt.Errorf("trade %d saved but rollup update failed: %w", trade.ID, err)
		}
	}

	s.logger.Info().Int("trade_id", trade.ID).Str("user_id", userID).Msg("trade created")
	return trade, nil
}

// UpdateTrade replaces a trade record and relinks its labels. Rollups are
// kept in step with remove-then-apply; the drift this implies when old and
// new straddle a period boundary is accepted.
func (s *Service) UpdateTrade(ctx context.Context, id int, in TradeInput) (*models.Trade, error) {
	if err := validateTiming(in); err != nil {
		return nil, err
	}

	old, err := s.store.GetTradeByID(id)
	if err != nil {
		return nil, err
	}

	symbol, err := s.store.GetOrCreateSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}

	trade := buildTrade(old.UserID, symbol.ID, in)
	trade.ID = old.ID
	trade.CreatedAt = old.CreatedAt
	if err := s.store.UpdateTrade(trade); err != nil {
		return nil, err
	}

	if err := s.store.UnlinkTradeTags(trade.ID); err != nil {
		return nil, err
	}
	if err := s.store.UnlinkTradeEmotions(trade.ID); err != nil {
		return nil, err
	}
	if err := s.linkLabels(trade.ID, old.UserID, in.Tags, in.Emotions); err != nil {
		return nil, err
	}

	oldInput, hadOld := rollupInput(old)
	newInput, hasNew := rollupInput(trade)
	switch {
	case hadOld && hasNew:
		err = s.rollups.Update(ctx, oldInput, newInput)
	case hadOld:
		err = s.rollups.Remove(ctx, oldInput)
	case hasNew:
		err = s.rollups.Apply(ctx, newInput)
	}
	if err != nil {
		return nil, fmt.Errorf("trade %d saved but rollup update failed: %w", trade.ID, err)
	}

	return trade, nil
}

// DeleteTrade removes a trade, its links, and its rollup contribution.
func (s *Service) DeleteTrade(ctx context.Context, id int) error {
	trade, err := s.store.GetTradeByID(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTradeCascade(id); err != nil {
		return err
	}

	if input, ok := rollupInput(trade); ok {
		if err := s.rollups.Remove(ctx, input); err != nil {
			return fmt.Errorf("trade %d deleted but rollup update failed: %w", id, err)
		}
	}

	s.logger.Info().Int("trade_id", id).Msg("trade deleted")
	return nil
}

func validateTiming(in TradeInput) error {
	if in.EntryAt != nil && in.ExitAt != nil && in.ExitAt.Before(*in.EntryAt) {
		return ErrExitBeforeEntry
	}
	return nil
}

func buildTrade(userID string, symbolID int, in TradeInput) *models.Trade {
	t := &models.Trade{
		UserID:     userID,
		SymbolID:   symbolID,
		EntryPrice: in.EntryPrice,
		ExitPrice:  in.ExitPrice,
		LotSize:    in.LotSize,
		Pips:       in.Pips,
		ProfitLoss: in.ProfitLoss,
		TradeType:  in.TradeType,
		OrderNo:    in.OrderNo,
		Memo:       in.Memo,
	}
	if in.EntryAt != nil {
		d, c := timeutil.SplitUTC(*in.EntryAt)
		t.EntryDate, t.EntryTime = &d, &c
	}
	if in.ExitAt != nil {
		d, c := timeutil.SplitUTC(*in.ExitAt)
		t.ExitDate, t.ExitTime = &d, &c
	}
	if in.EntryAt != nil && in.ExitAt != nil {
		hold := int64(in.ExitAt.Sub(*in.EntryAt).Seconds())
		if hold < 0 {
			hold = 0
		}
		t.HoldTimeSeconds = &hold
	}
	return t
}

func (s *Service) linkLabels(tradeID int, userID string, tags, emotions []string) error {
	for _, name := range tags {
		tag, err := s.store.GetOrCreateTag(userID, name)
		if err != nil {
			return err
		}
		if err := s.store.LinkTradeTag(tradeID, tag.ID); err != nil {
			return err
		}
	}
	for _, name := range emotions {
		emotion, err := s.store.GetOrCreateEmotion(userID, name)
		if err != nil {
			return err
		}
		if err := s.store.LinkTradeEmotion(tradeID, emotion.ID); err != nil {
			return err
		}
	}
	return nil
}

// rollupInput extracts the aggregator's view of a trade. Only trades with a
// combined exit instant and a profit/loss participate in rollups.
func rollupInput(t *models.Trade) (metrics.TradeInput, bool) {
	exitAt, ok := t.ExitInstant()
	if !ok || t.ProfitLoss == nil {
		return metrics.TradeInput{}, false
	}

	input := metrics.TradeInput{
		UserID:     t.UserID,
		ExitAt:     exitAt,
		ProfitLoss: *t.ProfitLoss,
		Pips:       decimal.Zero,
	}
	if t.Pips != nil {
		input.Pips = *t.Pips
	}
	if t.HoldTimeSeconds != nil {
		input.HoldTimeSeconds = *t.HoldTimeSeconds
	}
	return input, true
}
