package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"fxjournal/internal/journal"
	"fxjournal/internal/models"
)

// TradeWriter is the slice of the journal service the consumer writes through.
type TradeWriter interface {
	CreateTrade(ctx context.Context, userID string, in journal.TradeInput) (*models.Trade, error)
}

// DedupStore answers whether a fill has already been recorded.
type DedupStore interface {
	TradeExistsByOrderNo(userID, orderNo string) (bool, error)
}

// Consumer ingests trade fill events pushed by external watchers. Fills are
// journaled through the same service as manual entry, so rollups stay in
// step. Delivery is at-least-once; the order number dedup makes replays safe.
type Consumer struct {
	reader  *kafka.Reader
	journal TradeWriter
	store   DedupStore
	logger  zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for trade fill events
func NewConsumer(brokers []string, topic, groupID string, j TradeWriter, store DedupStore, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		journal: j,
		store:   store,
		logger:  logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages. It blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error().Err(err).Msg("failed to read message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("failed to process message")
				// Continue processing other messages
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TradeFillEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal fill event: %w", err)
	}

	if event.EventType != models.EventTradeFilled {
		c.logger.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}

	exists, err := c.store.TradeExistsByOrderNo(event.UserID, event.Data.OrderID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate fill: %w", err)
	}
	if exists {
		c.logger.Debug().
			Str("order_no", event.Data.OrderID).
			Str("user_id", event.UserID).
			Msg("fill already journaled, skipping")
		return nil
	}

	input, err := fillToInput(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert fill event: %w", err)
	}

	trade, err := c.journal.CreateTrade(ctx, event.UserID, input)
	if err != nil {
		return fmt.Errorf("failed to journal fill: %w", err)
	}

	c.logger.Info().
		Int("trade_id", trade.ID).
		Str("order_no", event.Data.OrderID).
		Str("source", event.Source).
		Msg("fill journaled")
	return nil
}

// fillToInput maps a fill payload onto a journal entry. Unlike the broker CSV
// export, the side here is the OPENING direction and is stored as-is.
func fillToInput(data models.TradeFillData) (journal.TradeInput, error) {
	var tradeType int
	switch strings.ToLower(strings.TrimSpace(data.Side)) {
	case "buy":
		tradeType = models.TradeTypeBuy
	case "sell":
		tradeType = models.TradeTypeSell
	default:
		return journal.TradeInput{}, fmt.Errorf("invalid fill side: %s", data.Side)
	}

	lots, err := decimal.NewFromString(data.Lots)
	if err != nil {
		return journal.TradeInput{}, fmt.Errorf("invalid lots %s: %w", data.Lots, err)
	}
	entryPrice, err := decimal.NewFromString(data.EntryPrice)
	if err != nil {
		return journal.TradeInput{}, fmt.Errorf("invalid entry price %s: %w", data.EntryPrice, err)
	}
	exitPrice, err := decimal.NewFromString(data.ExitPrice)
	if err != nil {
		return journal.TradeInput{}, fmt.Errorf("invalid exit price %s: %w", data.ExitPrice, err)
	}
	pips, err := decimal.NewFromString(data.Pips)
	if err != nil {
		return journal.TradeInput{}, fmt.Errorf("invalid pips %s: %w", data.Pips, err)
	}
	profit, err := decimal.NewFromString(data.ProfitLoss)
	if err != nil {
		return journal.TradeInput{}, fmt.Errorf("invalid profit/loss %s: %w", data.ProfitLoss, err)
	}

	entryAt := parseFillTime(data.EntryAt)
	exitAt := parseFillTime(data.ExitAt)

	return journal.TradeInput{
		Symbol:     data.Pair,
		EntryAt:    &entryAt,
		ExitAt:     &exitAt,
		EntryPrice: &entryPrice,
		ExitPrice:  &exitPrice,
		LotSize:    &lots,
		Pips:       &pips,
		ProfitLoss: &profit,
		TradeType:  &tradeType,
		OrderNo:    data.OrderID,
	}, nil
}

func parseFillTime(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Now().UTC()
	}
	ts, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		// Try parsing without timezone
		ts, err = time.Parse("2006-01-02T15:04:05", *s)
		if err != nil {
			return time.Now().UTC()
		}
	}
	return ts.UTC()
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
