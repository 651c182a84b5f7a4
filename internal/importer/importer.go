// Package importer runs the broker CSV pipeline: decode, parse, map, resolve
// symbols, insert trades and fold them into the performance rollups.
//
// Import is at-least-once and non-transactional: rows fail individually and
// already-inserted trades stay when a later row fails. The caller gets
// imported/failed counts; row detail goes to the log.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fxjournal/internal/hirose"
	"fxjournal/internal/metrics"
	"fxjournal/internal/models"
	"fxjournal/internal/timeutil"
)

// Store is the slice of the store the importer writes through.
type Store interface {
	CreateTrade(t *models.Trade) error
	GetOrCreateSymbol(name string) (*models.Symbol, error)
}

// Applier folds inserted trades into the rollups.
type Applier interface {
	Apply(ctx context.Context, in metrics.TradeInput) error
}

// Publisher announces completed imports. May be nil.
type Publisher interface {
	PublishImport(ctx context.Context, event models.ImportEvent) error
}

// Result reports an import outcome: "N imported, M errors".
type Result struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer wires the pipeline together.
type Importer struct {
	store     Store
	agg       Applier
	publisher Publisher
	policy    timeutil.Policy
	logger    zerolog.Logger
}

// New creates an Importer. publisher may be nil.
func New(store Store, agg Applier, publisher Publisher, policy timeutil.Policy, logger zerolog.Logger) *Importer {
	return &Importer{
		store:     store,
		agg:       agg,
		publisher: publisher,
		policy:    policy,
		logger:    logger.With().Str("component", "importer").Logger(),
	}
}

// ImportCSV ingests one raw Hirose export for the user. A missing header
// fails the whole file; everything after that fails row by row. Rollup
// application runs strictly in row order so the incremental averages stay
// correct when several rows land in the same period.
func (imp *Importer) ImportCSV(ctx context.Context, userID string, raw []byte) (*Result, error) {
	rows, err := hirose.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	result := &Result{}
	for i, row := range rows {
		if err := imp.importRow(ctx, userID, row); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			imp.logger.Warn().Err(err).Int("row", i+1).Msg("row import failed")
			continue
		}
		result.Imported++
	}

	imp.logger.Info().
		Str("user_id", userID).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Msg("csv import finished")

	if imp.publisher != nil {
		event := models.ImportEvent{
			EventType: models.EventCSVImported,
			UserID:    userID,
			Imported:  result.Imported,
			Failed:    result.Failed,
			Timestamp: time.Now(),
		}
		if err := imp.publisher.PublishImport(ctx, event); err != nil {
			imp.logger.Warn().Err(err).Msg("failed to publish import event")
		}
	}

	return result, nil
}

func (imp *Importer) importRow(ctx context.Context, userID string, row hirose.RawRow) error {
	mapped, err := hirose.MapRow(row, imp.policy)
	if err != nil {
		return err
	}

	symbol, err := imp.store.GetOrCreateSymbol(mapped.Pair)
	if err != nil {
		return err
	}

	trade := tradeFromMapped(userID, symbol.ID, mapped)
	if err := imp.store.CreateTrade(trade); err != nil {
		return err
	}

	return imp.agg.Apply(ctx, metrics.TradeInput{
		UserID:          userID,
		ExitAt:          mapped.ExitAt,
		ProfitLoss:      mapped.ProfitLoss,
		Pips:            mapped.Pips,
		HoldTimeSeconds: mapped.HoldTimeSeconds,
	})
}

func tradeFromMapped(userID string, symbolID int, m hirose.MappedTrade) *models.Trade {
	entryDate, entryTime := timeutil.SplitUTC(m.EntryAt)
	exitDate, exitTime := timeutil.SplitUTC(m.ExitAt)

	entryPrice, exitPrice := m.EntryPrice, m.ExitPrice
	lotSize, pips, profit := m.LotSize, m.Pips, m.ProfitLoss
	tradeType := m.TradeType
	hold := m.HoldTimeSeconds

	return &models.Trade{
		UserID:          userID,
		SymbolID:        symbolID,
		EntryDate:       &entryDate,
		EntryTime:       &entryTime,
		ExitDate:        &exitDate,
		ExitTime:        &exitTime,
		EntryPrice:      &entryPrice,
		ExitPrice:       &exitPrice,
		LotSize:         &lotSize,
		Pips:            &pips,
		ProfitLoss:      &profit,
		TradeType:       &tradeType,
		HoldTimeSeconds: &hold,
		OrderNo:         m.OrderNo,
		Memo:            m.Memo,
	}
}
