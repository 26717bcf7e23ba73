package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wnt/empyreal/internal/metrics"
	"github.com/wnt/empyreal/internal/models"
	"github.com/wnt/empyreal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const intervalBatchSize = 500

// Store persists synced pairs and their swap history
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SavePair upserts a pair together with both of its tokens and returns the row id
func (s *Store) SavePair(ctx context.Context, pair *types.DexPair) (uint, error) {
	if pair == nil || pair.Token0 == nil || pair.Token1 == nil {
		return 0, fmt.Errorf("pair and both tokens are required")
	}

	var pairID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token0, err := saveToken(tx, pair.Token0)
		if err != nil {
			return err
		}
		token1, err := saveToken(tx, pair.Token1)
		if err != nil {
			return err
		}

		row := pairModel(pair)
		row.Token0ID, row.Token1ID = token0, token1
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}, {Name: "chain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"factory_address", "token0_id", "token1_id", "pair_index",
				"fee_percentage", "block_number", "transaction_hash", "updated_at",
			}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save pair %s: %w", row.Address, err)
		}
		pairID = row.ID
		return nil
	})
	record("save_pair", err)
	return pairID, err
}

func saveToken(tx *gorm.DB, token *types.Token) (uint, error) {
	row := tokenModel(token)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "chain_id", "name", "symbol", "decimals", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to save token %s: %w", row.Address, err)
	}
	return row.ID, nil
}

// SaveIntervals upserts intervals keyed by (pair, start) and returns how many were written
func (s *Store) SaveIntervals(ctx context.Context, pairID uint, intervals []types.SwapInterval) (int, error) {
	if len(intervals) == 0 {
		return 0, nil
	}

	rows := intervalModels(pairID, intervals)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pair_id"}, {Name: "start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "close", "min", "max", "min_block", "max_block", "tx_count", "prev_close", "updated_at",
		}),
	}).CreateInBatches(rows, intervalBatchSize).Error
	record("save_intervals", err)
	if err != nil {
		return 0, fmt.Errorf("failed to save intervals for pair %d: %w", pairID, err)
	}
	return len(rows), nil
}

// LatestIntervalStart returns the start of the newest stored interval of a pair
func (s *Store) LatestIntervalStart(ctx context.Context, pairID uint) (time.Time, bool, error) {
	var row models.SwapInterval
	err := s.db.WithContext(ctx).
		Where("pair_id = ?", pairID).
		Order("start DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	record("latest_interval", err)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest interval: %w", err)
	}
	return row.Start, true, nil
}

// MarkSynced stamps the pair's last successful sync
func (s *Store) MarkSynced(ctx context.Context, pairID uint, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Pair{}).
		Where("id = ?", pairID).
		Update("last_synced_at", at.UTC()).Error
	record("mark_synced", err)
	return err
}

func record(operation string, err error) {
	if err != nil {
		metrics.RecordDatabaseOperation(operation, "failed")
		return
	}
	metrics.RecordDatabaseOperation(operation, "success")
}

func tokenModel(t *types.Token) models.Token {
	return models.Token{
		TokenID:  t.ID.String(),
		Address:  t.Address.Hex(),
		ChainID:  t.ChainID,
		Name:     t.Name,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
	}
}

func pairModel(p *types.DexPair) models.Pair {
	return models.Pair{
		Address:         p.Address.Hex(),
		ChainID:         p.Network.ChainID(),
		FactoryAddress:  p.FactoryAddress.Hex(),
		PairIndex:       p.Index,
		FeePercentage:   p.Fee,
		BlockNumber:     p.BlockNumber,
		TransactionHash: p.TransactionHash,
	}
}

func intervalModels(pairID uint, intervals []types.SwapInterval) []models.SwapInterval {
	rows := make([]models.SwapInterval, 0, len(intervals))
	for _, iv := range intervals {
		rows = append(rows, models.SwapInterval{
			PairID:    pairID,
			Start:     iv.Start.UTC(),
			Open:      iv.Open,
			Close:     iv.Close,
			Min:       iv.Min,
			Max:       iv.Max,
			MinBlock:  iv.MinBlock,
			MaxBlock:  iv.MaxBlock,
			TxCount:   iv.TxCount,
			PrevClose: iv.PrevClose,
		})
	}
	return rows
}
