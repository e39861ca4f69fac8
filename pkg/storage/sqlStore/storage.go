package sqlStore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finthetix/sidecar/pkg/postgres"
	"github.com/finthetix/sidecar/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SqlSnapshotStore is the gorm backed SnapshotStore, used with both sqlite and postgres.
type SqlSnapshotStore struct {
	Db     *gorm.DB
	Logger *zap.Logger
}

func NewSqlSnapshotStore(db *gorm.DB, l *zap.Logger) *SqlSnapshotStore {
	return &SqlSnapshotStore{
		Db:     db,
		Logger: l,
	}
}

// RecordRewardSnapshot upserts the staker and appends the snapshot in one transaction.
func (s *SqlSnapshotStore) RecordRewardSnapshot(snapshot *storage.RewardSnapshot) (*storage.RewardSnapshot, error) {
	snapshot.StakerAddress = strings.ToLower(snapshot.StakerAddress)

	err := s.Db.Transaction(func(tx *gorm.DB) error {
		staker := &storage.Staker{
			Address:        snapshot.StakerAddress,
			FirstSeenBlock: snapshot.BlockNumber,
			LastSeenBlock:  snapshot.BlockNumber,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_seen_block": snapshot.BlockNumber,
				"updated_at":      time.Now().UTC(),
			}),
		}).Create(staker)
		if res.Error != nil {
			return fmt.Errorf("failed to upsert staker '%s': %w", snapshot.StakerAddress, res.Error)
		}

		res = tx.Model(&storage.RewardSnapshot{}).Create(snapshot)
		if res.Error != nil {
			return fmt.Errorf("failed to insert reward snapshot for '%s' at block '%d': %w", snapshot.StakerAddress, snapshot.BlockNumber, res.Error)
		}
		return nil
	})
	if err != nil {
		if postgres.IsDuplicateKeyError(err) {
			return s.existingRewardSnapshot(snapshot)
		}
		s.Logger.Sugar().Errorw("Failed to record reward snapshot", zap.Error(err))
		return nil, err
	}
	return snapshot, nil
}

// existingRewardSnapshot resolves a concurrent or repeated read of the same block to the row already stored.
func (s *SqlSnapshotStore) existingRewardSnapshot(snapshot *storage.RewardSnapshot) (*storage.RewardSnapshot, error) {
	existing := &storage.RewardSnapshot{}
	res := s.Db.Model(&storage.RewardSnapshot{}).
		Where("staker_address = ? and block_number = ? and formula_variant = ?", snapshot.StakerAddress, snapshot.BlockNumber, snapshot.FormulaVariant).
		First(existing)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load reward snapshot for '%s' at block '%d': %w", snapshot.StakerAddress, snapshot.BlockNumber, res.Error)
	}
	s.Logger.Sugar().Debugw("Reward snapshot already recorded",
		zap.String("staker", snapshot.StakerAddress),
		zap.Uint64("blockNumber", snapshot.BlockNumber),
	)
	return existing, nil
}

// ListRewardSnapshots returns the most recent snapshots first.
func (s *SqlSnapshotStore) ListRewardSnapshots(stakerAddress string, limit int) ([]*storage.RewardSnapshot, error) {
	if limit <= 0 {
		limit = storage.DefaultSnapshotListLimit
	}
	if limit > storage.MaxSnapshotListLimit {
		limit = storage.MaxSnapshotListLimit
	}

	snapshots := make([]*storage.RewardSnapshot, 0)
	res := s.Db.Model(&storage.RewardSnapshot{}).
		Where("staker_address = ?", strings.ToLower(stakerAddress)).
		Order("block_number desc").
		Order("id desc").
		Limit(limit).
		Find(&snapshots)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to list reward snapshots for '%s': %w", stakerAddress, res.Error)
	}
	return snapshots, nil
}

// GetStaker returns nil without an error for stakers that were never seen.
func (s *SqlSnapshotStore) GetStaker(stakerAddress string) (*storage.Staker, error) {
	staker := &storage.Staker{}
	res := s.Db.Model(&storage.Staker{}).Where("address = ?", strings.ToLower(stakerAddress)).First(staker)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staker '%s': %w", stakerAddress, res.Error)
	}
	return staker, nil
}
