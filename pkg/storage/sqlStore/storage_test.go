package sqlStore

import (
	"testing"
	"time"

	"github.com/finthetix/sidecar/internal/logger"
	"github.com/finthetix/sidecar/internal/tests"
	"github.com/finthetix/sidecar/internal/tests/sqlite"
	"github.com/finthetix/sidecar/pkg/storage"
	"github.com/finthetix/sidecar/pkg/storage/migrations"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const staker = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func setup(t *testing.T) (*SqlSnapshotStore, *gorm.DB, *zap.Logger) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	grm, err := sqlite.GetInMemorySqliteDatabaseConnection(l)
	if err != nil {
		t.Fatal(err)
	}
	return NewSqlSnapshotStore(grm, l), grm, l
}

func snapshotAt(blockNumber uint64, totalReward string) *storage.RewardSnapshot {
	return &storage.RewardSnapshot{
		StakerAddress:   staker,
		BlockNumber:     blockNumber,
		BlockTime:       time.Unix(int64(1000+blockNumber), 0).UTC(),
		StakedAmt:       "1000",
		PublishedReward: "42",
		AccruedReward:   "50000",
		TotalReward:     totalReward,
		FormulaVariant:  "divided",
	}
}

func Test_SqlSnapshotStore(t *testing.T) {
	t.Run("Records snapshots and tracks the staker", func(t *testing.T) {
		store, grm, _ := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		res, err := store.RecordRewardSnapshot(snapshotAt(10, "50042"))
		assert.Nil(t, err)
		assert.NotZero(t, res.Id)
		assert.Equal(t, "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", res.StakerAddress)

		_, err = store.RecordRewardSnapshot(snapshotAt(16, "80042"))
		assert.Nil(t, err)

		s, err := store.GetStaker(staker)
		assert.Nil(t, err)
		assert.Equal(t, uint64(10), s.FirstSeenBlock)
		assert.Equal(t, uint64(16), s.LastSeenBlock)
	})
	t.Run("Lists the latest snapshots first", func(t *testing.T) {
		store, grm, _ := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		for i, block := range []uint64{3, 9, 5} {
			_, err := store.RecordRewardSnapshot(snapshotAt(block, []string{"1", "2", "3"}[i]))
			assert.Nil(t, err)
		}

		snapshots, err := store.ListRewardSnapshots(staker, 2)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(snapshots))
		assert.Equal(t, uint64(9), snapshots[0].BlockNumber)
		assert.Equal(t, uint64(5), snapshots[1].BlockNumber)
		assert.Equal(t, time.Unix(1009, 0).UTC(), snapshots[0].BlockTime.UTC())

		all, err := store.ListRewardSnapshots(staker, 0)
		assert.Nil(t, err)
		assert.Equal(t, 3, len(all))
	})
	t.Run("Amounts beyond int64 keep their precision", func(t *testing.T) {
		store, grm, _ := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		large := "2500000000000000000000123"
		_, err := store.RecordRewardSnapshot(snapshotAt(1, large))
		assert.Nil(t, err)

		snapshots, err := store.ListRewardSnapshots(staker, 1)
		assert.Nil(t, err)
		assert.Equal(t, large, snapshots[0].TotalReward)
	})
	t.Run("Recording the same block twice keeps one snapshot", func(t *testing.T) {
		store, grm, _ := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		first, err := store.RecordRewardSnapshot(snapshotAt(7, "100"))
		assert.Nil(t, err)

		second, err := store.RecordRewardSnapshot(snapshotAt(7, "100"))
		assert.Nil(t, err)
		assert.Equal(t, first.Id, second.Id)

		undivided := snapshotAt(7, "200")
		undivided.FormulaVariant = "undivided"
		_, err = store.RecordRewardSnapshot(undivided)
		assert.Nil(t, err)

		snapshots, err := store.ListRewardSnapshots(staker, 10)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(snapshots))
	})
	t.Run("Unknown stakers are not an error", func(t *testing.T) {
		store, grm, _ := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		s, err := store.GetStaker(tests.TestStakingToken)
		assert.Nil(t, err)
		assert.Nil(t, s)

		snapshots, err := store.ListRewardSnapshots(tests.TestStakingToken, 10)
		assert.Nil(t, err)
		assert.Equal(t, 0, len(snapshots))
	})
	t.Run("Migrations are idempotent", func(t *testing.T) {
		_, grm, l := setup(t)
		defer sqlite.TeardownSqliteDatabase(grm)

		db, _ := grm.DB()
		assert.Nil(t, migrations.NewMigrator(db, grm, l).MigrateAll())
	})
}
