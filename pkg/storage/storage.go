package storage

import (
	"time"
)

// SnapshotStore caches computed reward snapshots. The chain is always authoritative;
// nothing read from the store is ever fed back into a reward computation.
type SnapshotStore interface {
	RecordRewardSnapshot(snapshot *RewardSnapshot) (*RewardSnapshot, error)
	ListRewardSnapshots(stakerAddress string, limit int) ([]*RewardSnapshot, error)
	GetStaker(stakerAddress string) (*Staker, error)
}

// Tables.
type Staker struct {
	Address        string `gorm:"primaryKey"`
	FirstSeenBlock uint64
	LastSeenBlock  uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RewardSnapshot struct {
	Id              uint64 `gorm:"primaryKey;autoIncrement"`
	StakerAddress   string
	BlockNumber     uint64
	BlockTime       time.Time
	StakedAmt       string
	PublishedReward string
	AccruedReward   string
	TotalReward     string
	FormulaVariant  string
	CreatedAt       time.Time
}

const DefaultSnapshotListLimit = 100
const MaxSnapshotListLimit = 1000
