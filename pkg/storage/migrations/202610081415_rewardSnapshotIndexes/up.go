package _202610081415_rewardSnapshotIndexes

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create index if not exists idx_reward_snapshots_staker_block on reward_snapshots (staker_address, block_number desc)`,
		`create index if not exists idx_stakers_last_seen_block on stakers (last_seen_block)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			fmt.Printf("Failed to execute query: %s\n", query)
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610081415_rewardSnapshotIndexes"
}
