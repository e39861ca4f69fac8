package _202610121000_rewardSnapshotUniqueBlock

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type Migration struct {
}

// Up keeps the earliest snapshot per staker, block and formula before adding the unique index.
func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`delete from reward_snapshots
			where id not in (
				select min(id) from reward_snapshots group by staker_address, block_number, formula_variant
			)`,
		`create unique index if not exists uniq_reward_snapshots_staker_block_formula on reward_snapshots (staker_address, block_number, formula_variant)`,
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
	return "202610121000_rewardSnapshotUniqueBlock"
}
