package _202610061130_stakingTables

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	idColumn := "bigserial primary key"
	timestampType := "timestamp with time zone"
	amountType := "numeric"
	// sqlite would coerce numeric text past int64 into a lossy REAL
	if grm.Dialector.Name() == "sqlite" {
		idColumn = "integer primary key autoincrement"
		timestampType = "timestamp"
		amountType = "text"
	}

	queries := []string{
		fmt.Sprintf(`create table if not exists stakers (
			address varchar not null primary key,
			first_seen_block bigint not null,
			last_seen_block bigint not null,
			created_at %[1]s DEFAULT current_timestamp,
			updated_at %[1]s DEFAULT current_timestamp
		)`, timestampType),
		fmt.Sprintf(`create table if not exists reward_snapshots (
			id %[1]s,
			staker_address varchar not null references stakers(address) on delete cascade,
			block_number bigint not null,
			block_time %[2]s not null,
			staked_amt %[3]s not null,
			published_reward %[3]s not null,
			accrued_reward %[3]s not null,
			total_reward %[3]s not null,
			formula_variant varchar not null,
			created_at %[2]s DEFAULT current_timestamp
		)`, idColumn, timestampType, amountType),
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
	return "202610061130_stakingTables"
}
