package cmd

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/pkg/clients/ethereum"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/contractCaller/batchContractCaller"
	"github.com/finthetix/sidecar/pkg/contractCaller/sequentialContractCaller"
	"github.com/finthetix/sidecar/pkg/postgres"
	"github.com/finthetix/sidecar/pkg/sqlite"
	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/finthetix/sidecar/pkg/storage"
	"github.com/finthetix/sidecar/pkg/storage/migrations"
	"github.com/finthetix/sidecar/pkg/storage/sqlStore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newContractCaller(cfg *config.Config, l *zap.Logger) (contractCaller.IContractCaller, error) {
	client := ethereum.NewClient(ethereum.ConvertGlobalConfigToEthereumConfig(&cfg.EthereumRpcConfig), l)
	stakingContract := common.HexToAddress(cfg.ContractsConfig.StakingContractAddress)

	switch cfg.EthereumRpcConfig.ContractCaller {
	case config.ContractCaller_Sequential:
		cc, err := sequentialContractCaller.NewSequentialContractCaller(client, stakingContract, l)
		if err != nil {
			return nil, err
		}
		return cc, nil
	default:
		cc, err := batchContractCaller.NewBatchContractCaller(client, stakingContract, l)
		if err != nil {
			return nil, err
		}
		return cc, nil
	}
}

func openDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	switch cfg.DatabaseConfig.Driver {
	case config.DatabaseDriver_Postgres:
		pgCfg := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pg, err := postgres.NewPostgres(pgCfg)
		if err != nil {
			return nil, err
		}
		l.Sugar().Infow("Connected to postgres", zap.String("target", postgres.Redacted(pgCfg)))
		return gormOrClose(pg.Db, postgres.NewGormFromPostgresConnection)
	case config.DatabaseDriver_Sqlite:
		return sqlite.NewGormSqliteFromSqlite(sqlite.NewSqlite(&sqlite.SqliteConfig{
			Path: cfg.DatabaseConfig.SqlitePath,
		}, l))
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", cfg.DatabaseConfig.Driver)
	}
}

// gormOrClose closes db when gorm cannot be layered on top of it.
func gormOrClose(db *sql.DB, open func(*sql.DB) (*gorm.DB, error)) (*gorm.DB, error) {
	grm, err := open(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return grm, nil
}

// openSnapshotStore returns a nil store when snapshots are disabled. The returned
// close func is always safe to call.
func openSnapshotStore(cfg *config.Config, l *zap.Logger) (storage.SnapshotStore, func(), error) {
	noop := func() {}
	if cfg.DatabaseConfig.Driver == config.DatabaseDriver_None {
		l.Sugar().Infow("Snapshot storage disabled")
		return nil, noop, nil
	}

	grm, err := openDatabase(cfg, l)
	if err != nil {
		return nil, noop, err
	}
	db, err := grm.DB()
	if err != nil {
		return nil, noop, err
	}
	closeDb := func() {
		if err := db.Close(); err != nil {
			l.Sugar().Errorw("Failed to close database", zap.Error(err))
		}
	}

	if err := migrations.NewMigrator(db, grm, l).MigrateAll(); err != nil {
		closeDb()
		return nil, noop, err
	}
	return sqlStore.NewSqlSnapshotStore(grm, l), closeDb, nil
}

func newStakingFetcher(cfg *config.Config, ms *metrics.MetricsSink, l *zap.Logger) (*stakingFetcher.StakingFetcher, func(), error) {
	if err := cfg.ValidateChainAccess(); err != nil {
		return nil, nil, err
	}

	cc, err := newContractCaller(cfg, l)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := openSnapshotStore(cfg, l)
	if err != nil {
		return nil, nil, err
	}

	f, err := stakingFetcher.NewStakingFetcher(cc, store, ms, cfg, l)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return f, closeStore, nil
}
