package sqlite

import (
	"github.com/finthetix/sidecar/internal/tests"
	"github.com/finthetix/sidecar/pkg/sqlite"
	"github.com/finthetix/sidecar/pkg/storage/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetInMemorySqliteDatabaseConnection returns a fresh, fully migrated database that is
// private to the caller.
func GetInMemorySqliteDatabaseConnection(l *zap.Logger) (*gorm.DB, error) {
	name, err := tests.GenerateTestDbName()
	if err != nil {
		return nil, err
	}
	grm, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewSqlite(&sqlite.SqliteConfig{
		Path: sqlite.InMemoryPath(name),
	}, l))
	if err != nil {
		return nil, err
	}

	db, err := grm.DB()
	if err != nil {
		return nil, err
	}
	if err := migrations.NewMigrator(db, grm, l).MigrateAll(); err != nil {
		return nil, err
	}
	return grm, nil
}

func TeardownSqliteDatabase(grm *gorm.DB) {
	if db, err := grm.DB(); err == nil {
		_ = db.Close()
	}
}
