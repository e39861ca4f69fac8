package sqlite

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const SqliteInMemoryPath = "file::memory:?cache=shared"

// InMemoryPath returns a named, shared-cache in-memory database so several
// connections from the pool see the same data.
func InMemoryPath(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

type SqliteConfig struct {
	Path string
}

func NewSqlite(cfg *SqliteConfig, l *zap.Logger) gorm.Dialector {
	path := cfg.Path
	if path == "" {
		path = SqliteInMemoryPath
	}
	l.Sugar().Debugw("Opening sqlite database", zap.String("path", path))
	return sqlite.Open(path)
}

func NewGormSqliteFromSqlite(sqlite gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = WAL;`,
	}

	for _, pragma := range pragmas {
		res := db.Exec(pragma)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return db, nil
}
