package cmd

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func Test_GormOrClose(t *testing.T) {
	t.Run("Closes the connection when gorm fails to open", func(t *testing.T) {
		db, err := sql.Open("sqlite3", ":memory:")
		assert.Nil(t, err)

		grm, err := gormOrClose(db, func(*sql.DB) (*gorm.DB, error) {
			return nil, errors.New("unsupported server version")
		})
		assert.Nil(t, grm)
		assert.NotNil(t, err)
		assert.NotNil(t, db.Ping())
	})
	t.Run("Leaves the connection open on success", func(t *testing.T) {
		db, err := sql.Open("sqlite3", ":memory:")
		assert.Nil(t, err)
		defer db.Close()

		grm, err := gormOrClose(db, func(*sql.DB) (*gorm.DB, error) {
			return &gorm.DB{}, nil
		})
		assert.NotNil(t, grm)
		assert.Nil(t, err)
		assert.Nil(t, db.Ping())
	})
}
