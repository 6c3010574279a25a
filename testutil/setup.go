package testutil

import (
	"testing"

	"github.com/fitquest/server/cache"
	"github.com/fitquest/server/cache/local"
	dbsqlite "github.com/fitquest/server/db/sqlite"
	"github.com/fitquest/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbsqlite.OpenMemory("", gormlogger.Default.LogMode(gormlogger.Silent))
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates an in-process cache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := local.NewCache(local.Config{})
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(c.Close)
	return c
}
