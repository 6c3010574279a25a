package db

import (
	"path/filepath"
	"testing"

	"github.com/fitquest/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "oracle"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown mode")
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Mode: ModeSQLiteMemory}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, db.Exec("INSERT INTO t (id) VALUES (1)").Error)
	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fitquest.db")
	db, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: path, LogQueries: true}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, db.Exec("SELECT 1").Error)
}
