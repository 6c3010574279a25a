package app

import (
	"context"
	"testing"

	"github.com/fitquest/server/config"
	"github.com/fitquest/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Mode = "sqlite_memory"
	ctx := context.Background()

	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	var n int64
	require.NoError(t, a.DB.Model(&model.QuestTemplate{}).Count(&n).Error)
	assert.Positive(t, n, "default catalog synced")

	assert.NotNil(t, a.Quests)
	assert.NotNil(t, a.Adaptation)
	assert.Equal(t, int64(8), int64(a.Selector.Tables().UnlockDays))
}

func TestNew_BadCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Mode = "sqlite_memory"
	cfg.Catalog.Path = t.TempDir() + "/missing.yaml"

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
