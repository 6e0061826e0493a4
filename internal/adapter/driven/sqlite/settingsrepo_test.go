package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	err := repo.Set(ctx, "webhook_url", "https://hooks.example.com/a")
	require.NoError(t, err)

	val, err := repo.Get(ctx, "webhook_url")
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/a", val)
}

func TestSettingsRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)

	val, err := repo.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestSettingsRepo_SetOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "webhook_url", "old-value"))
	require.NoError(t, repo.Set(ctx, "webhook_url", "new-value"))

	val, err := repo.Get(ctx, "webhook_url")
	require.NoError(t, err)
	assert.Equal(t, "new-value", val)
}

func TestSettingsRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "webhook_url", "value"))
	require.NoError(t, repo.Delete(ctx, "webhook_url"))

	val, err := repo.Get(ctx, "webhook_url")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestSettingsRepo_DeleteNonexistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)

	err := repo.Delete(context.Background(), "nonexistent")
	assert.NoError(t, err, "deleting a nonexistent setting should not error")
}
