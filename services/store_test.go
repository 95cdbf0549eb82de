package services

import (
	"context"
	"os"
	"testing"
	"time"

	"lookstudioapi/dbhelper"
	"lookstudioapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a local postgres only when STUDIO_DB_TESTS is set.
func setupStore(t *testing.T) *GormStudioStore {
	t.Helper()
	if os.Getenv("STUDIO_DB_TESTS") == "" {
		t.Skip("STUDIO_DB_TESTS not set")
	}
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	cleaner()
	t.Cleanup(cleaner)
	return NewGormStudioStore(db)
}

func TestGormStudioStoreExports(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	export := &models.ExportRecord{
		SessionID: "session-1",
		ObjectKey: "exports/session-1/a/styled-me.png",
		FileName:  "styled-me.png",
		MIMEType:  "image/png",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.CreateExport(ctx, export))
	require.NotZero(t, export.ID)

	require.NoError(t, store.MarkExportRemoved(ctx, export.ID))
	stored, err := store.GetExport(ctx, export.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.RemovedAt)
}

func TestGormStudioStorePruneGenerations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := &models.GenerationRecord{SessionID: "s", Kind: models.KindOutfit, Status: "completed", Contexts: []string{"beach"}}
	require.NoError(t, store.RecordGeneration(ctx, old))
	store.DB.Model(old).UpdateColumn("created_at", time.Now().AddDate(0, 0, -40))
	fresh := &models.GenerationRecord{SessionID: "s", Kind: models.KindAngles, Status: "completed"}
	require.NoError(t, store.RecordGeneration(ctx, fresh))

	removed, err := store.PruneGenerations(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
