package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/test"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expiredExport(t *testing.T, store *test.StoreMock, expiresAt time.Time) *models.ExportRecord {
	t.Helper()
	export := &models.ExportRecord{
		SessionID: "session-1",
		ObjectKey: "exports/session-1/styled-me.png",
		FileName:  "styled-me.png",
		MIMEType:  "image/png",
		ExpiresAt: expiresAt,
	}
	require.NoError(t, store.CreateExport(context.Background(), export))
	return export
}

func TestNewExpireExportTask(t *testing.T) {
	task, err := NewExpireExportTask(42)
	require.NoError(t, err)
	assert.Equal(t, TypeExpireExport, task.Type())

	var payload ExpireExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(42), payload.ExportID)
}

func TestHandleExpireExportTaskRemovesObject(t *testing.T) {
	store := test.NewStoreMock()
	aws := &test.AWSProviderMock{}
	cache := &test.URLCacheMock{}
	export := expiredExport(t, store, time.Now().Add(-time.Minute))

	task, _ := NewExpireExportTask(export.ID)
	require.NoError(t, HandleExpireExportTask(context.Background(), task, store, aws, cache, "bucket"))

	assert.Equal(t, []string{export.ObjectKey}, aws.Deleted)
	assert.Equal(t, []string{export.ObjectKey}, cache.Forgotten)
	stored, _ := store.GetExport(context.Background(), export.ID)
	assert.NotNil(t, stored.RemovedAt)

	// second delivery is a no-op
	require.NoError(t, HandleExpireExportTask(context.Background(), task, store, aws, cache, "bucket"))
	assert.Len(t, aws.Deleted, 1)
}

func TestHandleExpireExportTaskKeepsUnexpired(t *testing.T) {
	store := test.NewStoreMock()
	aws := &test.AWSProviderMock{}
	export := expiredExport(t, store, time.Now().Add(time.Hour))

	task, _ := NewExpireExportTask(export.ID)
	require.NoError(t, HandleExpireExportTask(context.Background(), task, store, aws, nil, "bucket"))
	assert.Empty(t, aws.Deleted)
}

func TestHandleExpireExportTaskUnknownExport(t *testing.T) {
	task, _ := NewExpireExportTask(999)
	err := HandleExpireExportTask(context.Background(), task, test.NewStoreMock(), &test.AWSProviderMock{}, nil, "bucket")
	assert.NoError(t, err)
}

func TestHandleExpireExportTaskDeleteFailureRetries(t *testing.T) {
	store := test.NewStoreMock()
	aws := &test.AWSProviderMock{FailWith: errors.New("r2 down")}
	export := expiredExport(t, store, time.Now().Add(-time.Minute))

	task, _ := NewExpireExportTask(export.ID)
	err := HandleExpireExportTask(context.Background(), task, store, aws, nil, "bucket")
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	stored, _ := store.GetExport(context.Background(), export.ID)
	assert.Nil(t, stored.RemovedAt)
}

func TestHandleExpireExportTaskBadPayload(t *testing.T) {
	task := asynq.NewTask(TypeExpireExport, []byte("{"))
	err := HandleExpireExportTask(context.Background(), task, test.NewStoreMock(), &test.AWSProviderMock{}, nil, "bucket")
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePruneGenerationsTask(t *testing.T) {
	store := test.NewStoreMock()
	store.Generations = []models.GenerationRecord{
		{JsonModel: models.JsonModel{ID: 1, CreatedAt: time.Now().AddDate(0, 0, -40)}, Kind: models.KindOutfit},
		{JsonModel: models.JsonModel{ID: 2, CreatedAt: time.Now().AddDate(0, 0, -1)}, Kind: models.KindAngles},
	}

	task, err := NewPruneGenerationsTask(30)
	require.NoError(t, err)
	assert.Equal(t, TypePruneGenerations, task.Type())
	require.NoError(t, HandlePruneGenerationsTask(context.Background(), task, store))

	records := store.GenerationRecords()
	require.Len(t, records, 1)
	assert.Equal(t, uint(2), records[0].ID)
	require.Len(t, store.Pruned, 1)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), store.Pruned[0], time.Minute)
}

func TestHandlePruneGenerationsTaskRejectsZeroRetention(t *testing.T) {
	task, _ := NewPruneGenerationsTask(0)
	err := HandlePruneGenerationsTask(context.Background(), task, test.NewStoreMock())
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
