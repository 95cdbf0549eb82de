package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lookstudioapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const (
	TypeExpireExport     = "studio:expire_export"
	TypePruneGenerations = "studio:prune_generations"
)

type ExpireExportPayload struct {
	ExportID uint `json:"export_id"`
}

type PruneGenerationsPayload struct {
	RetentionDays int `json:"retention_days"`
}

func NewExpireExportTask(exportID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpireExportPayload{ExportID: exportID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpireExport, payload), nil
}

func NewPruneGenerationsTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(PruneGenerationsPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePruneGenerations, payload), nil
}

// HandleExpireExportTask removes an exported image from the bucket once its
// retention is over. Already removed or unknown exports are skipped.
func HandleExpireExportTask(ctx context.Context, t *asynq.Task, store services.StudioStore, awsService services.AWSServiceProvider, urlCache services.URLCacheServiceProvider, bucketName string) error {
	var payload ExpireExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	fmt.Printf("[Export: %v] Expiring\n", payload.ExportID)

	export, err := store.GetExport(ctx, payload.ExportID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Printf("[Export: %v] Not found, nothing to expire\n", payload.ExportID)
		return nil
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Export: %v] Error on retrieving export: %w", payload.ExportID, err))
		return err
	}
	if export.RemovedAt != nil {
		return nil
	}
	if time.Now().Before(export.ExpiresAt) {
		fmt.Printf("[Export: %v] Not expired yet (expires at %s)\n", export.ID, export.ExpiresAt.Format(time.RFC3339))
		return nil
	}

	if err := awsService.DeleteObject(ctx, bucketName, export.ObjectKey); err != nil {
		sentry.CaptureException(fmt.Errorf("[Export: %v] Error on deleting %s: %w", export.ID, export.ObjectKey, err))
		return err
	}
	if urlCache != nil {
		if err := urlCache.Forget(ctx, export.ObjectKey); err != nil {
			fmt.Printf("[Export: %v] Failed to drop cached link: %v\n", export.ID, err)
		}
	}
	if err := store.MarkExportRemoved(ctx, export.ID); err != nil {
		sentry.CaptureException(fmt.Errorf("[Export: %v] Error on marking export removed: %w", export.ID, err))
		return err
	}
	fmt.Printf("[Export: %v] Removed %s\n", export.ID, export.ObjectKey)
	return nil
}

// HandlePruneGenerationsTask deletes audit records older than the retention.
func HandlePruneGenerationsTask(ctx context.Context, t *asynq.Task, store services.StudioStore) error {
	var payload PruneGenerationsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d: %w", payload.RetentionDays, asynq.SkipRetry)
	}
	cutoff := time.Now().AddDate(0, 0, -payload.RetentionDays)
	removed, err := store.PruneGenerations(ctx, cutoff)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Queue] Error on pruning generation records: %w", err))
		return err
	}
	fmt.Printf("[Queue] Pruned %d generation records older than %s\n", removed, cutoff.Format(time.RFC3339))
	return nil
}
