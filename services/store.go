package services

import (
	"context"
	"time"

	"lookstudioapi/models"

	"gorm.io/gorm"
)

// StudioStore persists what outlives a session: the generation audit log
// and exported images.
type StudioStore interface {
	RecordGeneration(ctx context.Context, record *models.GenerationRecord) error
	CreateExport(ctx context.Context, export *models.ExportRecord) error
	GetExport(ctx context.Context, id uint) (*models.ExportRecord, error)
	MarkExportRemoved(ctx context.Context, id uint) error
	PruneGenerations(ctx context.Context, olderThan time.Time) (int64, error)
}

type GormStudioStore struct {
	DB *gorm.DB
}

func NewGormStudioStore(db *gorm.DB) *GormStudioStore {
	return &GormStudioStore{DB: db}
}

func (s *GormStudioStore) RecordGeneration(ctx context.Context, record *models.GenerationRecord) error {
	return s.DB.WithContext(ctx).Create(record).Error
}

func (s *GormStudioStore) CreateExport(ctx context.Context, export *models.ExportRecord) error {
	return s.DB.WithContext(ctx).Create(export).Error
}

func (s *GormStudioStore) GetExport(ctx context.Context, id uint) (*models.ExportRecord, error) {
	var export models.ExportRecord
	if err := s.DB.WithContext(ctx).First(&export, id).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (s *GormStudioStore) MarkExportRemoved(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Model(&models.ExportRecord{}).
		Where("id = ?", id).
		Update("removed_at", time.Now()).Error
}

func (s *GormStudioStore) PruneGenerations(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("created_at < ?", olderThan).Delete(&models.GenerationRecord{})
	return res.RowsAffected, res.Error
}
