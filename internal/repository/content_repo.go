// Package repository provides the data access layer.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/models"
)

// VideoRepository persists training videos.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a training video repository.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a video.
func (r *VideoRepository) Create(ctx context.Context, video *models.TrainingVideo) error {
	return r.db.WithContext(ctx).Create(video).Error
}

// GetByID fetches a video by ID.
func (r *VideoRepository) GetByID(ctx context.Context, id int64) (*models.TrainingVideo, error) {
	var video models.TrainingVideo
	err := r.db.WithContext(ctx).First(&video, id).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// ListPublished returns published videos in display order.
func (r *VideoRepository) ListPublished(ctx context.Context, offset, limit int) ([]*models.TrainingVideo, int64, error) {
	var videos []*models.TrainingVideo
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TrainingVideo{}).
		Where("status = ?", models.ContentStatusPublished)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sort_order ASC, id DESC").Offset(offset).Limit(limit).Find(&videos).Error; err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// List returns all videos for admin management, display order first.
func (r *VideoRepository) List(ctx context.Context, offset, limit int) ([]*models.TrainingVideo, int64, error) {
	var videos []*models.TrainingVideo
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TrainingVideo{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sort_order ASC, id DESC").Offset(offset).Limit(limit).Find(&videos).Error; err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// Update saves the full video row.
func (r *VideoRepository) Update(ctx context.Context, video *models.TrainingVideo) error {
	return r.db.WithContext(ctx).Save(video).Error
}

// Delete removes a video.
func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.TrainingVideo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SalesKitRepository persists sales kit documents.
type SalesKitRepository struct {
	db *gorm.DB
}

// NewSalesKitRepository creates a sales kit repository.
func NewSalesKitRepository(db *gorm.DB) *SalesKitRepository {
	return &SalesKitRepository{db: db}
}

// Create inserts a sales kit.
func (r *SalesKitRepository) Create(ctx context.Context, kit *models.SalesKit) error {
	return r.db.WithContext(ctx).Create(kit).Error
}

// GetByID fetches a sales kit by ID.
func (r *SalesKitRepository) GetByID(ctx context.Context, id int64) (*models.SalesKit, error) {
	var kit models.SalesKit
	err := r.db.WithContext(ctx).First(&kit, id).Error
	if err != nil {
		return nil, err
	}
	return &kit, nil
}

// ListPublished returns published kits in display order, optionally
// filtered by category.
func (r *SalesKitRepository) ListPublished(ctx context.Context, category string, offset, limit int) ([]*models.SalesKit, int64, error) {
	var kits []*models.SalesKit
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SalesKit{}).
		Where("status = ?", models.ContentStatusPublished)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sort_order ASC, id DESC").Offset(offset).Limit(limit).Find(&kits).Error; err != nil {
		return nil, 0, err
	}

	return kits, total, nil
}

// List returns all kits for admin management.
func (r *SalesKitRepository) List(ctx context.Context, offset, limit int) ([]*models.SalesKit, int64, error) {
	var kits []*models.SalesKit
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SalesKit{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sort_order ASC, id DESC").Offset(offset).Limit(limit).Find(&kits).Error; err != nil {
		return nil, 0, err
	}

	return kits, total, nil
}

// Update saves the full sales kit row.
func (r *SalesKitRepository) Update(ctx context.Context, kit *models.SalesKit) error {
	return r.db.WithContext(ctx).Save(kit).Error
}

// Delete removes a sales kit.
func (r *SalesKitRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.SalesKit{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
