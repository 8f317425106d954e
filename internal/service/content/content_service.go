// Package content serves training videos and sales kits: published
// lists for affiliates, full CRUD for admins.
package content

import (
	"context"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
)

// Service handles training content management.
type Service struct {
	videoRepo *repository.VideoRepository
	kitRepo   *repository.SalesKitRepository
}

// NewService creates a content service.
func NewService(videoRepo *repository.VideoRepository, kitRepo *repository.SalesKitRepository) *Service {
	return &Service{videoRepo: videoRepo, kitRepo: kitRepo}
}

// ListVideos returns published videos in display order.
func (s *Service) ListVideos(ctx context.Context, offset, limit int) ([]*models.TrainingVideo, int64, error) {
	return s.videoRepo.ListPublished(ctx, offset, limit)
}

// ListAllVideos returns every video for the admin table.
func (s *Service) ListAllVideos(ctx context.Context, offset, limit int) ([]*models.TrainingVideo, int64, error) {
	return s.videoRepo.List(ctx, offset, limit)
}

// VideoInput is the create/update payload for a training video.
type VideoInput struct {
	Title       string `json:"title" binding:"required"`
	VideoURL    string `json:"video_url" binding:"required"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	Status      *int8  `json:"status"`
}

// CreateVideo adds a training video.
func (s *Service) CreateVideo(ctx context.Context, input *VideoInput) (*models.TrainingVideo, error) {
	video := &models.TrainingVideo{
		Title:       input.Title,
		VideoURL:    input.VideoURL,
		Thumbnail:   input.Thumbnail,
		Description: input.Description,
		SortOrder:   input.SortOrder,
		Status:      models.ContentStatusPublished,
	}
	if input.Status != nil {
		video.Status = *input.Status
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return video, nil
}

// UpdateVideo edits a training video.
func (s *Service) UpdateVideo(ctx context.Context, id int64, input *VideoInput) (*models.TrainingVideo, error) {
	video, err := s.videoRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	video.Title = input.Title
	video.VideoURL = input.VideoURL
	video.Thumbnail = input.Thumbnail
	video.Description = input.Description
	video.SortOrder = input.SortOrder
	if input.Status != nil {
		video.Status = *input.Status
	}

	if err := s.videoRepo.Update(ctx, video); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return video, nil
}

// DeleteVideo removes a training video.
func (s *Service) DeleteVideo(ctx context.Context, id int64) error {
	if err := s.videoRepo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListKits returns published sales kits, optionally by category.
func (s *Service) ListKits(ctx context.Context, category string, offset, limit int) ([]*models.SalesKit, int64, error) {
	return s.kitRepo.ListPublished(ctx, category, offset, limit)
}

// ListAllKits returns every sales kit for the admin table.
func (s *Service) ListAllKits(ctx context.Context, offset, limit int) ([]*models.SalesKit, int64, error) {
	return s.kitRepo.List(ctx, offset, limit)
}

// KitInput is the create/update payload for a sales kit.
type KitInput struct {
	Title       string `json:"title" binding:"required"`
	FileURL     string `json:"file_url" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	Status      *int8  `json:"status"`
}

// CreateKit adds a sales kit.
func (s *Service) CreateKit(ctx context.Context, input *KitInput) (*models.SalesKit, error) {
	kit := &models.SalesKit{
		Title:       input.Title,
		FileURL:     input.FileURL,
		Category:    input.Category,
		Description: input.Description,
		SortOrder:   input.SortOrder,
		Status:      models.ContentStatusPublished,
	}
	if input.Status != nil {
		kit.Status = *input.Status
	}
	if err := s.kitRepo.Create(ctx, kit); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return kit, nil
}

// UpdateKit edits a sales kit.
func (s *Service) UpdateKit(ctx context.Context, id int64, input *KitInput) (*models.SalesKit, error) {
	kit, err := s.kitRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	kit.Title = input.Title
	kit.FileURL = input.FileURL
	kit.Category = input.Category
	kit.Description = input.Description
	kit.SortOrder = input.SortOrder
	if input.Status != nil {
		kit.Status = *input.Status
	}

	if err := s.kitRepo.Update(ctx, kit); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return kit, nil
}

// DeleteKit removes a sales kit.
func (s *Service) DeleteKit(ctx context.Context, id int64) error {
	if err := s.kitRepo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}
