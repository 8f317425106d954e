package models

import (
	"time"
)

// Content row statuses.
const (
	ContentStatusHidden    = 0
	ContentStatusPublished = 1
)

// TrainingVideo is an admin-managed tutorial video shown to affiliates.
type TrainingVideo struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	VideoURL    string    `gorm:"type:varchar(500);not null" json:"video_url"`
	Thumbnail   string    `gorm:"type:varchar(500)" json:"thumbnail"`
	Description string    `gorm:"type:varchar(1000)" json:"description"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	Status      int8      `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default table name.
func (TrainingVideo) TableName() string {
	return "training_videos"
}

// SalesKit is an admin-managed sales document (brochure, price list, policy
// page) downloadable by affiliates.
type SalesKit struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	FileURL     string    `gorm:"type:varchar(500);not null" json:"file_url"`
	Category    string    `gorm:"type:varchar(50)" json:"category"`
	Description string    `gorm:"type:varchar(1000)" json:"description"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	Status      int8      `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default table name.
func (SalesKit) TableName() string {
	return "sales_kits"
}
