// Package repository provides the data access layer.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/models"
)

// OtpRepository persists one-time verification codes. Single use is
// enforced in SQL: consuming a code is a conditional UPDATE on is_used,
// so two concurrent verifications of the same code cannot both win.
type OtpRepository struct {
	db *gorm.DB
}

// NewOtpRepository creates an OTP repository.
func NewOtpRepository(db *gorm.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

// Create inserts a verification code.
func (r *OtpRepository) Create(ctx context.Context, otp *models.OtpVerification) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

// CreateTx inserts a verification code inside an existing transaction.
func (r *OtpRepository) CreateTx(tx *gorm.DB, otp *models.OtpVerification) error {
	return tx.Create(otp).Error
}

// GetLatest fetches the newest code for a user and purpose, used or
// not. Callers check usability themselves.
func (r *OtpRepository) GetLatest(ctx context.Context, userID int64, verificationType string) (*models.OtpVerification, error) {
	var otp models.OtpVerification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND verification_type = ?", userID, verificationType).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// GetLatestTx is GetLatest inside an existing transaction.
func (r *OtpRepository) GetLatestTx(tx *gorm.DB, userID int64, verificationType string) (*models.OtpVerification, error) {
	var otp models.OtpVerification
	err := tx.
		Where("user_id = ? AND verification_type = ?", userID, verificationType).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// ConsumeIfUsable atomically marks a code used, provided it is still
// unused, unexpired and under the attempt cap. Returns true when this
// call won the code.
func (r *OtpRepository) ConsumeIfUsable(tx *gorm.DB, id int64, now time.Time) (bool, error) {
	result := tx.Model(&models.OtpVerification{}).
		Where("id = ? AND is_used = ? AND expire_at > ? AND attempt_count < ?",
			id, false, now, models.MaxOtpAttempts).
		Update("is_used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementAttempt bumps the failed attempt counter.
func (r *OtpRepository) IncrementAttempt(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

// InvalidateAll marks every unused code for a user and purpose as
// used. Called when a fresh code supersedes the old ones.
func (r *OtpRepository) InvalidateAll(tx *gorm.DB, userID int64, verificationType string) error {
	return tx.Model(&models.OtpVerification{}).
		Where("user_id = ? AND verification_type = ? AND is_used = ?", userID, verificationType, false).
		Update("is_used", true).Error
}

// DeleteExpiredBefore removes dead codes older than the cutoff.
func (r *OtpRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expire_at < ?", before).
		Delete(&models.OtpVerification{})
	return result.RowsAffected, result.Error
}
