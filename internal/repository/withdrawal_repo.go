// Package repository provides the data access layer.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/models"
)

// WithdrawalRepository persists withdrawal requests.
type WithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository creates a withdrawal repository.
func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.WithdrawalHistory) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

// CreateTx inserts a withdrawal request inside an existing transaction.
func (r *WithdrawalRepository) CreateTx(tx *gorm.DB, withdrawal *models.WithdrawalHistory) error {
	return tx.Create(withdrawal).Error
}

// GetByID fetches a withdrawal by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalHistory, error) {
	var withdrawal models.WithdrawalHistory
	err := r.db.WithContext(ctx).First(&withdrawal, id).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// GetByIDTx fetches a withdrawal by ID inside an existing transaction.
func (r *WithdrawalRepository) GetByIDTx(tx *gorm.DB, id int64) (*models.WithdrawalHistory, error) {
	var withdrawal models.WithdrawalHistory
	err := tx.First(&withdrawal, id).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// GetByIDWithRelations fetches a withdrawal with the affiliate and
// operator preloaded.
func (r *WithdrawalRepository) GetByIDWithRelations(ctx context.Context, id int64) (*models.WithdrawalHistory, error) {
	var withdrawal models.WithdrawalHistory
	err := r.db.WithContext(ctx).
		Preload("Affiliate").
		Preload("Operator").
		First(&withdrawal, id).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// GetByWithdrawalNo fetches a withdrawal by its unique number.
func (r *WithdrawalRepository) GetByWithdrawalNo(ctx context.Context, withdrawalNo string) (*models.WithdrawalHistory, error) {
	var withdrawal models.WithdrawalHistory
	err := r.db.WithContext(ctx).Where("withdrawal_no = ?", withdrawalNo).First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// GetByAffiliateAndRequestDate fetches the most recent withdrawal an
// affiliate filed at the exact request timestamp. Kept for older
// clients that address rows by (affiliate, request_date).
func (r *WithdrawalRepository) GetByAffiliateAndRequestDate(ctx context.Context, affiliateID int64, requestDate time.Time) (*models.WithdrawalHistory, error) {
	var withdrawal models.WithdrawalHistory
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND request_date = ?", affiliateID, requestDate).
		Order("id DESC").
		First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// ListByAffiliate returns an affiliate's withdrawals, newest first.
func (r *WithdrawalRepository) ListByAffiliate(ctx context.Context, affiliateID int64, offset, limit int, status string) ([]*models.WithdrawalHistory, int64, error) {
	var withdrawals []*models.WithdrawalHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{}).Where("affiliate_id = ?", affiliateID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&withdrawals).Error; err != nil {
		return nil, 0, err
	}

	return withdrawals, total, nil
}

// List returns withdrawals matching the filters, newest first.
func (r *WithdrawalRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.WithdrawalHistory, int64, error) {
	var withdrawals []*models.WithdrawalHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{})

	if affiliateID, ok := filters["affiliate_id"].(int64); ok && affiliateID > 0 {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if startTime, ok := filters["start_time"].(time.Time); ok {
		query = query.Where("request_date >= ?", startTime)
	}
	if endTime, ok := filters["end_time"].(time.Time); ok {
		query = query.Where("request_date <= ?", endTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Affiliate").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&withdrawals).Error; err != nil {
		return nil, 0, err
	}

	return withdrawals, total, nil
}

// UpdateStatusFrom moves a withdrawal from one status to another,
// applying extra column updates in the same statement. The guard on the
// current status serializes concurrent transitions: zero rows affected
// means the row was not in the expected state.
func (r *WithdrawalRepository) UpdateStatusFrom(tx *gorm.DB, id int64, from, to string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status": to,
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := tx.Model(&models.WithdrawalHistory{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SumRequestedInWindow returns the total amount an affiliate has
// requested inside the window, ignoring rejected and cancelled rows.
// Used for the daily withdrawal limit.
func (r *WithdrawalRepository) SumRequestedInWindow(ctx context.Context, affiliateID int64, start, end time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("affiliate_id = ? AND request_date >= ? AND request_date < ?", affiliateID, start, end).
		Where("status NOT IN ?", []string{models.WithdrawalStatusRejected, models.WithdrawalStatusCancelled}).
		Scan(&sum).Error
	return sum, err
}

// SumCompletedByAffiliate returns the total net amount paid out to an
// affiliate.
func (r *WithdrawalRepository) SumCompletedByAffiliate(ctx context.Context, affiliateID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{}).
		Select("COALESCE(SUM(net_amount), 0)").
		Where("affiliate_id = ? AND status = ?", affiliateID, models.WithdrawalStatusCompleted).
		Scan(&sum).Error
	return sum, err
}

// CountByStatus returns the number of withdrawals per status.
func (r *WithdrawalRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ExistsWithdrawalNo reports whether a withdrawal number is taken.
func (r *WithdrawalRepository) ExistsWithdrawalNo(ctx context.Context, withdrawalNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalHistory{}).Where("withdrawal_no = ?", withdrawalNo).Count(&count).Error
	return count > 0, err
}
