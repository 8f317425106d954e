// Package repository provides the data access layer.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/models"
)

// AffiliateRepository persists affiliate profiles and their balance
// ledgers. Every ledger mutation is a conditional UPDATE so concurrent
// writers cannot drive a balance negative; callers run them inside a
// transaction together with the row that justifies the movement.
type AffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository creates an affiliate repository.
func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

// Create inserts an affiliate.
func (r *AffiliateRepository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Create(affiliate).Error
}

// CreateTx inserts an affiliate inside an existing transaction.
func (r *AffiliateRepository) CreateTx(tx *gorm.DB, affiliate *models.Affiliate) error {
	return tx.Create(affiliate).Error
}

// GetByID fetches an affiliate by ID.
func (r *AffiliateRepository) GetByID(ctx context.Context, id int64) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).First(&affiliate, id).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDTx fetches an affiliate by ID inside an existing transaction.
func (r *AffiliateRepository) GetByIDTx(tx *gorm.DB, id int64) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := tx.First(&affiliate, id).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetByUserID fetches the affiliate profile of a login account.
func (r *AffiliateRepository) GetByUserID(ctx context.Context, userID int64) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode fetches an affiliate by its referral code.
func (r *AffiliateRepository) GetByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).Where("affiliate_code = ?", code).First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// ExistsCode reports whether a referral code is already taken.
func (r *AffiliateRepository) ExistsCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Affiliate{}).Where("affiliate_code = ?", code).Count(&count).Error
	return count > 0, err
}

// Update saves the full affiliate row.
func (r *AffiliateRepository) Update(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Save(affiliate).Error
}

// UpdateProfile updates the mutable profile fields only. Ledger columns
// are never touched here.
func (r *AffiliateRepository) UpdateProfile(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns affiliates matching the filters, newest first.
func (r *AffiliateRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Affiliate, int64, error) {
	var affiliates []*models.Affiliate
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Affiliate{})

	if affType, ok := filters["type"].(string); ok && affType != "" {
		query = query.Where("type = ?", affType)
	}
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("full_name LIKE ? OR email LIKE ? OR affiliate_code LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&affiliates).Error; err != nil {
		return nil, 0, err
	}

	return affiliates, total, nil
}

// CreditContract credits a newly signed contract: commission goes to
// received and remaining, the contract value and count are accumulated.
// Must run inside the transaction that also updates the customer row.
func (r *AffiliateRepository) CreditContract(tx *gorm.DB, id int64, contractValue, commission int64) error {
	result := tx.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_contracts":   gorm.Expr("total_contracts + 1"),
			"contract_value":    gorm.Expr("contract_value + ?", contractValue),
			"received_balance":  gorm.Expr("received_balance + ?", commission),
			"remaining_balance": gorm.Expr("remaining_balance + ?", commission),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApplyCommissionDelta adjusts received and remaining balances by the
// difference between a recalculated commission and the stored one.
// A negative delta is refused when it would drive remaining below zero.
func (r *AffiliateRepository) ApplyCommissionDelta(tx *gorm.DB, id int64, contractValueDelta, commissionDelta int64) error {
	query := tx.Model(&models.Affiliate{}).Where("id = ?", id)
	if commissionDelta < 0 {
		query = query.Where("remaining_balance >= ?", -commissionDelta)
	}
	result := query.Updates(map[string]interface{}{
		"contract_value":    gorm.Expr("contract_value + ?", contractValueDelta),
		"received_balance":  gorm.Expr("received_balance + ?", commissionDelta),
		"remaining_balance": gorm.Expr("remaining_balance + ?", commissionDelta),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DebitWithdrawal moves amount from remaining to paid. The guard on
// remaining_balance makes concurrent over-withdrawal impossible; zero
// rows affected means insufficient balance.
func (r *AffiliateRepository) DebitWithdrawal(tx *gorm.DB, id int64, amount int64) error {
	result := tx.Model(&models.Affiliate{}).
		Where("id = ? AND remaining_balance >= ?", id, amount).
		Updates(map[string]interface{}{
			"remaining_balance": gorm.Expr("remaining_balance - ?", amount),
			"paid_balance":      gorm.Expr("paid_balance + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RefundWithdrawal reverses a previous DebitWithdrawal when a payout is
// rejected or cancelled.
func (r *AffiliateRepository) RefundWithdrawal(tx *gorm.DB, id int64, amount int64) error {
	result := tx.Model(&models.Affiliate{}).
		Where("id = ? AND paid_balance >= ?", id, amount).
		Updates(map[string]interface{}{
			"remaining_balance": gorm.Expr("remaining_balance + ?", amount),
			"paid_balance":      gorm.Expr("paid_balance - ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByType returns the number of affiliates per type.
func (r *AffiliateRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Type  string `gorm:"column:type"`
		Count int64  `gorm:"column:count"`
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Affiliate{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
