// Package repository provides the data access layer.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/models"
)

// CustomerRepository persists referred customers.
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a customer repository.
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a referred customer.
func (r *CustomerRepository) Create(ctx context.Context, customer *models.ReferredCustomer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// GetByID fetches a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.ReferredCustomer, error) {
	var customer models.ReferredCustomer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByIDTx fetches a customer by ID inside an existing transaction.
func (r *CustomerRepository) GetByIDTx(tx *gorm.DB, id int64) (*models.ReferredCustomer, error) {
	var customer models.ReferredCustomer
	err := tx.First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByAffiliateAndID fetches a customer owned by the given affiliate.
func (r *CustomerRepository) GetByAffiliateAndID(ctx context.Context, affiliateID, id int64) (*models.ReferredCustomer, error) {
	var customer models.ReferredCustomer
	err := r.db.WithContext(ctx).
		Where("id = ? AND affiliate_id = ?", id, affiliateID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListByAffiliate returns an affiliate's customers, newest first.
func (r *CustomerRepository) ListByAffiliate(ctx context.Context, affiliateID int64, offset, limit int, status string) ([]*models.ReferredCustomer, int64, error) {
	var customers []*models.ReferredCustomer
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReferredCustomer{}).Where("affiliate_id = ?", affiliateID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

// List returns customers across all affiliates, newest first.
func (r *CustomerRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ReferredCustomer, int64, error) {
	var customers []*models.ReferredCustomer
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReferredCustomer{})

	if affiliateID, ok := filters["affiliate_id"].(int64); ok && affiliateID > 0 {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		query = query.Where("customer_name LIKE ?", "%"+keyword+"%")
	}
	if startTime, ok := filters["start_time"].(time.Time); ok {
		query = query.Where("created_at >= ?", startTime)
	}
	if endTime, ok := filters["end_time"].(time.Time); ok {
		query = query.Where("created_at <= ?", endTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Affiliate").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

// Update saves the full customer row.
func (r *CustomerRepository) Update(ctx context.Context, customer *models.ReferredCustomer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// UpdateTx saves the full customer row inside an existing transaction.
func (r *CustomerRepository) UpdateTx(tx *gorm.DB, customer *models.ReferredCustomer) error {
	return tx.Save(customer).Error
}

// MarkSigned records the signed contract on the customer row. The guard
// on the current status makes the credit idempotent: a second signing
// attempt affects zero rows.
func (r *CustomerRepository) MarkSigned(tx *gorm.DB, id int64, contractValue, commission int64, contractDate time.Time) error {
	result := tx.Model(&models.ReferredCustomer{}).
		Where("id = ? AND status <> ?", id, models.CustomerStatusContractSigned).
		Updates(map[string]interface{}{
			"status":         models.CustomerStatusContractSigned,
			"contract_value": contractValue,
			"commission":     commission,
			"contract_date":  contractDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a customer row.
func (r *CustomerRepository) Delete(ctx context.Context, affiliateID, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND affiliate_id = ?", id, affiliateID).
		Delete(&models.ReferredCustomer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus returns the number of an affiliate's customers per
// pipeline status.
func (r *CustomerRepository) CountByStatus(ctx context.Context, affiliateID int64) (map[string]int64, error) {
	type row struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.ReferredCustomer{}).
		Select("status, COUNT(*) as count").
		Where("affiliate_id = ?", affiliateID).
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
