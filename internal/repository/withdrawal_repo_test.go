// Package repository withdrawal repository unit tests
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/models"
)

func setupWithdrawalTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.WithdrawalHistory{}, &models.Affiliate{}, &models.User{})
	require.NoError(t, err)

	return db
}

func newTestWithdrawal(db *gorm.DB, no string, affiliateID, amount int64, status string, requestDate time.Time) *models.WithdrawalHistory {
	w := &models.WithdrawalHistory{
		WithdrawalNo: no,
		AffiliateID:  affiliateID,
		Amount:       amount,
		NetAmount:    amount,
		Status:       status,
		RequestDate:  requestDate,
	}
	db.Create(w)
	return w
}

func TestWithdrawalRepository_Create(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	withdrawal := &models.WithdrawalHistory{
		WithdrawalNo: "WD20260829000001",
		AffiliateID:  1,
		Amount:       3_000_000,
		TaxAmount:    300_000,
		NetAmount:    2_700_000,
		HasTax:       true,
		Status:       models.WithdrawalStatusPending,
		RequestDate:  time.Now(),
	}

	err := repo.Create(ctx, withdrawal)
	require.NoError(t, err)
	assert.NotZero(t, withdrawal.ID)
}

func TestWithdrawalRepository_GetByWithdrawalNo(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	newTestWithdrawal(db, "WD20260829000001", 1, 1_000_000, models.WithdrawalStatusPending, time.Now())

	found, err := repo.GetByWithdrawalNo(ctx, "WD20260829000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), found.Amount)

	_, err = repo.GetByWithdrawalNo(ctx, "WD-NOPE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWithdrawalRepository_GetByAffiliateAndRequestDate(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	requestDate := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	newTestWithdrawal(db, "WD1", 1, 1_000_000, models.WithdrawalStatusPending, requestDate)

	found, err := repo.GetByAffiliateAndRequestDate(ctx, 1, requestDate)
	require.NoError(t, err)
	assert.Equal(t, "WD1", found.WithdrawalNo)
}

func TestWithdrawalRepository_UpdateStatusFrom(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	w := newTestWithdrawal(db, "WD1", 1, 1_000_000, models.WithdrawalStatusPending, time.Now())

	operator := int64(9)
	err := repo.UpdateStatusFrom(db, w.ID, models.WithdrawalStatusPending, models.WithdrawalStatusProcessing, map[string]interface{}{
		"operator_id": operator,
	})
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusProcessing, found.Status)
	require.NotNil(t, found.OperatorID)
	assert.Equal(t, operator, *found.OperatorID)

	// a second transition from the old state loses
	err = repo.UpdateStatusFrom(db, w.ID, models.WithdrawalStatusPending, models.WithdrawalStatusProcessing, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWithdrawalRepository_SumRequestedInWindow(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	newTestWithdrawal(db, "WD1", 1, 5_000_000, models.WithdrawalStatusPending, day.Add(8*time.Hour))
	newTestWithdrawal(db, "WD2", 1, 7_000_000, models.WithdrawalStatusProcessing, day.Add(10*time.Hour))
	// rejected and cancelled rows release their quota
	newTestWithdrawal(db, "WD3", 1, 4_000_000, models.WithdrawalStatusRejected, day.Add(11*time.Hour))
	newTestWithdrawal(db, "WD4", 1, 2_000_000, models.WithdrawalStatusCancelled, day.Add(12*time.Hour))
	// outside the window
	newTestWithdrawal(db, "WD5", 1, 9_000_000, models.WithdrawalStatusPending, day.Add(-2*time.Hour))
	// another affiliate
	newTestWithdrawal(db, "WD6", 2, 9_000_000, models.WithdrawalStatusPending, day.Add(9*time.Hour))

	sum, err := repo.SumRequestedInWindow(ctx, 1, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(12_000_000), sum)
}

func TestWithdrawalRepository_ListByAffiliate(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	newTestWithdrawal(db, "WD1", 1, 1_000_000, models.WithdrawalStatusPending, time.Now())
	newTestWithdrawal(db, "WD2", 1, 2_000_000, models.WithdrawalStatusCompleted, time.Now())
	newTestWithdrawal(db, "WD3", 2, 3_000_000, models.WithdrawalStatusPending, time.Now())

	list, total, err := repo.ListByAffiliate(ctx, 1, 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "WD2", list[0].WithdrawalNo) // newest first

	list, total, err = repo.ListByAffiliate(ctx, 1, 0, 10, models.WithdrawalStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "WD2", list[0].WithdrawalNo)
}

func TestWithdrawalRepository_SumCompletedByAffiliate(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	w := newTestWithdrawal(db, "WD1", 1, 3_000_000, models.WithdrawalStatusCompleted, time.Now())
	db.Model(w).Updates(map[string]interface{}{"tax_amount": 300_000, "net_amount": 2_700_000})
	newTestWithdrawal(db, "WD2", 1, 1_000_000, models.WithdrawalStatusPending, time.Now())

	sum, err := repo.SumCompletedByAffiliate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2_700_000), sum)
}
