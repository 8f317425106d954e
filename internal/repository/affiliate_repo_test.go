// Package repository affiliate repository unit tests
package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/models"
)

func setupAffiliateTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Affiliate{}, &models.User{})
	require.NoError(t, err)

	return db
}

func newTestAffiliate(db *gorm.DB, code string, remaining int64) *models.Affiliate {
	affiliate := &models.Affiliate{
		AffiliateCode:    code,
		UserID:           1,
		FullName:         "Nguyen Van A",
		Email:            "a@example.com",
		Type:             models.AffiliateTypePartner,
		ReceivedBalance:  remaining,
		RemainingBalance: remaining,
	}
	db.Create(affiliate)
	return affiliate
}

func TestAffiliateRepository_Create(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := &models.Affiliate{
		AffiliateCode: "AFF001",
		UserID:        1,
		FullName:      "Nguyen Van A",
		Email:         "a@example.com",
		Type:          models.AffiliateTypePartner,
	}

	err := repo.Create(ctx, affiliate)
	require.NoError(t, err)
	assert.NotZero(t, affiliate.ID)
}

func TestAffiliateRepository_GetByUserID(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 0)

	found, err := repo.GetByUserID(ctx, affiliate.UserID)
	require.NoError(t, err)
	assert.Equal(t, affiliate.ID, found.ID)

	_, err = repo.GetByUserID(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAffiliateRepository_GetByCode(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	newTestAffiliate(db, "AFF001", 0)

	found, err := repo.GetByCode(ctx, "AFF001")
	require.NoError(t, err)
	assert.Equal(t, "AFF001", found.AffiliateCode)
}

func TestAffiliateRepository_CreditContract(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 0)

	err := repo.CreditContract(db, affiliate.ID, 10_000_000, 300_000)
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.TotalContracts)
	assert.Equal(t, int64(10_000_000), found.ContractValue)
	assert.Equal(t, int64(300_000), found.ReceivedBalance)
	assert.Equal(t, int64(300_000), found.RemainingBalance)
	assert.Equal(t, int64(0), found.PaidBalance)
}

func TestAffiliateRepository_DebitWithdrawal(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 500_000)

	err := repo.DebitWithdrawal(db, affiliate.ID, 300_000)
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), found.RemainingBalance)
	assert.Equal(t, int64(300_000), found.PaidBalance)
	assert.Equal(t, found.ReceivedBalance, found.RemainingBalance+found.PaidBalance)
}

func TestAffiliateRepository_DebitWithdrawal_Insufficient(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 100_000)

	err := repo.DebitWithdrawal(db, affiliate.ID, 300_000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// balance untouched after the refused debit
	found, err := repo.GetByID(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), found.RemainingBalance)
	assert.Equal(t, int64(0), found.PaidBalance)
}

func TestAffiliateRepository_RefundWithdrawal(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 500_000)

	require.NoError(t, repo.DebitWithdrawal(db, affiliate.ID, 300_000))
	require.NoError(t, repo.RefundWithdrawal(db, affiliate.ID, 300_000))

	found, err := repo.GetByID(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), found.RemainingBalance)
	assert.Equal(t, int64(0), found.PaidBalance)
}

func TestAffiliateRepository_RefundWithdrawal_Overshoot(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)

	affiliate := newTestAffiliate(db, "AFF001", 500_000)

	err := repo.RefundWithdrawal(db, affiliate.ID, 300_000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAffiliateRepository_ApplyCommissionDelta(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	affiliate := newTestAffiliate(db, "AFF001", 300_000)
	db.Model(affiliate).Update("contract_value", 10_000_000)

	// contract corrected upward
	err := repo.ApplyCommissionDelta(db, affiliate.ID, 5_000_000, 150_000)
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000_000), found.ContractValue)
	assert.Equal(t, int64(450_000), found.ReceivedBalance)
	assert.Equal(t, int64(450_000), found.RemainingBalance)
}

func TestAffiliateRepository_ApplyCommissionDelta_NegativeRefused(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)

	affiliate := newTestAffiliate(db, "AFF001", 100_000)

	err := repo.ApplyCommissionDelta(db, affiliate.ID, -5_000_000, -150_000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAffiliateRepository_List(t *testing.T) {
	db := setupAffiliateTestDB(t)
	repo := NewAffiliateRepository(db)
	ctx := context.Background()

	newTestAffiliate(db, "AFF001", 0)
	db.Create(&models.Affiliate{
		AffiliateCode: "AFF002",
		UserID:        2,
		FullName:      "Tran Thi B",
		Email:         "b@example.com",
		Type:          models.AffiliateTypeSme,
	})

	list, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"type": models.AffiliateTypeSme})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "AFF002", list[0].AffiliateCode)
}
