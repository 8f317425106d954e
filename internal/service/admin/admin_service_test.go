package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
)

func setupAdminService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.ReferredCustomer{},
		&models.WithdrawalHistory{},
	))

	svc := NewService(
		repository.NewAffiliateRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewWithdrawalRepository(db),
		repository.NewUserRepository(db),
		nil,
	)
	return svc, db
}

func seedAdminAffiliate(t *testing.T, db *gorm.DB, code, affType string) *models.Affiliate {
	user := &models.User{
		Email:        code + "@example.com",
		PasswordHash: "x",
		FullName:     "CTV " + code,
		Role:         models.RoleAffiliate,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	affiliate := &models.Affiliate{
		AffiliateCode: code,
		UserID:        user.ID,
		FullName:      user.FullName,
		Email:         user.Email,
		Type:          affType,
	}
	require.NoError(t, db.Create(affiliate).Error)
	return affiliate
}

func TestService_GetAffiliate(t *testing.T) {
	svc, db := setupAdminService(t)
	ctx := context.Background()
	affiliate := seedAdminAffiliate(t, db, "AD1", models.AffiliateTypePartner)

	db.Create(&models.ReferredCustomer{AffiliateID: affiliate.ID, CustomerName: "KH", Status: models.CustomerStatusNew})
	db.Create(&models.WithdrawalHistory{
		WithdrawalNo: "WDA1", AffiliateID: affiliate.ID,
		Amount: 1_000_000, NetAmount: 1_000_000,
		Status: models.WithdrawalStatusCompleted, RequestDate: time.Now(),
	})

	detail, err := svc.GetAffiliate(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, affiliate.ID, detail.Affiliate.ID)
	assert.Len(t, detail.Customers, 1)
	assert.Len(t, detail.Withdrawals, 1)
	assert.Equal(t, int64(1_000_000), detail.TotalCompleted)

	_, err = svc.GetAffiliate(ctx, 424242)
	assert.Equal(t, apperrors.ErrAffiliateNotFound, err)
}

func TestService_UpdateAffiliateType(t *testing.T) {
	svc, db := setupAdminService(t)
	ctx := context.Background()
	affiliate := seedAdminAffiliate(t, db, "AD2", models.AffiliateTypePartner)

	updated, err := svc.UpdateAffiliateType(ctx, affiliate.ID, models.AffiliateTypeSme)
	require.NoError(t, err)
	assert.Equal(t, models.AffiliateTypeSme, updated.Type)

	_, err = svc.UpdateAffiliateType(ctx, affiliate.ID, "platinum")
	assert.Equal(t, apperrors.ErrInvalidParams, err)
}

func TestService_SetUserStatus(t *testing.T) {
	svc, db := setupAdminService(t)
	ctx := context.Background()
	affiliate := seedAdminAffiliate(t, db, "AD3", models.AffiliateTypePartner)

	require.NoError(t, svc.SetUserStatus(ctx, affiliate.UserID, models.UserStatusDisabled))

	var user models.User
	require.NoError(t, db.First(&user, affiliate.UserID).Error)
	assert.Equal(t, int8(models.UserStatusDisabled), user.Status)

	assert.Equal(t, apperrors.ErrInvalidParams, svc.SetUserStatus(ctx, affiliate.UserID, 7))
	assert.Equal(t, apperrors.ErrNotFound, svc.SetUserStatus(ctx, 424242, models.UserStatusActive))
}

func TestService_GetStats(t *testing.T) {
	svc, db := setupAdminService(t)
	ctx := context.Background()

	seedAdminAffiliate(t, db, "AD4", models.AffiliateTypePartner)
	seedAdminAffiliate(t, db, "AD5", models.AffiliateTypePartner)
	seedAdminAffiliate(t, db, "AD6", models.AffiliateTypeSme)

	db.Create(&models.WithdrawalHistory{
		WithdrawalNo: "WDS1", AffiliateID: 1,
		Amount: 1, NetAmount: 1,
		Status: models.WithdrawalStatusProcessing, RequestDate: time.Now(),
	})

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalAffiliates)
	assert.Equal(t, int64(2), stats.AffiliatesByType[models.AffiliateTypePartner])
	assert.Equal(t, int64(1), stats.WithdrawalsByStatus[models.WithdrawalStatusProcessing])
}

func TestService_ListCustomers_InvalidStatus(t *testing.T) {
	svc, _ := setupAdminService(t)

	_, _, err := svc.ListCustomers(context.Background(), 0, 10, map[string]interface{}{"status": "Đang bay"})
	assert.Equal(t, apperrors.ErrInvalidCustomerStatus, err)
}
