package affiliate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/common/config"
	apperrors "github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/qrcode"
	"github.com/affilink/affiliate-backend/internal/common/utils"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/internal/service/commission"
	"github.com/affilink/affiliate-backend/pkg/webhook"
)

func setupAffiliateService(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Affiliate{}, &models.ReferredCustomer{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	commissionSvc := commission.NewService(&config.CommissionConfig{
		PercentRate: 0.03,
		SmeFlat:     500_000,
		SmeBandMin:  1_000_000,
		SmeBandMax:  29_990_000,
	})

	svc := NewService(
		repository.NewAffiliateRepository(db),
		repository.NewCustomerRepository(db),
		commissionSvc,
		db,
		client,
		webhook.NewNotifier(nil, zap.NewNop()),
		qrcode.NewGenerator(),
		&config.ServerConfig{BaseURL: "https://affilink.vn"},
	)
	return svc, db, mr
}

func seedPartner(t *testing.T, db *gorm.DB, code string) (*models.User, *models.Affiliate) {
	user := &models.User{
		Email:        code + "@example.com",
		PasswordHash: "x",
		FullName:     "Le Van C",
		Role:         models.RoleAffiliate,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)

	affiliate := &models.Affiliate{
		AffiliateCode: code,
		UserID:        user.ID,
		FullName:      user.FullName,
		Email:         user.Email,
		Type:          models.AffiliateTypePartner,
	}
	require.NoError(t, db.Create(affiliate).Error)
	return user, affiliate
}

func TestService_GetProfile_Caches(t *testing.T) {
	svc, db, mr := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFCACHE")

	got, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, affiliate.ID, got.ID)
	assert.True(t, mr.Exists(fmt.Sprintf("affiliate:profile:%d", affiliate.ID)))

	// second read comes from the cache
	db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).Update("full_name", "Renamed")
	cached, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Le Van C", cached.FullName)

	// invalidation makes the rename visible
	require.NoError(t, svc.invalidator.InvalidateAffiliate(ctx, affiliate.ID))
	fresh, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.FullName)
}

func TestService_GetProfile_NotFound(t *testing.T) {
	svc, _, _ := setupAffiliateService(t)

	_, err := svc.GetProfile(context.Background(), 424242)
	assert.Equal(t, apperrors.ErrAffiliateNotFound, err)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, _ := seedPartner(t, db, "AFPROF")

	updated, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileInput{
		Phone:       "0901234567",
		BankAccount: "0123456789",
		BankName:    "Vietcombank",
	})
	require.NoError(t, err)
	assert.Equal(t, "0901234567", updated.Phone)
	assert.Equal(t, "Vietcombank", updated.BankName)
	assert.Equal(t, "Le Van C", updated.FullName)
}

func TestService_GetDashboard(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFDASH")

	db.Create(&models.ReferredCustomer{AffiliateID: affiliate.ID, CustomerName: "KH 1", Status: models.CustomerStatusNew})
	db.Create(&models.ReferredCustomer{AffiliateID: affiliate.ID, CustomerName: "KH 2", Status: models.CustomerStatusConsulting})
	db.Create(&models.ReferredCustomer{AffiliateID: affiliate.ID, CustomerName: "KH 3", Status: models.CustomerStatusConsulting})

	dashboard, err := svc.GetDashboard(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dashboard.TotalCustomers)
	assert.Equal(t, int64(2), dashboard.CustomerCounts[models.CustomerStatusConsulting])
	assert.Equal(t, "https://affilink.vn/ref/AFDASH", dashboard.ReferralLink)
	assert.True(t, strings.HasPrefix(dashboard.ReferralQR, "data:image/png;base64,"))
}

func TestService_CreateCustomer(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, _ := seedPartner(t, db, "AFNEW")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{
		CustomerName: "Cong ty TNHH ABC",
		Note:         "Giới thiệu qua hội thảo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusNew, customer.Status)
	assert.Equal(t, int64(0), customer.Commission)

	_, err = svc.CreateCustomer(ctx, user.ID, &CustomerInput{
		CustomerName: "Cong ty XYZ",
		Status:       "Đang bay",
	})
	assert.Equal(t, apperrors.ErrInvalidCustomerStatus, err)
}

func TestService_CreateCustomer_SignedCreditsLedger(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFSIGN")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{
		CustomerName:  "Cong ty DEF",
		Status:        models.CustomerStatusContractSigned,
		ContractValue: utils.Int64Ptr(10_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusContractSigned, customer.Status)
	assert.Equal(t, int64(300_000), customer.Commission)
	require.NotNil(t, customer.ContractDate)

	var after models.Affiliate
	require.NoError(t, db.First(&after, affiliate.ID).Error)
	assert.Equal(t, 1, after.TotalContracts)
	assert.Equal(t, int64(10_000_000), after.ContractValue)
	assert.Equal(t, int64(300_000), after.ReceivedBalance)
	assert.Equal(t, int64(300_000), after.RemainingBalance)
	assert.Equal(t, int64(0), after.PaidBalance)
}

func TestService_UpdateCustomer_SignOnce(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFONCE")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{CustomerName: "Cong ty GHI"})
	require.NoError(t, err)

	signed, err := svc.UpdateCustomer(ctx, user.ID, customer.ID, &CustomerInput{
		CustomerName:  "Cong ty GHI",
		Status:        models.CustomerStatusContractSigned,
		ContractValue: utils.Int64Ptr(30_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(900_000), signed.Commission)

	// repeating the signed status must not credit again
	_, err = svc.UpdateCustomer(ctx, user.ID, customer.ID, &CustomerInput{
		CustomerName:  "Cong ty GHI",
		Status:        models.CustomerStatusContractSigned,
		ContractValue: utils.Int64Ptr(30_000_000),
	})
	require.NoError(t, err)

	var after models.Affiliate
	require.NoError(t, db.First(&after, affiliate.ID).Error)
	assert.Equal(t, 1, after.TotalContracts)
	assert.Equal(t, int64(900_000), after.ReceivedBalance)
	assert.Equal(t, int64(900_000), after.RemainingBalance)

	// a signed contract cannot be walked back
	_, err = svc.UpdateCustomer(ctx, user.ID, customer.ID, &CustomerInput{
		CustomerName: "Cong ty GHI",
		Status:       models.CustomerStatusConsulting,
	})
	assert.Equal(t, apperrors.ErrInvalidCustomerStatus, err)
}

func TestService_UpdateCustomer_SignRequiresValue(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, _ := seedPartner(t, db, "AFVAL")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{CustomerName: "Cong ty JKL"})
	require.NoError(t, err)

	_, err = svc.UpdateCustomer(ctx, user.ID, customer.ID, &CustomerInput{
		CustomerName: "Cong ty JKL",
		Status:       models.CustomerStatusContractSigned,
	})
	assert.Equal(t, apperrors.ErrContractValueRequired, err)
}

func TestService_UpdateCustomer_CrossAffiliate(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	owner, _ := seedPartner(t, db, "AFOWN")
	intruder, _ := seedPartner(t, db, "AFINT")

	customer, err := svc.CreateCustomer(ctx, owner.ID, &CustomerInput{CustomerName: "Cong ty MNO"})
	require.NoError(t, err)

	_, err = svc.UpdateCustomer(ctx, intruder.ID, customer.ID, &CustomerInput{CustomerName: "Hacked"})
	assert.Equal(t, apperrors.ErrCustomerNotFound, err)
}

func TestService_RecalculateCommission(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFCALC")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{
		CustomerName:  "Cong ty PQR",
		Status:        models.CustomerStatusContractSigned,
		ContractValue: utils.Int64Ptr(30_000_000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(900_000), customer.Commission)

	// correcting the contract value applies only the delta
	updated, err := svc.RecalculateCommission(ctx, customer.ID, 40_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1_200_000), updated.Commission)

	var after models.Affiliate
	require.NoError(t, db.First(&after, affiliate.ID).Error)
	assert.Equal(t, int64(40_000_000), after.ContractValue)
	assert.Equal(t, int64(1_200_000), after.ReceivedBalance)
	assert.Equal(t, int64(1_200_000), after.RemainingBalance)
	assert.Equal(t, 1, after.TotalContracts)

	// downward correction
	updated, err = svc.RecalculateCommission(ctx, customer.ID, 35_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1_050_000), updated.Commission)

	require.NoError(t, db.First(&after, affiliate.ID).Error)
	assert.Equal(t, int64(35_000_000), after.ContractValue)
	assert.Equal(t, int64(1_050_000), after.RemainingBalance)
}

func TestService_RecalculateCommission_Unsigned(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, _ := seedPartner(t, db, "AFUNS")

	customer, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{CustomerName: "Cong ty STU"})
	require.NoError(t, err)

	_, err = svc.RecalculateCommission(ctx, customer.ID, 10_000_000)
	assert.Equal(t, apperrors.ErrInvalidCustomerStatus, err)
}

func TestService_DeleteCustomer(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, _ := seedPartner(t, db, "AFDEL")

	unsigned, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{CustomerName: "Cong ty VWX"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCustomer(ctx, user.ID, unsigned.ID))

	signed, err := svc.CreateCustomer(ctx, user.ID, &CustomerInput{
		CustomerName:  "Cong ty YZA",
		Status:        models.CustomerStatusContractSigned,
		ContractValue: utils.Int64Ptr(5_000_000),
	})
	require.NoError(t, err)

	// signed customers carry credited commission and must stay
	err = svc.DeleteCustomer(ctx, user.ID, signed.ID)
	assert.Equal(t, apperrors.ErrInvalidCustomerStatus, err)
}

func TestService_ListCustomers(t *testing.T) {
	svc, db, _ := setupAffiliateService(t)
	ctx := context.Background()
	user, affiliate := seedPartner(t, db, "AFLIST")

	for i := 0; i < 3; i++ {
		db.Create(&models.ReferredCustomer{
			AffiliateID:  affiliate.ID,
			CustomerName: fmt.Sprintf("KH %d", i),
			Status:       models.CustomerStatusNew,
		})
	}
	db.Create(&models.ReferredCustomer{
		AffiliateID:  affiliate.ID,
		CustomerName: "KH chốt",
		Status:       models.CustomerStatusContractSigned,
	})

	customers, total, err := svc.ListCustomers(ctx, user.ID, 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, customers, 4)

	signed, total, err := svc.ListCustomers(ctx, user.ID, 0, 10, models.CustomerStatusContractSigned)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "KH chốt", signed[0].CustomerName)
}
