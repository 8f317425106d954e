package withdrawal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/common/cache"
	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/jwt"
	"github.com/affilink/affiliate-backend/internal/common/response"
	"github.com/affilink/affiliate-backend/internal/middleware"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/internal/service/otp"
	withdrawalService "github.com/affilink/affiliate-backend/internal/service/withdrawal"
	"github.com/affilink/affiliate-backend/pkg/email"
	"github.com/affilink/affiliate-backend/pkg/webhook"
)

type apiEnv struct {
	router *gin.Engine
	db     *gorm.DB
	jwt    *jwt.Manager
}

func setupWithdrawalRouter(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.WithdrawalHistory{},
		&models.OtpVerification{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sender := email.NewMockSender()

	otpCfg := &config.OtpConfig{
		CodeLength:    6,
		ExpireMinutes: 5,
		SendInterval:  60,
		DailyLimit:    10,
	}
	withdrawalCfg := &config.WithdrawalConfig{
		DailyLimit:     20_000_000,
		LimitResetHour: 0,
		TaxThreshold:   2_000_000,
		TaxRate:        0.10,
	}

	otpSvc := otp.NewService(repository.NewOtpRepository(db), db, client, sender, otpCfg)
	svc := withdrawalService.NewService(
		repository.NewWithdrawalRepository(db),
		repository.NewAffiliateRepository(db),
		repository.NewUserRepository(db),
		otpSvc,
		db,
		client,
		sender,
		webhook.NewNotifier(nil, zap.NewNop()),
		cache.NewInvalidator(client),
		withdrawalCfg,
		otpCfg,
	)

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            "test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "affiliate-backend-test",
	})

	h := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	user := v1.Group("")
	user.Use(middleware.UserAuth(jwtManager))
	h.RegisterRoutes(user)

	return &apiEnv{router: r, db: db, jwt: jwtManager}
}

func (e *apiEnv) seedAffiliate(t *testing.T, emailAddr string, remaining int64) (*models.User, string) {
	t.Helper()

	user := &models.User{
		Email:        emailAddr,
		PasswordHash: "x",
		FullName:     "Nguyen Van A",
		Role:         models.RoleAffiliate,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, e.db.Create(user).Error)

	affiliate := &models.Affiliate{
		AffiliateCode:    "AF" + emailAddr[:4],
		UserID:           user.ID,
		FullName:         user.FullName,
		Email:            emailAddr,
		Type:             models.AffiliateTypePartner,
		ReceivedBalance:  remaining,
		RemainingBalance: remaining,
	}
	require.NoError(t, e.db.Create(affiliate).Error)

	tokens, err := e.jwt.GenerateTokenPair(user.ID, jwt.UserTypeUser, string(user.Role))
	require.NoError(t, err)
	return user, tokens.AccessToken
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		return w, nil
	}
	return w, &envelope
}

func latestCode(t *testing.T, db *gorm.DB) string {
	var v models.OtpVerification
	require.NoError(t, db.Order("id DESC").First(&v).Error)
	return v.OtpCode
}

func TestWithdrawalAPI_FullFlow(t *testing.T) {
	env := setupWithdrawalRouter(t)
	_, token := env.seedAffiliate(t, "flow@example.com", 10_000_000)

	w, envelope := env.do(t, http.MethodPost, "/api/v1/withdrawals/request", token, gin.H{
		"amount": 5_000_000,
		"note":   "Rút về VCB",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, envelope)
	require.Equal(t, 0, envelope.Code)

	data := envelope.Data.(map[string]interface{})
	stagingToken := data["token"].(string)
	require.NotEmpty(t, stagingToken)
	assert.Equal(t, float64(500_000), data["tax_amount"])
	assert.Equal(t, float64(4_500_000), data["net_amount"])
	assert.Equal(t, true, data["has_tax"])

	code := latestCode(t, env.db)
	w, envelope = env.do(t, http.MethodPost, "/api/v1/withdrawals/verify", token, gin.H{
		"token": stagingToken,
		"code":  code,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, envelope.Code)

	created := envelope.Data.(map[string]interface{})
	withdrawalNo := created["withdrawal_no"].(string)
	assert.NotEmpty(t, withdrawalNo)
	assert.Equal(t, models.WithdrawalStatusProcessing, created["status"])

	// ledger moved the full gross amount
	var affiliate models.Affiliate
	require.NoError(t, env.db.First(&affiliate).Error)
	assert.Equal(t, int64(5_000_000), affiliate.RemainingBalance)
	assert.Equal(t, int64(5_000_000), affiliate.PaidBalance)

	_, envelope = env.do(t, http.MethodGet, "/api/v1/withdrawals", token, nil)
	require.Equal(t, 0, envelope.Code)
	page := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(1), page["total"])

	_, envelope = env.do(t, http.MethodGet, "/api/v1/withdrawals/quota", token, nil)
	require.Equal(t, 0, envelope.Code)
	quota := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(5_000_000), quota["used"])
	assert.Equal(t, float64(15_000_000), quota["available"])
}

func TestWithdrawalAPI_WrongCodeKeepsBalance(t *testing.T) {
	env := setupWithdrawalRouter(t)
	_, token := env.seedAffiliate(t, "sai@example.com", 8_000_000)

	_, envelope := env.do(t, http.MethodPost, "/api/v1/withdrawals/request", token, gin.H{
		"amount": 3_000_000,
	})
	require.Equal(t, 0, envelope.Code)
	stagingToken := envelope.Data.(map[string]interface{})["token"].(string)

	w, envelope := env.do(t, http.MethodPost, "/api/v1/withdrawals/verify", token, gin.H{
		"token": stagingToken,
		"code":  "000000",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, 0, envelope.Code)

	var affiliate models.Affiliate
	require.NoError(t, env.db.First(&affiliate).Error)
	assert.Equal(t, int64(8_000_000), affiliate.RemainingBalance)

	var count int64
	require.NoError(t, env.db.Model(&models.WithdrawalHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithdrawalAPI_RequiresAuth(t *testing.T) {
	env := setupWithdrawalRouter(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/withdrawals/request", "", gin.H{
		"amount": 1_000_000,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWithdrawalAPI_InsufficientBalance(t *testing.T) {
	env := setupWithdrawalRouter(t)
	_, token := env.seedAffiliate(t, "ngheo@example.com", 500_000)

	w, envelope := env.do(t, http.MethodPost, "/api/v1/withdrawals/request", token, gin.H{
		"amount": 1_000_000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, 0, envelope.Code)
}
