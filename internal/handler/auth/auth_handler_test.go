package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/jwt"
	"github.com/affilink/affiliate-backend/internal/common/response"
	"github.com/affilink/affiliate-backend/internal/middleware"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	authService "github.com/affilink/affiliate-backend/internal/service/auth"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Affiliate{}))

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            "test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "affiliate-backend-test",
	})

	userRepo := repository.NewUserRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	authSvc := authService.NewService(userRepo, affiliateRepo, db, jwtManager,
		&config.CryptoConfig{BcryptCost: bcrypt.MinCost})

	h := NewHandler(authSvc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.UserAuth(jwtManager))
	h.RegisterProtectedRoutes(protected)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *response.Response) {
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
	r.ServeHTTP(w, req)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		return w, nil
	}
	return w, &envelope
}

func TestAuthAPI_RegisterAndLogin(t *testing.T) {
	r := setupAuthRouter(t)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":     "anva@example.com",
		"password":  "supersecret",
		"full_name": "An Văn A",
		"phone":     "0901234567",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, envelope)
	assert.Equal(t, 0, envelope.Code)

	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "anva@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, envelope.Code)

	data := envelope.Data.(map[string]interface{})
	tokens := data["tokens"].(map[string]interface{})
	accessToken := tokens["access_token"].(string)
	require.NotEmpty(t, accessToken)

	// wrong password is a business error, HTTP stays 200
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "anva@example.com",
		"password": "wrongsecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, 0, envelope.Code)

	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", accessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, envelope.Code)
	me := envelope.Data.(map[string]interface{})
	assert.Equal(t, "anva@example.com", me["email"])
}

func TestAuthAPI_MeRequiresToken(t *testing.T) {
	r := setupAuthRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAPI_RegisterValidation(t *testing.T) {
	r := setupAuthRouter(t)

	// password below the minimum length fails binding
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":     "short@example.com",
		"password":  "short",
		"full_name": "Short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	if envelope != nil {
		assert.NotEqual(t, 0, envelope.Code)
	}
}

func TestAuthAPI_ChangePassword(t *testing.T) {
	r := setupAuthRouter(t)

	_, envelope := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":     "doi@example.com",
		"password":  "firstsecret",
		"full_name": "Đổi Mật Khẩu",
	})
	require.Equal(t, 0, envelope.Code)

	_, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "doi@example.com",
		"password": "firstsecret",
	})
	require.Equal(t, 0, envelope.Code)
	token := envelope.Data.(map[string]interface{})["tokens"].(map[string]interface{})["access_token"].(string)

	_, envelope = doJSON(t, r, http.MethodPut, "/api/v1/auth/password", token, gin.H{
		"old_password": "firstsecret",
		"new_password": "secondsecret",
	})
	require.Equal(t, 0, envelope.Code)

	_, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "doi@example.com",
		"password": "secondsecret",
	})
	assert.Equal(t, 0, envelope.Code)
}
