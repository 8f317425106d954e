package otp

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/affilink/affiliate-backend/internal/common/config"
	apperrors "github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/pkg/email"
)

func setupOtpService(t *testing.T, dailyLimit int) (*Service, *gorm.DB, *email.MockSender, *miniredis.Miniredis) {
	// shared cache keeps one database behind the whole connection pool
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.OtpVerification{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sender := email.NewMockSender()

	cfg := &config.OtpConfig{
		CodeLength:    6,
		ExpireMinutes: 5,
		SendInterval:  60,
		DailyLimit:    dailyLimit,
	}
	svc := NewService(repository.NewOtpRepository(db), db, client, sender, cfg)
	return svc, db, sender, mr
}

func seedOtpUser(t *testing.T, db *gorm.DB, emailAddr string) *models.User {
	user := &models.User{
		Email:        emailAddr,
		PasswordHash: "x",
		FullName:     "Tran Thi B",
		Role:         models.RoleAffiliate,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func codeOf(t *testing.T, db *gorm.DB, id int64) *models.OtpVerification {
	var v models.OtpVerification
	require.NoError(t, db.First(&v, id).Error)
	return &v
}

func TestService_Issue(t *testing.T) {
	svc, db, sender, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "issue@example.com")

	otp, err := svc.Issue(context.Background(), user, "token-1")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp.OtpCode)
	assert.Equal(t, models.VerificationTypeWithdrawal, otp.VerificationType)
	require.NotNil(t, otp.RelatedID)
	assert.Equal(t, "token-1", *otp.RelatedID)
	assert.True(t, otp.ExpireAt.After(time.Now()))

	require.Len(t, sender.SentMessages, 1)
	assert.Equal(t, "issue@example.com", sender.SentMessages[0].To)
	assert.Contains(t, sender.SentMessages[0].Plain, otp.OtpCode)
}

func TestService_Issue_Supersedes(t *testing.T) {
	svc, db, _, mr := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "supersede@example.com")
	ctx := context.Background()

	first, err := svc.Issue(ctx, user, "t1")
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)
	second, err := svc.Issue(ctx, user, "t2")
	require.NoError(t, err)

	assert.True(t, codeOf(t, db, first.ID).IsUsed, "superseded code must be dead")
	assert.False(t, codeOf(t, db, second.ID).IsUsed)
}

func TestService_Issue_SendInterval(t *testing.T) {
	svc, db, sender, mr := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "interval@example.com")
	ctx := context.Background()

	_, err := svc.Issue(ctx, user, "t1")
	require.NoError(t, err)

	_, err = svc.Issue(ctx, user, "t1")
	assert.Equal(t, apperrors.ErrOtpSendTooFast, err)
	require.Len(t, sender.SentMessages, 1)

	mr.FastForward(61 * time.Second)
	_, err = svc.Issue(ctx, user, "t1")
	require.NoError(t, err)
	require.Len(t, sender.SentMessages, 2)
}

func TestService_Issue_DailyLimit(t *testing.T) {
	svc, db, _, mr := setupOtpService(t, 2)
	user := seedOtpUser(t, db, "daily@example.com")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Issue(ctx, user, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
		mr.FastForward(61 * time.Second)
	}

	_, err := svc.Issue(ctx, user, "t3")
	assert.Equal(t, apperrors.ErrOtpDailyLimit, err)
}

func TestService_Issue_EmailFailureKillsCode(t *testing.T) {
	svc, db, sender, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "fail@example.com")

	sender.FailNext = true
	_, err := svc.Issue(context.Background(), user, "t1")
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrOtpSendFailed.Code, appErr.Code)

	// the undelivered code must never verify anything
	var v models.OtpVerification
	require.NoError(t, db.Order("id DESC").First(&v).Error)
	assert.True(t, v.IsUsed)
}

func TestService_Issue_NoRedis(t *testing.T) {
	_, db, _, _ := setupOtpService(t, 10)
	sender := email.NewMockSender()
	cfg := &config.OtpConfig{CodeLength: 6, ExpireMinutes: 5, SendInterval: 60, DailyLimit: 1}
	svc := NewService(repository.NewOtpRepository(db), db, nil, sender, cfg)
	user := seedOtpUser(t, db, "noredis@example.com")

	// without redis the send quotas are skipped
	for i := 0; i < 3; i++ {
		_, err := svc.Issue(context.Background(), user, "t")
		require.NoError(t, err)
	}
	assert.Len(t, sender.SentMessages, 3)
}

func TestService_Consume(t *testing.T) {
	svc, db, _, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "consume@example.com")
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "t1")
	require.NoError(t, err)

	consumed, err := svc.Consume(ctx, db, user.ID, issued.OtpCode)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, consumed.ID)

	assert.True(t, codeOf(t, db, issued.ID).IsUsed)

	// a used code is dead
	_, err = svc.Consume(ctx, db, user.ID, issued.OtpCode)
	assert.Equal(t, apperrors.ErrOtpExpired, err)
}

func TestService_Consume_WrongCode(t *testing.T) {
	svc, db, _, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "wrong@example.com")
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "t1")
	require.NoError(t, err)
	wrong := "000000"
	if issued.OtpCode == wrong {
		wrong = "000001"
	}

	_, err = svc.Consume(ctx, db, user.ID, wrong)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrInvalidOtp.Code, appErr.Code)
	assert.Equal(t, map[string]interface{}{"attempts_left": 4}, appErr.Data)

	assert.Equal(t, 1, codeOf(t, db, issued.ID).AttemptCount)

	// the right code still works while attempts remain
	_, err = svc.Consume(ctx, db, user.ID, issued.OtpCode)
	require.NoError(t, err)
}

func TestService_Consume_Exhausted(t *testing.T) {
	svc, db, _, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "exhaust@example.com")
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "t1")
	require.NoError(t, err)
	wrong := "000000"
	if issued.OtpCode == wrong {
		wrong = "000001"
	}

	for i := 0; i < models.MaxOtpAttempts; i++ {
		_, consumeErr := svc.Consume(ctx, db, user.ID, wrong)
		require.Error(t, consumeErr)
	}

	// even the right code is refused once attempts are gone
	_, err = svc.Consume(ctx, db, user.ID, issued.OtpCode)
	assert.Equal(t, apperrors.ErrOtpExhausted, err)
}

func TestService_Consume_Expired(t *testing.T) {
	svc, db, _, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "expired@example.com")
	ctx := context.Background()

	stale := &models.OtpVerification{
		UserID:           user.ID,
		OtpCode:          "123456",
		VerificationType: models.VerificationTypeWithdrawal,
		ExpireAt:         time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(stale).Error)

	_, err := svc.Consume(ctx, db, user.ID, "123456")
	assert.Equal(t, apperrors.ErrOtpExpired, err)
}

func TestService_PurgeExpired(t *testing.T) {
	svc, db, _, _ := setupOtpService(t, 10)
	user := seedOtpUser(t, db, "purge@example.com")
	ctx := context.Background()

	db.Create(&models.OtpVerification{
		UserID: user.ID, OtpCode: "111111",
		VerificationType: models.VerificationTypeWithdrawal,
		ExpireAt:         time.Now().Add(-time.Hour),
	})
	db.Create(&models.OtpVerification{
		UserID: user.ID, OtpCode: "222222",
		VerificationType: models.VerificationTypeWithdrawal,
		ExpireAt:         time.Now().Add(time.Hour),
	})

	deleted, err := svc.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	db.Model(&models.OtpVerification{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
