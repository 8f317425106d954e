// Package otp issues and verifies one-time codes for sensitive
// operations.
package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/logger"
	"github.com/affilink/affiliate-backend/internal/common/metrics"
	"github.com/affilink/affiliate-backend/internal/common/utils"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/pkg/email"
)

// Service manages one-time verification codes. Codes live in the
// database; send-rate limits live in redis.
type Service struct {
	otpRepo     *repository.OtpRepository
	db          *gorm.DB
	redisClient *redis.Client
	sender      email.Sender
	cfg         *config.OtpConfig
}

// NewService creates an OTP service. redisClient may be nil, in which
// case send-rate limiting is skipped.
func NewService(
	otpRepo *repository.OtpRepository,
	db *gorm.DB,
	redisClient *redis.Client,
	sender email.Sender,
	cfg *config.OtpConfig,
) *Service {
	return &Service{
		otpRepo:     otpRepo,
		db:          db,
		redisClient: redisClient,
		sender:      sender,
		cfg:         cfg,
	}
}

// Issue creates a fresh withdrawal code for the user, invalidates any
// prior unused ones and emails the code. When the email cannot be
// delivered the new code is killed and the caller gets an error, so a
// code the user never saw can never verify anything.
func (s *Service) Issue(ctx context.Context, user *models.User, relatedID string) (*models.OtpVerification, error) {
	if err := s.checkSendLimits(ctx, user.ID); err != nil {
		return nil, err
	}

	code := utils.GenerateRandomNumber(s.cfg.CodeLength)
	otp := &models.OtpVerification{
		UserID:           user.ID,
		OtpCode:          code,
		VerificationType: models.VerificationTypeWithdrawal,
		ExpireAt:         time.Now().Add(s.cfg.ExpireDuration()),
	}
	if relatedID != "" {
		otp.RelatedID = &relatedID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// a new code supersedes everything issued before it
		if err := s.otpRepo.InvalidateAll(tx, user.ID, models.VerificationTypeWithdrawal); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := s.otpRepo.CreateTx(tx, otp); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sender.SendOtpCode(ctx, user.Email, code, s.cfg.ExpireMinutes); err != nil {
		logger.GetLogger().Error("otp email delivery failed",
			logger.UserID(user.ID),
			zap.Error(err),
		)
		metrics.GetMetrics().RecordNotifyFailure("email")
		// kill the undelivered code
		if killErr := s.otpRepo.InvalidateAll(s.db.WithContext(ctx), user.ID, models.VerificationTypeWithdrawal); killErr != nil {
			logger.GetLogger().Error("failed to invalidate undelivered otp",
				logger.UserID(user.ID),
				zap.Error(killErr),
			)
		}
		return nil, errors.ErrOtpSendFailed.WithError(err)
	}

	metrics.GetMetrics().RecordOtpIssued()
	logger.GetLogger().Info("otp issued",
		logger.UserID(user.ID),
		logger.Module("otp"),
	)
	return otp, nil
}

// Consume verifies a code inside an existing transaction and marks it
// used. The single-use guarantee comes from the conditional UPDATE in
// the repository: of two concurrent consumers exactly one wins.
//
// Failed attempts are counted on the service's own connection so the
// counter survives the caller's rollback.
func (s *Service) Consume(ctx context.Context, tx *gorm.DB, userID int64, code string) (*models.OtpVerification, error) {
	now := time.Now()

	otp, err := s.otpRepo.GetLatestTx(tx, userID, models.VerificationTypeWithdrawal)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			metrics.GetMetrics().RecordOtpVerified("fail")
			return nil, errors.ErrInvalidOtp
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if otp.IsUsed || !now.Before(otp.ExpireAt) {
		metrics.GetMetrics().RecordOtpVerified("fail")
		return nil, errors.ErrOtpExpired
	}
	if otp.AttemptCount >= models.MaxOtpAttempts {
		metrics.GetMetrics().RecordOtpVerified("fail")
		return nil, errors.ErrOtpExhausted
	}

	if otp.OtpCode != code {
		// count the miss outside the caller's transaction
		if err := s.otpRepo.IncrementAttempt(ctx, otp.ID); err != nil {
			logger.GetLogger().Error("failed to record otp attempt",
				logger.UserID(userID),
				zap.Error(err),
			)
		}
		metrics.GetMetrics().RecordOtpVerified("fail")
		attemptsLeft := models.MaxOtpAttempts - otp.AttemptCount - 1
		if attemptsLeft <= 0 {
			return nil, errors.ErrOtpExhausted
		}
		return nil, errors.ErrInvalidOtp.WithData(map[string]interface{}{
			"attempts_left": attemptsLeft,
		})
	}

	won, err := s.otpRepo.ConsumeIfUsable(tx, otp.ID, now)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !won {
		// someone else consumed or killed the code first
		metrics.GetMetrics().RecordOtpVerified("fail")
		return nil, errors.ErrOtpExpired
	}

	metrics.GetMetrics().RecordOtpVerified("ok")
	return otp, nil
}

// Invalidate kills every unused withdrawal code of the user.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	return s.otpRepo.InvalidateAll(s.db.WithContext(ctx), userID, models.VerificationTypeWithdrawal)
}

// PurgeExpired removes codes that expired before the cutoff.
func (s *Service) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.otpRepo.DeleteExpiredBefore(ctx, before)
}

// checkSendLimits enforces the per-minute and per-day send quotas in
// redis. Redis failures fail open.
func (s *Service) checkSendLimits(ctx context.Context, userID int64) error {
	if s.redisClient == nil {
		return nil
	}

	intervalKey := fmt.Sprintf("otp:interval:%d", userID)
	count, err := s.redisClient.Incr(ctx, intervalKey).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		s.redisClient.Expire(ctx, intervalKey, time.Duration(s.cfg.SendInterval)*time.Second)
	}
	if count > 1 {
		return errors.ErrOtpSendTooFast
	}

	dayKey := fmt.Sprintf("otp:daily:%d", userID)
	dayCount, err := s.redisClient.Incr(ctx, dayKey).Result()
	if err != nil {
		return nil
	}
	if dayCount == 1 {
		now := time.Now()
		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		s.redisClient.ExpireAt(ctx, dayKey, endOfDay)
	}
	if int(dayCount) > s.cfg.DailyLimit {
		return errors.ErrOtpDailyLimit
	}

	return nil
}
