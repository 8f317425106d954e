// Package withdrawal implements the two-phase withdrawal workflow:
// a request phase that stages the payout and emails a one-time code,
// and a verify phase that commits it against the affiliate ledger.
package withdrawal

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/cache"
	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/logger"
	"github.com/affilink/affiliate-backend/internal/common/metrics"
	"github.com/affilink/affiliate-backend/internal/common/utils"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/internal/service/otp"
	"github.com/affilink/affiliate-backend/pkg/email"
	"github.com/affilink/affiliate-backend/pkg/webhook"
)

const payloadKeyPrefix = "withdraw:payload:"

// Service runs the withdrawal workflow.
type Service struct {
	withdrawalRepo *repository.WithdrawalRepository
	affiliateRepo  *repository.AffiliateRepository
	userRepo       *repository.UserRepository
	otpService     *otp.Service
	db             *gorm.DB
	redisClient    *redis.Client
	sender         email.Sender
	notifier       *webhook.Notifier
	invalidator    *cache.Invalidator
	cfg            *config.WithdrawalConfig
	otpCfg         *config.OtpConfig
}

// NewService creates a withdrawal service.
func NewService(
	withdrawalRepo *repository.WithdrawalRepository,
	affiliateRepo *repository.AffiliateRepository,
	userRepo *repository.UserRepository,
	otpService *otp.Service,
	db *gorm.DB,
	redisClient *redis.Client,
	sender email.Sender,
	notifier *webhook.Notifier,
	invalidator *cache.Invalidator,
	cfg *config.WithdrawalConfig,
	otpCfg *config.OtpConfig,
) *Service {
	return &Service{
		withdrawalRepo: withdrawalRepo,
		affiliateRepo:  affiliateRepo,
		userRepo:       userRepo,
		otpService:     otpService,
		db:             db,
		redisClient:    redisClient,
		sender:         sender,
		notifier:       notifier,
		invalidator:    invalidator,
		cfg:            cfg,
		otpCfg:         otpCfg,
	}
}

// payload is the staged withdrawal held in redis between the request
// and verify phases.
type payload struct {
	AffiliateID int64  `json:"affiliate_id"`
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	TaxAmount   int64  `json:"tax_amount"`
	NetAmount   int64  `json:"net_amount"`
	HasTax      bool   `json:"has_tax"`
	Note        string `json:"note"`
	TaxID       string `json:"tax_id"`
}

// RequestInput is the request-phase input.
type RequestInput struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
	TaxID  string `json:"tax_id"`
}

// RequestResult is returned from the request phase.
type RequestResult struct {
	Token       string `json:"token"`
	MaskedEmail string `json:"masked_email"`
	Amount      int64  `json:"amount"`
	TaxAmount   int64  `json:"tax_amount"`
	NetAmount   int64  `json:"net_amount"`
	HasTax      bool   `json:"has_tax"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Request stages a withdrawal and emails a one-time code. Nothing
// touches the ledger yet; the staged payload expires together with the
// code.
func (s *Service) Request(ctx context.Context, userID int64, input *RequestInput) (*RequestResult, error) {
	if input.Amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}

	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if affiliate.RemainingBalance < input.Amount {
		return nil, errors.ErrInsufficientBalance.WithData(map[string]interface{}{
			"remaining_balance": affiliate.RemainingBalance,
		})
	}

	if err := s.checkDailyLimit(ctx, affiliate.ID, input.Amount, time.Now()); err != nil {
		return nil, err
	}

	taxAmount := s.ComputeTax(input.Amount)
	p := &payload{
		AffiliateID: affiliate.ID,
		UserID:      userID,
		Amount:      input.Amount,
		TaxAmount:   taxAmount,
		NetAmount:   input.Amount - taxAmount,
		HasTax:      taxAmount > 0,
		Note:        input.Note,
		TaxID:       input.TaxID,
	}

	token := uuid.New().String()
	if err := s.storePayload(ctx, token, p); err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if _, err := s.otpService.Issue(ctx, user, token); err != nil {
		// without a deliverable code the staged payload is useless
		s.deletePayload(ctx, token)
		return nil, err
	}

	return &RequestResult{
		Token:       token,
		MaskedEmail: utils.MaskEmail(user.Email),
		Amount:      p.Amount,
		TaxAmount:   p.TaxAmount,
		NetAmount:   p.NetAmount,
		HasTax:      p.HasTax,
		ExpiresIn:   int(s.otpCfg.ExpireDuration().Seconds()),
	}, nil
}

// Resend issues a fresh code for an already staged withdrawal. The
// payload TTL is refreshed so the code and the payload expire together.
func (s *Service) Resend(ctx context.Context, userID int64, token string) (*RequestResult, error) {
	p, err := s.loadPayload(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := s.storePayload(ctx, token, p); err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}
	if _, err := s.otpService.Issue(ctx, user, token); err != nil {
		return nil, err
	}

	return &RequestResult{
		Token:       token,
		MaskedEmail: utils.MaskEmail(user.Email),
		Amount:      p.Amount,
		TaxAmount:   p.TaxAmount,
		NetAmount:   p.NetAmount,
		HasTax:      p.HasTax,
		ExpiresIn:   int(s.otpCfg.ExpireDuration().Seconds()),
	}, nil
}

// Verify commits a staged withdrawal. The OTP consumption, the history
// row and the ledger debit happen in one transaction; the conditional
// updates underneath serialize concurrent commits per affiliate.
func (s *Service) Verify(ctx context.Context, userID int64, token, code string) (*models.WithdrawalHistory, error) {
	p, err := s.loadPayload(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}

	// re-check the window: other commits may have landed since the
	// request phase
	if err := s.checkDailyLimit(ctx, p.AffiliateID, p.Amount, time.Now()); err != nil {
		return nil, err
	}

	now := time.Now()
	withdrawal := &models.WithdrawalHistory{
		WithdrawalNo: utils.GenerateWithdrawalNo("WD"),
		AffiliateID:  p.AffiliateID,
		Amount:       p.Amount,
		TaxAmount:    p.TaxAmount,
		NetAmount:    p.NetAmount,
		HasTax:       p.HasTax,
		Note:         p.Note,
		TaxID:        p.TaxID,
		Status:       models.WithdrawalStatusPending,
		RequestDate:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := s.otpService.Consume(ctx, tx, userID, code)
		if err != nil {
			return err
		}
		// the code must belong to this staged withdrawal
		if consumed.RelatedID == nil || *consumed.RelatedID != token {
			return errors.ErrInvalidOtp
		}

		if err := s.withdrawalRepo.CreateTx(tx, withdrawal); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		// same ledger-debiting edge the admin transition uses
		return s.transition(tx, withdrawal, models.WithdrawalStatusProcessing, nil, "")
	})
	if err != nil {
		return nil, err
	}
	withdrawal.Status = models.WithdrawalStatusProcessing

	s.deletePayload(ctx, token)
	s.invalidator.InvalidateAffiliate(ctx, p.AffiliateID)

	metrics.GetMetrics().RecordWithdrawal(models.WithdrawalStatusProcessing, withdrawal.Amount)
	s.notifier.Notify(webhook.EventWithdrawalRequested, withdrawal)
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		// confirmation is best effort, the withdrawal is already committed
		if err := s.sender.SendWithdrawalStatus(ctx, user.Email, withdrawal.WithdrawalNo, withdrawal.Status, ""); err != nil {
			metrics.GetMetrics().RecordNotifyFailure("email")
		}
	}
	logger.GetLogger().Info("withdrawal committed",
		logger.AffiliateID(p.AffiliateID),
		logger.WithdrawalNo(withdrawal.WithdrawalNo),
		logger.Amount(withdrawal.Amount),
	)

	return withdrawal, nil
}

// SetStatusInput is the admin transition input.
type SetStatusInput struct {
	Status        string `json:"status" binding:"required"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// SetStatus applies an admin status transition with its compensating
// ledger update. Legal transitions:
//
//	Pending    -> Processing (debits the ledger)
//	Pending    -> Rejected, Cancelled (no ledger movement)
//	Processing -> Completed (records the payout)
//	Processing -> Rejected, Cancelled (refunds the ledger)
func (s *Service) SetStatus(ctx context.Context, id int64, operatorID int64, input *SetStatusInput) (*models.WithdrawalHistory, error) {
	if !models.ValidWithdrawalStatus(input.Status) {
		return nil, errors.ErrInvalidStatusValue
	}

	var withdrawal *models.WithdrawalHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		withdrawal, err = s.withdrawalRepo.GetByIDTx(tx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrWithdrawalNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		return s.transition(tx, withdrawal, input.Status, &operatorID, input.Message, withTransactionID(input.TransactionID)...)
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAffiliate(ctx, withdrawal.AffiliateID)
	metrics.GetMetrics().RecordWithdrawal(input.Status, withdrawal.Amount)
	s.notifyStatusChange(ctx, withdrawal, input.Status, input.Message)

	return s.withdrawalRepo.GetByID(ctx, id)
}

func withTransactionID(txID string) []extraUpdate {
	if txID == "" {
		return nil
	}
	return []extraUpdate{{"transaction_id", txID}}
}

type extraUpdate struct {
	column string
	value  interface{}
}

// transition moves a withdrawal to its next status and applies the
// matching ledger movement, all on the caller's transaction.
func (s *Service) transition(tx *gorm.DB, withdrawal *models.WithdrawalHistory, to string, operatorID *int64, message string, extras ...extraUpdate) error {
	from := withdrawal.Status

	updates := map[string]interface{}{}
	if operatorID != nil {
		updates["operator_id"] = *operatorID
	}
	if message != "" {
		updates["message"] = message
	}
	for _, e := range extras {
		updates[e.column] = e.value
	}

	switch {
	case from == models.WithdrawalStatusPending && to == models.WithdrawalStatusProcessing:
		if err := s.affiliateRepo.DebitWithdrawal(tx, withdrawal.AffiliateID, withdrawal.Amount); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrInsufficientBalance
			}
			return errors.ErrDatabaseError.WithError(err)
		}

	case from == models.WithdrawalStatusPending &&
		(to == models.WithdrawalStatusRejected || to == models.WithdrawalStatusCancelled):
		// never debited, nothing to refund

	case from == models.WithdrawalStatusProcessing && to == models.WithdrawalStatusCompleted:
		updates["completed_date"] = time.Now()

	case from == models.WithdrawalStatusProcessing &&
		(to == models.WithdrawalStatusRejected || to == models.WithdrawalStatusCancelled):
		if err := s.affiliateRepo.RefundWithdrawal(tx, withdrawal.AffiliateID, withdrawal.Amount); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

	default:
		return errors.ErrWithdrawalTransition.WithData(map[string]interface{}{
			"from": from,
			"to":   to,
		})
	}

	if err := s.withdrawalRepo.UpdateStatusFrom(tx, withdrawal.ID, from, to, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			// the row moved under us, roll everything back
			return errors.ErrWithdrawalTransition
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// GetByID returns a withdrawal with relations.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.WithdrawalHistory, error) {
	withdrawal, err := s.withdrawalRepo.GetByIDWithRelations(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrWithdrawalNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return withdrawal, nil
}

// GetOwn returns a withdrawal owned by the calling affiliate user.
func (s *Service) GetOwn(ctx context.Context, userID, id int64) (*models.WithdrawalHistory, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrWithdrawalNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if withdrawal.AffiliateID != affiliate.ID {
		return nil, errors.ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// ListOwn returns the calling affiliate's withdrawals.
func (s *Service) ListOwn(ctx context.Context, userID int64, offset, limit int, status string) ([]*models.WithdrawalHistory, int64, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, 0, errors.ErrAffiliateNotFound
		}
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return s.withdrawalRepo.ListByAffiliate(ctx, affiliate.ID, offset, limit, status)
}

// List returns withdrawals for admin review.
func (s *Service) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.WithdrawalHistory, int64, error) {
	return s.withdrawalRepo.List(ctx, offset, limit, filters)
}

// DailyQuota reports how much of today's window an affiliate has left.
func (s *Service) DailyQuota(ctx context.Context, userID int64) (map[string]interface{}, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	start, end := s.limitWindow(time.Now())
	used, err := s.withdrawalRepo.SumRequestedInWindow(ctx, affiliate.ID, start, end)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return map[string]interface{}{
		"daily_limit": s.cfg.DailyLimit,
		"used":        used,
		"available":   utils.Max(s.cfg.DailyLimit-used, 0),
		"resets_at":   end.Unix(),
	}, nil
}

// ComputeTax returns the withholding for a payout amount. Amounts
// strictly above the threshold are taxed at the configured rate on the
// full amount; the result is rounded to whole VND.
func (s *Service) ComputeTax(amount int64) int64 {
	if amount <= s.cfg.TaxThreshold {
		return 0
	}
	return int64(math.Round(float64(amount) * s.cfg.TaxRate))
}

// limitWindow returns the daily-limit window containing now. The
// window starts at the configured reset hour.
func (s *Service) limitWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.LimitResetHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.Add(24 * time.Hour)
}

func (s *Service) checkDailyLimit(ctx context.Context, affiliateID, amount int64, now time.Time) error {
	start, end := s.limitWindow(now)
	used, err := s.withdrawalRepo.SumRequestedInWindow(ctx, affiliateID, start, end)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if used+amount > s.cfg.DailyLimit {
		return errors.ErrDailyLimitExceeded.WithData(map[string]interface{}{
			"daily_limit": s.cfg.DailyLimit,
			"used":        used,
			"available":   utils.Max(s.cfg.DailyLimit-used, 0),
		})
	}
	return nil
}

func (s *Service) storePayload(ctx context.Context, token string, p *payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, payloadKeyPrefix+token, data, s.otpCfg.ExpireDuration()).Err()
}

func (s *Service) loadPayload(ctx context.Context, token string) (*payload, error) {
	data, err := s.redisClient.Get(ctx, payloadKeyPrefix+token).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.ErrOtpExpired
		}
		return nil, errors.ErrCacheError.WithError(err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}
	return &p, nil
}

func (s *Service) deletePayload(ctx context.Context, token string) {
	if err := s.redisClient.Del(ctx, payloadKeyPrefix+token).Err(); err != nil {
		logger.GetLogger().Warn("failed to delete staged withdrawal", zap.Error(err))
	}
}

// notifyStatusChange emails the affiliate and posts the webhook. Both
// are best effort.
func (s *Service) notifyStatusChange(ctx context.Context, withdrawal *models.WithdrawalHistory, status, message string) {
	s.notifier.Notify(webhook.EventWithdrawalStatus, map[string]interface{}{
		"withdrawal_no": withdrawal.WithdrawalNo,
		"affiliate_id":  withdrawal.AffiliateID,
		"status":        status,
		"message":       message,
	})

	affiliate, err := s.affiliateRepo.GetByID(ctx, withdrawal.AffiliateID)
	if err != nil {
		return
	}
	if err := s.sender.SendWithdrawalStatus(ctx, affiliate.Email, withdrawal.WithdrawalNo, status, message); err != nil {
		metrics.GetMetrics().RecordNotifyFailure("email")
		logger.GetLogger().Warn("withdrawal status email failed",
			logger.WithdrawalNo(withdrawal.WithdrawalNo),
			zap.Error(err),
		)
	}
}
