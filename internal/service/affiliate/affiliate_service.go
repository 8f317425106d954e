// Package affiliate implements affiliate-facing profile, dashboard and
// referred-customer management, including the commission credit on
// contract signing.
package affiliate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/cache"
	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/logger"
	"github.com/affilink/affiliate-backend/internal/common/metrics"
	"github.com/affilink/affiliate-backend/internal/common/qrcode"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
	"github.com/affilink/affiliate-backend/internal/service/commission"
	"github.com/affilink/affiliate-backend/pkg/webhook"
)

const profileCacheTTL = 5 * time.Minute

// Service handles affiliate profiles and referred customers.
type Service struct {
	affiliateRepo *repository.AffiliateRepository
	customerRepo  *repository.CustomerRepository
	commissionSvc *commission.Service
	db            *gorm.DB
	redisClient   *redis.Client
	keyer         cache.AffiliateKeyer
	invalidator   *cache.Invalidator
	notifier      *webhook.Notifier
	qrGen         *qrcode.Generator
	serverCfg     *config.ServerConfig
}

// NewService creates an affiliate service. redisClient may be nil, in
// which case profile caching is skipped.
func NewService(
	affiliateRepo *repository.AffiliateRepository,
	customerRepo *repository.CustomerRepository,
	commissionSvc *commission.Service,
	db *gorm.DB,
	redisClient *redis.Client,
	notifier *webhook.Notifier,
	qrGen *qrcode.Generator,
	serverCfg *config.ServerConfig,
) *Service {
	return &Service{
		affiliateRepo: affiliateRepo,
		customerRepo:  customerRepo,
		commissionSvc: commissionSvc,
		db:            db,
		redisClient:   redisClient,
		invalidator:   cache.NewInvalidator(redisClient),
		notifier:      notifier,
		qrGen:         qrGen,
		serverCfg:     serverCfg,
	}
}

// GetProfile returns the affiliate profile of a login account, served
// from the cache when possible. The user-to-affiliate mapping never
// changes, so only the profile itself needs invalidation.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.Affiliate, error) {
	if id, ok := s.cachedAffiliateID(ctx, userID); ok {
		if cached := s.cachedProfile(ctx, id); cached != nil {
			return cached, nil
		}
	}

	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	s.cacheProfile(ctx, userID, affiliate)
	return affiliate, nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	BankAccount string `json:"bank_account"`
	BankName    string `json:"bank_name"`
}

// UpdateProfile updates contact and payout details. Ledger fields are
// untouchable through this path.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, input *UpdateProfileInput) (*models.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	updates := map[string]interface{}{}
	if input.FullName != "" {
		updates["full_name"] = input.FullName
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.BankAccount != "" {
		updates["bank_account"] = input.BankAccount
	}
	if input.BankName != "" {
		updates["bank_name"] = input.BankName
	}
	if len(updates) > 0 {
		if err := s.affiliateRepo.UpdateProfile(ctx, affiliate.ID, updates); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		s.invalidator.InvalidateAffiliate(ctx, affiliate.ID)
	}

	return s.affiliateRepo.GetByID(ctx, affiliate.ID)
}

// Dashboard summarizes an affiliate's ledger and pipeline and carries
// the referral link with its QR code.
type Dashboard struct {
	Affiliate      *models.Affiliate `json:"affiliate"`
	CustomerCounts map[string]int64  `json:"customer_counts"`
	TotalCustomers int64             `json:"total_customers"`
	ReferralLink   string            `json:"referral_link"`
	ReferralQR     string            `json:"referral_qr"`
}

// GetDashboard builds the affiliate dashboard.
func (s *Service) GetDashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	affiliate, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.customerRepo.CountByStatus(ctx, affiliate.ID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}

	link := fmt.Sprintf("%s/ref/%s", s.serverCfg.BaseURL, affiliate.AffiliateCode)
	qr, err := s.qrGen.GenerateDataURL(link)
	if err != nil {
		logger.GetLogger().Warn("referral qr generation failed",
			logger.AffiliateID(affiliate.ID),
			zap.Error(err),
		)
		qr = ""
	}

	return &Dashboard{
		Affiliate:      affiliate,
		CustomerCounts: counts,
		TotalCustomers: total,
		ReferralLink:   link,
		ReferralQR:     qr,
	}, nil
}

// CustomerInput is the create/update payload for a referred customer.
type CustomerInput struct {
	CustomerName  string `json:"customer_name" binding:"required"`
	Status        string `json:"status"`
	ContractValue *int64 `json:"contract_value"`
	Note          string `json:"note"`
}

// CreateCustomer registers a new referred customer. Creating one
// directly in the signed state credits the commission in the same
// transaction.
func (s *Service) CreateCustomer(ctx context.Context, userID int64, input *CustomerInput) (*models.ReferredCustomer, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	status := input.Status
	if status == "" {
		status = models.CustomerStatusNew
	}
	if !models.ValidCustomerStatus(status) {
		return nil, errors.ErrInvalidCustomerStatus
	}

	customer := &models.ReferredCustomer{
		AffiliateID:  affiliate.ID,
		CustomerName: input.CustomerName,
		Status:       status,
		Note:         input.Note,
	}

	if status == models.CustomerStatusContractSigned {
		if input.ContractValue == nil || *input.ContractValue <= 0 {
			return nil, errors.ErrContractValueRequired
		}
		customer.Status = models.CustomerStatusNew
		if err := s.customerRepo.Create(ctx, customer); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if err := s.signContract(ctx, affiliate, customer, *input.ContractValue); err != nil {
			return nil, err
		}
		return s.customerRepo.GetByID(ctx, customer.ID)
	}

	if input.ContractValue != nil {
		customer.ContractValue = input.ContractValue
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return customer, nil
}

// UpdateCustomer updates a referred customer owned by the calling
// account. Moving into the signed status credits the commission exactly
// once; repeating the signed status is a no-op on the ledger.
func (s *Service) UpdateCustomer(ctx context.Context, userID, customerID int64, input *CustomerInput) (*models.ReferredCustomer, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	customer, err := s.customerRepo.GetByAffiliateAndID(ctx, affiliate.ID, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCustomerNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if input.Status != "" && !models.ValidCustomerStatus(input.Status) {
		return nil, errors.ErrInvalidCustomerStatus
	}

	if input.Status == models.CustomerStatusContractSigned && !customer.Signed() {
		value := input.ContractValue
		if value == nil {
			value = customer.ContractValue
		}
		if value == nil || *value <= 0 {
			return nil, errors.ErrContractValueRequired
		}
		if input.CustomerName != "" {
			customer.CustomerName = input.CustomerName
		}
		customer.Note = input.Note
		if err := s.customerRepo.Update(ctx, customer); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if err := s.signContract(ctx, affiliate, customer, *value); err != nil {
			return nil, err
		}
		return s.customerRepo.GetByID(ctx, customer.ID)
	}

	// a signed contract is already on the ledger, it cannot be unsigned
	if customer.Signed() && input.Status != "" && input.Status != models.CustomerStatusContractSigned {
		return nil, errors.ErrInvalidCustomerStatus
	}

	if input.CustomerName != "" {
		customer.CustomerName = input.CustomerName
	}
	if input.Status != "" {
		customer.Status = input.Status
	}
	customer.Note = input.Note
	if !customer.Signed() && input.ContractValue != nil {
		customer.ContractValue = input.ContractValue
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return customer, nil
}

// signContract credits a signed contract to the affiliate ledger. The
// customer row update and the ledger credit are one transaction; the
// status guard in MarkSigned makes a repeated signing affect nothing.
func (s *Service) signContract(ctx context.Context, affiliate *models.Affiliate, customer *models.ReferredCustomer, contractValue int64) error {
	comm := s.commissionSvc.Calculate(affiliate.CommissionRole(), contractValue)
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.MarkSigned(tx, customer.ID, contractValue, comm, now); err != nil {
			if err == gorm.ErrRecordNotFound {
				// already signed, nothing to credit
				return nil
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := s.affiliateRepo.CreditContract(tx, affiliate.ID, contractValue, comm); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidator.InvalidateAffiliate(ctx, affiliate.ID)
	metrics.GetMetrics().RecordContractSigned()
	s.notifier.Notify(webhook.EventContractSigned, map[string]interface{}{
		"affiliate_id":   affiliate.ID,
		"customer_id":    customer.ID,
		"contract_value": contractValue,
		"commission":     comm,
	})
	logger.GetLogger().Info("contract signed",
		logger.AffiliateID(affiliate.ID),
		zap.Int64("customer_id", customer.ID),
		logger.Amount(contractValue),
	)
	return nil
}

// RecalculateCommission recomputes the commission of an already signed
// customer from the current rules and the given contract value, and
// applies only the difference to the ledger.
func (s *Service) RecalculateCommission(ctx context.Context, customerID int64, newContractValue int64) (*models.ReferredCustomer, error) {
	if newContractValue <= 0 {
		return nil, errors.ErrContractValueRequired
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCustomerNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !customer.Signed() {
		return nil, errors.ErrInvalidCustomerStatus
	}

	affiliate, err := s.affiliateRepo.GetByID(ctx, customer.AffiliateID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	oldValue := int64(0)
	if customer.ContractValue != nil {
		oldValue = *customer.ContractValue
	}
	newCommission, delta := s.commissionSvc.Delta(affiliate.CommissionRole(), oldValue, newContractValue, customer.Commission)
	valueDelta := newContractValue - oldValue

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer.ContractValue = &newContractValue
		customer.Commission = newCommission
		if err := s.customerRepo.UpdateTx(tx, customer); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if valueDelta == 0 && delta == 0 {
			return nil
		}
		if err := s.affiliateRepo.ApplyCommissionDelta(tx, affiliate.ID, valueDelta, delta); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrInsufficientBalance
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAffiliate(ctx, affiliate.ID)
	logger.GetLogger().Info("commission recalculated",
		logger.AffiliateID(affiliate.ID),
		zap.Int64("customer_id", customer.ID),
		zap.Int64("delta", delta),
	)
	return customer, nil
}

// GetCustomer returns one referred customer owned by the calling account.
func (s *Service) GetCustomer(ctx context.Context, userID, customerID int64) (*models.ReferredCustomer, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	customer, err := s.customerRepo.GetByAffiliateAndID(ctx, affiliate.ID, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCustomerNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return customer, nil
}

// ListCustomers returns the calling account's customers, newest first.
func (s *Service) ListCustomers(ctx context.Context, userID int64, offset, limit int, status string) ([]*models.ReferredCustomer, int64, error) {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, 0, errors.ErrAffiliateNotFound
		}
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	if status != "" && !models.ValidCustomerStatus(status) {
		return nil, 0, errors.ErrInvalidCustomerStatus
	}
	return s.customerRepo.ListByAffiliate(ctx, affiliate.ID, offset, limit, status)
}

// DeleteCustomer removes a customer owned by the calling account.
// Signed customers stay: their commission is already on the ledger.
func (s *Service) DeleteCustomer(ctx context.Context, userID, customerID int64) error {
	affiliate, err := s.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrAffiliateNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	customer, err := s.customerRepo.GetByAffiliateAndID(ctx, affiliate.ID, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrCustomerNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if customer.Signed() {
		return errors.ErrInvalidCustomerStatus
	}

	if err := s.customerRepo.Delete(ctx, affiliate.ID, customerID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrCustomerNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

func userMappingKey(userID int64) string {
	return fmt.Sprintf("affiliate:user:%d", userID)
}

func (s *Service) cachedAffiliateID(ctx context.Context, userID int64) (int64, bool) {
	if s.redisClient == nil {
		return 0, false
	}
	id, err := s.redisClient.Get(ctx, userMappingKey(userID)).Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Service) cachedProfile(ctx context.Context, affiliateID int64) *models.Affiliate {
	if s.redisClient == nil {
		return nil
	}
	data, err := s.redisClient.Get(ctx, s.keyer.Key(affiliateID)).Bytes()
	if err != nil {
		return nil
	}
	var affiliate models.Affiliate
	if err := json.Unmarshal(data, &affiliate); err != nil {
		return nil
	}
	return &affiliate
}

func (s *Service) cacheProfile(ctx context.Context, userID int64, affiliate *models.Affiliate) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(affiliate)
	if err != nil {
		return
	}
	s.redisClient.Set(ctx, userMappingKey(userID), affiliate.ID, 0)
	s.redisClient.Set(ctx, s.keyer.Key(affiliate.ID), data, profileCacheTTL)
}
