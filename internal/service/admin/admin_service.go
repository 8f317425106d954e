// Package admin implements administrative management of affiliates,
// accounts and platform statistics.
package admin

import (
	"context"

	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/cache"
	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/logger"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
)

// Service handles admin operations.
type Service struct {
	affiliateRepo  *repository.AffiliateRepository
	customerRepo   *repository.CustomerRepository
	withdrawalRepo *repository.WithdrawalRepository
	userRepo       *repository.UserRepository
	invalidator    *cache.Invalidator
}

// NewService creates an admin service.
func NewService(
	affiliateRepo *repository.AffiliateRepository,
	customerRepo *repository.CustomerRepository,
	withdrawalRepo *repository.WithdrawalRepository,
	userRepo *repository.UserRepository,
	invalidator *cache.Invalidator,
) *Service {
	return &Service{
		affiliateRepo:  affiliateRepo,
		customerRepo:   customerRepo,
		withdrawalRepo: withdrawalRepo,
		userRepo:       userRepo,
		invalidator:    invalidator,
	}
}

// ListAffiliates returns affiliates for the admin table.
func (s *Service) ListAffiliates(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Affiliate, int64, error) {
	return s.affiliateRepo.List(ctx, offset, limit, filters)
}

// AffiliateDetail is the admin view of one affiliate.
type AffiliateDetail struct {
	Affiliate      *models.Affiliate           `json:"affiliate"`
	Customers      []*models.ReferredCustomer  `json:"customers"`
	Withdrawals    []*models.WithdrawalHistory `json:"withdrawals"`
	CustomerCounts map[string]int64            `json:"customer_counts"`
	TotalCompleted int64                       `json:"total_completed"`
}

// GetAffiliate returns one affiliate with its recent customers and
// withdrawals.
func (s *Service) GetAffiliate(ctx context.Context, id int64) (*AffiliateDetail, error) {
	affiliate, err := s.affiliateRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	customers, _, err := s.customerRepo.ListByAffiliate(ctx, id, 0, 20, "")
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	withdrawals, _, err := s.withdrawalRepo.ListByAffiliate(ctx, id, 0, 20, "")
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	counts, err := s.customerRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	completed, err := s.withdrawalRepo.SumCompletedByAffiliate(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &AffiliateDetail{
		Affiliate:      affiliate,
		Customers:      customers,
		Withdrawals:    withdrawals,
		CustomerCounts: counts,
		TotalCompleted: completed,
	}, nil
}

// UpdateAffiliateType changes the commission tier of an affiliate.
// Existing credited commissions are untouched; only future contracts
// settle under the new rule.
func (s *Service) UpdateAffiliateType(ctx context.Context, id int64, affType string) (*models.Affiliate, error) {
	switch affType {
	case models.AffiliateTypePartner, models.AffiliateTypeSme, models.AffiliateTypeKolVip:
	default:
		return nil, errors.ErrInvalidParams
	}

	if err := s.affiliateRepo.UpdateProfile(ctx, id, map[string]interface{}{"type": affType}); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAffiliateNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.invalidator.InvalidateAffiliate(ctx, id)

	logger.GetLogger().Info("affiliate type changed",
		logger.AffiliateID(id),
		logger.Module("admin"),
	)
	return s.affiliateRepo.GetByID(ctx, id)
}

// ListCustomers returns referred customers across all affiliates.
func (s *Service) ListCustomers(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ReferredCustomer, int64, error) {
	if status, ok := filters["status"].(string); ok && status != "" && !models.ValidCustomerStatus(status) {
		return nil, 0, errors.ErrInvalidCustomerStatus
	}
	return s.customerRepo.List(ctx, offset, limit, filters)
}

// ListUsers returns login accounts.
func (s *Service) ListUsers(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit, filters)
}

// SetUserStatus enables or disables a login account.
func (s *Service) SetUserStatus(ctx context.Context, userID int64, status int8) error {
	if status != models.UserStatusActive && status != models.UserStatusDisabled {
		return errors.ErrInvalidParams
	}
	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	AffiliatesByType    map[string]int64 `json:"affiliates_by_type"`
	WithdrawalsByStatus map[string]int64 `json:"withdrawals_by_status"`
	TotalAffiliates     int64            `json:"total_affiliates"`
}

// GetStats aggregates platform-wide counters.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	byType, err := s.affiliateRepo.CountByType(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	byStatus, err := s.withdrawalRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	var total int64
	for _, c := range byType {
		total += c
	}

	return &Stats{
		AffiliatesByType:    byType,
		WithdrawalsByStatus: byStatus,
		TotalAffiliates:     total,
	}, nil
}
