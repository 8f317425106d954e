// Package auth implements registration, login and token management.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/jwt"
	"github.com/affilink/affiliate-backend/internal/common/logger"
	"github.com/affilink/affiliate-backend/internal/common/utils"
	"github.com/affilink/affiliate-backend/internal/models"
	"github.com/affilink/affiliate-backend/internal/repository"
)

const affiliateCodeLength = 8

// Service handles accounts and sessions.
type Service struct {
	userRepo      *repository.UserRepository
	affiliateRepo *repository.AffiliateRepository
	db            *gorm.DB
	jwtManager    *jwt.Manager
	cryptoCfg     *config.CryptoConfig
}

// NewService creates an auth service.
func NewService(
	userRepo *repository.UserRepository,
	affiliateRepo *repository.AffiliateRepository,
	db *gorm.DB,
	jwtManager *jwt.Manager,
	cryptoCfg *config.CryptoConfig,
) *Service {
	return &Service{
		userRepo:      userRepo,
		affiliateRepo: affiliateRepo,
		db:            db,
		jwtManager:    jwtManager,
		cryptoCfg:     cryptoCfg,
	}
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Type     string `json:"type"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResult carries the session tokens and the account.
type LoginResult struct {
	User   *models.User   `json:"user"`
	Tokens *jwt.TokenPair `json:"tokens"`
}

// Register creates a user account together with its affiliate profile
// in one transaction.
func (s *Service) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if !utils.ValidateEmail(input.Email) {
		return nil, errors.ErrInvalidParams
	}

	exists, err := s.userRepo.ExistsEmail(ctx, input.Email)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrEmailExists
	}

	affType := input.Type
	switch affType {
	case "":
		affType = models.AffiliateTypePartner
	case models.AffiliateTypePartner, models.AffiliateTypeSme, models.AffiliateTypeKolVip:
	default:
		return nil, errors.ErrInvalidParams
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cryptoCfg.BcryptCost)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	role := models.RoleAffiliate
	if affType == models.AffiliateTypeKolVip {
		role = models.RoleKolVip
	}

	code, err := s.uniqueAffiliateCode(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         role,
		Status:       models.UserStatusActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.CreateTx(tx, user); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		affiliate := &models.Affiliate{
			AffiliateCode: code,
			UserID:        user.ID,
			FullName:      input.FullName,
			Email:         input.Email,
			Phone:         input.Phone,
			Type:          affType,
		}
		if err := s.affiliateRepo.CreateTx(tx, affiliate); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Info("user registered",
		logger.UserID(user.ID),
		logger.Module("auth"),
	)
	return user, nil
}

// Login verifies credentials and issues a token pair. The role enum is
// resolved here once; tokens carry it for the rest of the session.
func (s *Service) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errors.ErrPasswordError
	}
	if user.Status != models.UserStatusActive {
		return nil, errors.ErrAccountDisabled
	}

	role, ok := models.ParseRole(string(user.Role))
	if !ok {
		return nil, errors.ErrInvalidRole
	}
	userType := jwt.UserTypeUser
	if role.IsAdmin() {
		userType = jwt.UserTypeAdmin
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, userType, string(role))
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.GetLogger().Warn("failed to record last login", logger.UserID(user.ID))
	}

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	accessToken, expiresAt, err := s.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		if err == jwt.ErrTokenExpired {
			return "", 0, errors.ErrTokenExpired
		}
		return "", 0, errors.ErrTokenInvalid
	}
	return accessToken, expiresAt, nil
}

// ChangePassword verifies the old password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.ErrPasswordError.WithMessage("Mật khẩu hiện tại không đúng")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cryptoCfg.BcryptCost)
	if err != nil {
		return errors.ErrInternalError.WithError(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// GetCurrentUser returns the account behind a session.
func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return user, nil
}

// uniqueAffiliateCode draws referral codes until a free one is found.
func (s *Service) uniqueAffiliateCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		code := utils.GenerateAffiliateCode(affiliateCodeLength)
		taken, err := s.affiliateRepo.ExistsCode(ctx, code)
		if err != nil {
			return "", errors.ErrDatabaseError.WithError(err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.ErrOperationFailed
}
