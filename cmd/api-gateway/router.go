// Package main is the API gateway entry point.
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affilink/affiliate-backend/internal/common/cache"
	"github.com/affilink/affiliate-backend/internal/common/config"
	"github.com/affilink/affiliate-backend/internal/common/jwt"
	"github.com/affilink/affiliate-backend/internal/common/metrics"
	"github.com/affilink/affiliate-backend/internal/common/qrcode"
	adminHandler "github.com/affilink/affiliate-backend/internal/handler/admin"
	affiliateHandler "github.com/affilink/affiliate-backend/internal/handler/affiliate"
	authHandler "github.com/affilink/affiliate-backend/internal/handler/auth"
	contentHandler "github.com/affilink/affiliate-backend/internal/handler/content"
	withdrawalHandler "github.com/affilink/affiliate-backend/internal/handler/withdrawal"
	"github.com/affilink/affiliate-backend/internal/middleware"
	"github.com/affilink/affiliate-backend/internal/repository"
	adminService "github.com/affilink/affiliate-backend/internal/service/admin"
	affiliateService "github.com/affilink/affiliate-backend/internal/service/affiliate"
	authService "github.com/affilink/affiliate-backend/internal/service/auth"
	commissionService "github.com/affilink/affiliate-backend/internal/service/commission"
	contentService "github.com/affilink/affiliate-backend/internal/service/content"
	otpService "github.com/affilink/affiliate-backend/internal/service/otp"
	withdrawalService "github.com/affilink/affiliate-backend/internal/service/withdrawal"
	"github.com/affilink/affiliate-backend/pkg/email"
	"github.com/affilink/affiliate-backend/pkg/webhook"
)

// setupRouter wires repositories, services and handlers onto the gin
// engine.
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) {
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// repositories
	userRepo := repository.NewUserRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	otpRepo := repository.NewOtpRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	kitRepo := repository.NewSalesKitRepository(db)

	// external clients
	var sender email.Sender
	if cfg.Email.Provider == "sendgrid" {
		sender = email.NewSendGridSender(&email.Config{
			APIKey:      cfg.Email.APIKey,
			FromName:    cfg.Email.FromName,
			FromAddress: cfg.Email.FromAddress,
		})
	} else {
		// development fallback, delivered codes end up in the log only
		sender = email.NewMockSender()
	}

	notifier := webhook.NewNotifier(&webhook.Config{
		Enabled: cfg.Webhook.Enabled,
		URL:     cfg.Webhook.URL,
		Secret:  cfg.Webhook.Secret,
		Timeout: time.Duration(cfg.Webhook.Timeout) * time.Second,
	}, logger)

	qrGen := qrcode.NewGenerator()
	invalidator := cache.NewInvalidator(redisClient)

	// services
	commissionSvc := commissionService.NewService(&cfg.Business.Commission)
	otpSvc := otpService.NewService(otpRepo, db, redisClient, sender, &cfg.Business.Otp)
	authSvc := authService.NewService(userRepo, affiliateRepo, db, jwtManager, &cfg.Crypto)
	affiliateSvc := affiliateService.NewService(
		affiliateRepo, customerRepo, commissionSvc, db, redisClient, notifier, qrGen, &cfg.Server)
	withdrawalSvc := withdrawalService.NewService(
		withdrawalRepo, affiliateRepo, userRepo, otpSvc, db, redisClient,
		sender, notifier, invalidator, &cfg.Business.Withdrawal, &cfg.Business.Otp)
	adminSvc := adminService.NewService(affiliateRepo, customerRepo, withdrawalRepo, userRepo, invalidator)
	contentSvc := contentService.NewService(videoRepo, kitRepo)

	// handlers
	authH := authHandler.NewHandler(authSvc)
	affiliateH := affiliateHandler.NewHandler(affiliateSvc)
	withdrawalH := withdrawalHandler.NewHandler(withdrawalSvc)
	adminH := adminHandler.NewHandler(adminSvc, affiliateSvc, withdrawalSvc)
	contentH := contentHandler.NewHandler(contentSvc)

	// global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
		corsCfg.AllowCredentials = cfg.CORS.AllowCredentials
	}
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.AccessLog(logger))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Init(cfg.Server.Name).Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// health checks, no authentication
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// public endpoints
		public := v1.Group("")
		if cfg.RateLimit.Enabled {
			limitCfg := middleware.DefaultRateLimitConfig(redisClient)
			limitCfg.Limit = cfg.RateLimit.RequestsPerMinute
			public.Use(middleware.RateLimit(limitCfg))
		}
		{
			authH.RegisterRoutes(public)
		}

		// affiliate endpoints, logged-in affiliates only
		user := v1.Group("")
		user.Use(middleware.UserAuth(jwtManager))
		{
			authH.RegisterProtectedRoutes(user)

			affiliate := user.Group("")
			affiliate.Use(middleware.RequireAffiliate())
			{
				affiliateH.RegisterRoutes(affiliate)
				withdrawalH.RegisterRoutes(affiliate)
				contentH.RegisterRoutes(affiliate)
			}
		}
	}

	// management console
	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth(jwtManager))
	admin.Use(middleware.RequireAdmin())
	{
		adminH.RegisterRoutes(admin)
		contentH.RegisterAdminRoutes(admin)
	}
}
