// Package auth provides the HTTP handlers for registration and login.
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/handler"
	"github.com/affilink/affiliate-backend/internal/common/response"
	"github.com/affilink/affiliate-backend/internal/middleware"
	authService "github.com/affilink/affiliate-backend/internal/service/auth"
)

// Handler serves the authentication endpoints.
type Handler struct {
	authService *authService.Service
}

// NewHandler creates the authentication handler.
func NewHandler(authSvc *authService.Service) *Handler {
	return &Handler{authService: authSvc}
}

// Register creates an affiliate account
// @Summary Register an affiliate account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body authService.RegisterInput true "Registration payload"
// @Success 200 {object} response.Response
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req authService.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "Đăng ký thành công", user)
}

// Login exchanges credentials for a token pair
// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body authService.LoginInput true "Login payload"
// @Success 200 {object} response.Response{data=authService.LoginResult}
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh issues a new access token
// @Summary Refresh the access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh token"
// @Success 200 {object} response.Response
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	accessToken, expiresAt, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if handler.HandleError(c, err) {
		return
	}

	response.Success(c, gin.H{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	})
}

// GetCurrentUser returns the logged-in account
// @Summary Get the current account
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=models.User}
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		userID = middleware.GetAdminID(c)
	}
	if userID == 0 {
		response.Unauthorized(c, "Chưa đăng nhập")
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	handler.MustSucceed(c, err, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword replaces the account password
// @Summary Change the current account password
// @Tags Auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body changePasswordRequest true "Old and new password"
// @Success 200 {object} response.Response
// @Router /auth/password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword)
	handler.MustSucceedWithMessage(c, err, "Đổi mật khẩu thành công", nil)
}

// RegisterRoutes registers the public authentication routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}
}

// RegisterProtectedRoutes registers routes that need a valid session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.GetCurrentUser)
		auth.PUT("/password", h.ChangePassword)
	}
}
