// Package withdrawal provides the HTTP handlers for the two-phase
// withdrawal workflow: request with OTP delivery, then verification.
package withdrawal

import (
	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/handler"
	"github.com/affilink/affiliate-backend/internal/common/response"
	withdrawalService "github.com/affilink/affiliate-backend/internal/service/withdrawal"
)

// Handler serves the withdrawal endpoints.
type Handler struct {
	withdrawalService *withdrawalService.Service
}

// NewHandler creates the withdrawal handler.
func NewHandler(withdrawalSvc *withdrawalService.Service) *Handler {
	return &Handler{withdrawalService: withdrawalSvc}
}

// Request stages a withdrawal and sends the verification code
// @Summary Request a withdrawal (phase one, sends OTP)
// @Tags Withdrawal
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body withdrawalService.RequestInput true "Amount and payout note"
// @Success 200 {object} response.Response{data=withdrawalService.RequestResult}
// @Router /withdrawals/request [post]
func (h *Handler) Request(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req withdrawalService.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	result, err := h.withdrawalService.Request(c.Request.Context(), userID, &req)
	handler.MustSucceedWithMessage(c, err, "Đã gửi mã xác thực đến email của bạn", result)
}

type resendRequest struct {
	Token string `json:"token" binding:"required"`
}

// Resend re-sends the verification code for a staged withdrawal
// @Summary Resend the withdrawal OTP
// @Tags Withdrawal
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body resendRequest true "Staging token"
// @Success 200 {object} response.Response{data=withdrawalService.RequestResult}
// @Router /withdrawals/resend [post]
func (h *Handler) Resend(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	result, err := h.withdrawalService.Resend(c.Request.Context(), userID, req.Token)
	handler.MustSucceedWithMessage(c, err, "Đã gửi lại mã xác thực", result)
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// Verify confirms the OTP and commits the withdrawal
// @Summary Verify the OTP and create the withdrawal (phase two)
// @Tags Withdrawal
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body verifyRequest true "Staging token and OTP code"
// @Success 200 {object} response.Response{data=models.WithdrawalHistory}
// @Router /withdrawals/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	withdrawal, err := h.withdrawalService.Verify(c.Request.Context(), userID, req.Token, req.Code)
	handler.MustSucceedWithMessage(c, err, "Yêu cầu rút tiền đã được tạo", withdrawal)
}

// List lists the withdrawals of the current affiliate
// @Summary List my withdrawals
// @Tags Withdrawal
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /withdrawals [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	status := c.Query("status")

	withdrawals, total, err := h.withdrawalService.ListOwn(
		c.Request.Context(), userID, page.GetOffset(), page.GetLimit(), status)
	handler.MustSucceedPage(c, err, withdrawals, total, page.Page, page.PageSize)
}

// Get returns one withdrawal of the current affiliate
// @Summary Get one of my withdrawals
// @Tags Withdrawal
// @Produce json
// @Security Bearer
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} response.Response{data=models.WithdrawalHistory}
// @Router /withdrawals/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, withdrawalID, ok := handler.RequireUserAndParseID(c, "yêu cầu rút tiền")
	if !ok {
		return
	}

	withdrawal, err := h.withdrawalService.GetOwn(c.Request.Context(), userID, withdrawalID)
	handler.MustSucceed(c, err, withdrawal)
}

// DailyQuota returns the remaining withdrawal quota for today
// @Summary Get today's remaining withdrawal quota
// @Tags Withdrawal
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /withdrawals/quota [get]
func (h *Handler) DailyQuota(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	quota, err := h.withdrawalService.DailyQuota(c.Request.Context(), userID)
	handler.MustSucceed(c, err, quota)
}

// RegisterRoutes registers the withdrawal routes. All of them require a
// logged-in affiliate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	w := r.Group("/withdrawals")
	{
		w.POST("/request", h.Request)
		w.POST("/resend", h.Resend)
		w.POST("/verify", h.Verify)
		w.GET("", h.List)
		w.GET("/quota", h.DailyQuota)
		w.GET("/:id", h.Get)
	}
}
