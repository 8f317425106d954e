// Package admin provides the HTTP handlers for the management console:
// affiliates, customers, users, withdrawals and platform stats.
package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/handler"
	"github.com/affilink/affiliate-backend/internal/common/response"
	adminService "github.com/affilink/affiliate-backend/internal/service/admin"
	affiliateService "github.com/affilink/affiliate-backend/internal/service/affiliate"
	withdrawalService "github.com/affilink/affiliate-backend/internal/service/withdrawal"
)

// Handler serves the admin endpoints.
type Handler struct {
	adminService      *adminService.Service
	affiliateService  *affiliateService.Service
	withdrawalService *withdrawalService.Service
}

// NewHandler creates the admin handler.
func NewHandler(
	adminSvc *adminService.Service,
	affiliateSvc *affiliateService.Service,
	withdrawalSvc *withdrawalService.Service,
) *Handler {
	return &Handler{
		adminService:      adminSvc,
		affiliateService:  affiliateSvc,
		withdrawalService: withdrawalSvc,
	}
}

// ListAffiliates lists affiliates
// @Summary List affiliates (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param type query string false "Affiliate type filter"
// @Param keyword query string false "Name or code keyword"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/affiliates [get]
func (h *Handler) ListAffiliates(c *gin.Context) {
	page := handler.BindPagination(c)
	filters := map[string]interface{}{
		"type":    c.Query("type"),
		"keyword": c.Query("keyword"),
	}

	affiliates, total, err := h.adminService.ListAffiliates(
		c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, affiliates, total, page.Page, page.PageSize)
}

// GetAffiliate returns one affiliate with recent activity
// @Summary Get affiliate detail (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "Affiliate ID"
// @Success 200 {object} response.Response{data=adminService.AffiliateDetail}
// @Router /admin/affiliates/{id} [get]
func (h *Handler) GetAffiliate(c *gin.Context) {
	affiliateID, ok := handler.ParseID(c, "affiliate")
	if !ok {
		return
	}

	detail, err := h.adminService.GetAffiliate(c.Request.Context(), affiliateID)
	handler.MustSucceed(c, err, detail)
}

type updateTypeRequest struct {
	Type string `json:"type" binding:"required"`
}

// UpdateAffiliateType changes the commission tier of an affiliate
// @Summary Change affiliate type (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Affiliate ID"
// @Param request body updateTypeRequest true "New affiliate type"
// @Success 200 {object} response.Response{data=models.Affiliate}
// @Router /admin/affiliates/{id}/type [put]
func (h *Handler) UpdateAffiliateType(c *gin.Context) {
	affiliateID, ok := handler.ParseID(c, "affiliate")
	if !ok {
		return
	}

	var req updateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	affiliate, err := h.adminService.UpdateAffiliateType(c.Request.Context(), affiliateID, req.Type)
	handler.MustSucceedWithMessage(c, err, "Cập nhật loại affiliate thành công", affiliate)
}

// ListCustomers lists referred customers across all affiliates
// @Summary List referred customers (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param affiliate_id query int false "Affiliate filter"
// @Param status query string false "Customer status filter"
// @Param keyword query string false "Customer name keyword"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/customers [get]
func (h *Handler) ListCustomers(c *gin.Context) {
	page := handler.BindPagination(c)
	filters := map[string]interface{}{
		"status":  c.Query("status"),
		"keyword": c.Query("keyword"),
	}
	if affiliateID, err := strconv.ParseInt(c.Query("affiliate_id"), 10, 64); err == nil {
		filters["affiliate_id"] = affiliateID
	}

	customers, total, err := h.adminService.ListCustomers(
		c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, customers, total, page.Page, page.PageSize)
}

type recalculateRequest struct {
	ContractValue int64 `json:"contract_value" binding:"required"`
}

// RecalculateCommission adjusts a signed contract value and settles the
// commission difference on the affiliate ledger
// @Summary Recalculate commission for a signed customer (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Customer ID"
// @Param request body recalculateRequest true "New contract value"
// @Success 200 {object} response.Response{data=models.ReferredCustomer}
// @Router /admin/customers/{id}/recalculate [post]
func (h *Handler) RecalculateCommission(c *gin.Context) {
	customerID, ok := handler.ParseID(c, "khách hàng")
	if !ok {
		return
	}

	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	customer, err := h.affiliateService.RecalculateCommission(c.Request.Context(), customerID, req.ContractValue)
	handler.MustSucceedWithMessage(c, err, "Tính lại hoa hồng thành công", customer)
}

// ListUsers lists login accounts
// @Summary List user accounts (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param keyword query string false "Email or name keyword"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page := handler.BindPagination(c)
	filters := map[string]interface{}{
		"role":    c.Query("role"),
		"keyword": c.Query("keyword"),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		if status, err := strconv.ParseInt(statusStr, 10, 8); err == nil {
			filters["status"] = int8(status)
		}
	}

	users, total, err := h.adminService.ListUsers(
		c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, users, total, page.Page, page.PageSize)
}

type userStatusRequest struct {
	Status *int8 `json:"status" binding:"required"`
}

// SetUserStatus enables or disables a login account
// @Summary Enable or disable a user account (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param request body userStatusRequest true "New status, 0 disabled 1 active"
// @Success 200 {object} response.Response
// @Router /admin/users/{id}/status [put]
func (h *Handler) SetUserStatus(c *gin.Context) {
	userID, ok := handler.ParseID(c, "tài khoản")
	if !ok {
		return
	}

	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	err := h.adminService.SetUserStatus(c.Request.Context(), userID, *req.Status)
	handler.MustSucceedWithMessage(c, err, "Cập nhật trạng thái tài khoản thành công", nil)
}

// ListWithdrawals lists withdrawals across all affiliates
// @Summary List withdrawals (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param affiliate_id query int false "Affiliate filter"
// @Param status query string false "Status filter"
// @Param start_date query string false "Request date from (YYYY-MM-DD)"
// @Param end_date query string false "Request date to (YYYY-MM-DD)"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/withdrawals [get]
func (h *Handler) ListWithdrawals(c *gin.Context) {
	page := handler.BindPagination(c)
	filters := map[string]interface{}{
		"status": c.Query("status"),
	}
	if affiliateID, err := strconv.ParseInt(c.Query("affiliate_id"), 10, 64); err == nil {
		filters["affiliate_id"] = affiliateID
	}

	startTime, endTime, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}
	if startTime != nil {
		filters["start_time"] = *startTime
	}
	if endTime != nil {
		filters["end_time"] = *endTime
	}

	withdrawals, total, err := h.withdrawalService.List(
		c.Request.Context(), page.GetOffset(), page.GetLimit(), filters)
	handler.MustSucceedPage(c, err, withdrawals, total, page.Page, page.PageSize)
}

// GetWithdrawal returns one withdrawal
// @Summary Get withdrawal detail (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} response.Response{data=models.WithdrawalHistory}
// @Router /admin/withdrawals/{id} [get]
func (h *Handler) GetWithdrawal(c *gin.Context) {
	withdrawalID, ok := handler.ParseID(c, "yêu cầu rút tiền")
	if !ok {
		return
	}

	withdrawal, err := h.withdrawalService.GetByID(c.Request.Context(), withdrawalID)
	handler.MustSucceed(c, err, withdrawal)
}

// SetWithdrawalStatus applies a status transition with its compensating
// ledger update
// @Summary Transition a withdrawal status (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Withdrawal ID"
// @Param request body withdrawalService.SetStatusInput true "Target status with optional note"
// @Success 200 {object} response.Response{data=models.WithdrawalHistory}
// @Router /admin/withdrawals/{id}/status [put]
func (h *Handler) SetWithdrawalStatus(c *gin.Context) {
	adminID, withdrawalID, ok := handler.RequireAdminAndParseID(c, "yêu cầu rút tiền")
	if !ok {
		return
	}

	var req withdrawalService.SetStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	withdrawal, err := h.withdrawalService.SetStatus(c.Request.Context(), withdrawalID, adminID, &req)
	handler.MustSucceedWithMessage(c, err, "Cập nhật trạng thái rút tiền thành công", withdrawal)
}

// GetStats returns the platform summary
// @Summary Get platform statistics (admin)
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=adminService.Stats}
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	handler.MustSucceed(c, err, stats)
}

// RegisterRoutes registers the management routes. The caller is
// expected to guard the group with admin authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/affiliates", h.ListAffiliates)
	r.GET("/affiliates/:id", h.GetAffiliate)
	r.PUT("/affiliates/:id/type", h.UpdateAffiliateType)

	r.GET("/customers", h.ListCustomers)
	r.POST("/customers/:id/recalculate", h.RecalculateCommission)

	r.GET("/users", h.ListUsers)
	r.PUT("/users/:id/status", h.SetUserStatus)

	r.GET("/withdrawals", h.ListWithdrawals)
	r.GET("/withdrawals/:id", h.GetWithdrawal)
	r.PUT("/withdrawals/:id/status", h.SetWithdrawalStatus)

	r.GET("/stats", h.GetStats)
}
