// Package affiliate provides the HTTP handlers for the affiliate
// self-service area: profile, dashboard and referred customers.
package affiliate

import (
	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/handler"
	"github.com/affilink/affiliate-backend/internal/common/response"
	affiliateService "github.com/affilink/affiliate-backend/internal/service/affiliate"
)

// Handler serves the affiliate endpoints.
type Handler struct {
	affiliateService *affiliateService.Service
}

// NewHandler creates the affiliate handler.
func NewHandler(affiliateSvc *affiliateService.Service) *Handler {
	return &Handler{affiliateService: affiliateSvc}
}

// GetProfile returns the affiliate profile of the current account
// @Summary Get the affiliate profile
// @Tags Affiliate
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=models.Affiliate}
// @Router /affiliate/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	profile, err := h.affiliateService.GetProfile(c.Request.Context(), userID)
	handler.MustSucceed(c, err, profile)
}

// UpdateProfile updates contact and payout details
// @Summary Update the affiliate profile
// @Tags Affiliate
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body affiliateService.UpdateProfileInput true "Profile fields"
// @Success 200 {object} response.Response{data=models.Affiliate}
// @Router /affiliate/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req affiliateService.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	profile, err := h.affiliateService.UpdateProfile(c.Request.Context(), userID, &req)
	handler.MustSucceedWithMessage(c, err, "Cập nhật hồ sơ thành công", profile)
}

// GetDashboard returns the affiliate dashboard
// @Summary Get the affiliate dashboard with referral link and QR code
// @Tags Affiliate
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=affiliateService.Dashboard}
// @Router /affiliate/dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.affiliateService.GetDashboard(c.Request.Context(), userID)
	handler.MustSucceed(c, err, dashboard)
}

// ListCustomers lists the referred customers of the current affiliate
// @Summary List referred customers
// @Tags Affiliate
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Customer status filter"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /affiliate/customers [get]
func (h *Handler) ListCustomers(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	page := handler.BindPagination(c)
	status := c.Query("status")

	customers, total, err := h.affiliateService.ListCustomers(
		c.Request.Context(), userID, page.GetOffset(), page.GetLimit(), status)
	handler.MustSucceedPage(c, err, customers, total, page.Page, page.PageSize)
}

// GetCustomer returns one referred customer
// @Summary Get a referred customer
// @Tags Affiliate
// @Produce json
// @Security Bearer
// @Param id path int true "Customer ID"
// @Success 200 {object} response.Response{data=models.ReferredCustomer}
// @Router /affiliate/customers/{id} [get]
func (h *Handler) GetCustomer(c *gin.Context) {
	userID, customerID, ok := handler.RequireUserAndParseID(c, "khách hàng")
	if !ok {
		return
	}

	customer, err := h.affiliateService.GetCustomer(c.Request.Context(), userID, customerID)
	handler.MustSucceed(c, err, customer)
}

// CreateCustomer registers a referred customer
// @Summary Create a referred customer
// @Tags Affiliate
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body affiliateService.CustomerInput true "Customer payload"
// @Success 200 {object} response.Response{data=models.ReferredCustomer}
// @Router /affiliate/customers [post]
func (h *Handler) CreateCustomer(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req affiliateService.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	customer, err := h.affiliateService.CreateCustomer(c.Request.Context(), userID, &req)
	handler.MustSucceedWithMessage(c, err, "Thêm khách hàng thành công", customer)
}

// UpdateCustomer updates a referred customer, including moving it into
// the signed state which credits the commission
// @Summary Update a referred customer
// @Tags Affiliate
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Customer ID"
// @Param request body affiliateService.CustomerInput true "Customer payload"
// @Success 200 {object} response.Response{data=models.ReferredCustomer}
// @Router /affiliate/customers/{id} [put]
func (h *Handler) UpdateCustomer(c *gin.Context) {
	userID, customerID, ok := handler.RequireUserAndParseID(c, "khách hàng")
	if !ok {
		return
	}

	var req affiliateService.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	customer, err := h.affiliateService.UpdateCustomer(c.Request.Context(), userID, customerID, &req)
	handler.MustSucceedWithMessage(c, err, "Cập nhật khách hàng thành công", customer)
}

// DeleteCustomer removes an unsigned referred customer
// @Summary Delete a referred customer
// @Tags Affiliate
// @Produce json
// @Security Bearer
// @Param id path int true "Customer ID"
// @Success 200 {object} response.Response
// @Router /affiliate/customers/{id} [delete]
func (h *Handler) DeleteCustomer(c *gin.Context) {
	userID, customerID, ok := handler.RequireUserAndParseID(c, "khách hàng")
	if !ok {
		return
	}

	err := h.affiliateService.DeleteCustomer(c.Request.Context(), userID, customerID)
	handler.MustSucceedWithMessage(c, err, "Xóa khách hàng thành công", nil)
}

// RegisterRoutes registers the affiliate routes. All of them require a
// logged-in affiliate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	aff := r.Group("/affiliate")
	{
		aff.GET("/profile", h.GetProfile)
		aff.PUT("/profile", h.UpdateProfile)
		aff.GET("/dashboard", h.GetDashboard)

		aff.GET("/customers", h.ListCustomers)
		aff.POST("/customers", h.CreateCustomer)
		aff.GET("/customers/:id", h.GetCustomer)
		aff.PUT("/customers/:id", h.UpdateCustomer)
		aff.DELETE("/customers/:id", h.DeleteCustomer)
	}
}
