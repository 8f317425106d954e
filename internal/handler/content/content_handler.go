// Package content provides the HTTP handlers for training videos and
// sales kits.
package content

import (
	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/handler"
	"github.com/affilink/affiliate-backend/internal/common/response"
	contentService "github.com/affilink/affiliate-backend/internal/service/content"
)

// Handler serves the content endpoints.
type Handler struct {
	contentService *contentService.Service
}

// NewHandler creates the content handler.
func NewHandler(contentSvc *contentService.Service) *Handler {
	return &Handler{contentService: contentSvc}
}

// ListVideos lists published training videos
// @Summary List published training videos
// @Tags Content
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /videos [get]
func (h *Handler) ListVideos(c *gin.Context) {
	page := handler.BindPagination(c)

	videos, total, err := h.contentService.ListVideos(c.Request.Context(), page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, videos, total, page.Page, page.PageSize)
}

// ListKits lists published sales kits
// @Summary List published sales kits
// @Tags Content
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param category query string false "Category filter"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /sales-kits [get]
func (h *Handler) ListKits(c *gin.Context) {
	page := handler.BindPagination(c)
	category := c.Query("category")

	kits, total, err := h.contentService.ListKits(c.Request.Context(), category, page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, kits, total, page.Page, page.PageSize)
}

// ListAllVideos lists every training video including hidden ones
// @Summary List all training videos (admin)
// @Tags Content
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/videos [get]
func (h *Handler) ListAllVideos(c *gin.Context) {
	page := handler.BindPagination(c)

	videos, total, err := h.contentService.ListAllVideos(c.Request.Context(), page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, videos, total, page.Page, page.PageSize)
}

// CreateVideo adds a training video
// @Summary Create a training video (admin)
// @Tags Content
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body contentService.VideoInput true "Video payload"
// @Success 200 {object} response.Response{data=models.TrainingVideo}
// @Router /admin/videos [post]
func (h *Handler) CreateVideo(c *gin.Context) {
	var req contentService.VideoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	video, err := h.contentService.CreateVideo(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "Thêm video thành công", video)
}

// UpdateVideo updates a training video
// @Summary Update a training video (admin)
// @Tags Content
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Video ID"
// @Param request body contentService.VideoInput true "Video payload"
// @Success 200 {object} response.Response{data=models.TrainingVideo}
// @Router /admin/videos/{id} [put]
func (h *Handler) UpdateVideo(c *gin.Context) {
	videoID, ok := handler.ParseID(c, "video")
	if !ok {
		return
	}

	var req contentService.VideoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	video, err := h.contentService.UpdateVideo(c.Request.Context(), videoID, &req)
	handler.MustSucceedWithMessage(c, err, "Cập nhật video thành công", video)
}

// DeleteVideo removes a training video
// @Summary Delete a training video (admin)
// @Tags Content
// @Produce json
// @Security Bearer
// @Param id path int true "Video ID"
// @Success 200 {object} response.Response
// @Router /admin/videos/{id} [delete]
func (h *Handler) DeleteVideo(c *gin.Context) {
	videoID, ok := handler.ParseID(c, "video")
	if !ok {
		return
	}

	err := h.contentService.DeleteVideo(c.Request.Context(), videoID)
	handler.MustSucceedWithMessage(c, err, "Xóa video thành công", nil)
}

// ListAllKits lists every sales kit including hidden ones
// @Summary List all sales kits (admin)
// @Tags Content
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/sales-kits [get]
func (h *Handler) ListAllKits(c *gin.Context) {
	page := handler.BindPagination(c)

	kits, total, err := h.contentService.ListAllKits(c.Request.Context(), page.GetOffset(), page.GetLimit())
	handler.MustSucceedPage(c, err, kits, total, page.Page, page.PageSize)
}

// CreateKit adds a sales kit
// @Summary Create a sales kit (admin)
// @Tags Content
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body contentService.KitInput true "Sales kit payload"
// @Success 200 {object} response.Response{data=models.SalesKit}
// @Router /admin/sales-kits [post]
func (h *Handler) CreateKit(c *gin.Context) {
	var req contentService.KitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	kit, err := h.contentService.CreateKit(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "Thêm tài liệu thành công", kit)
}

// UpdateKit updates a sales kit
// @Summary Update a sales kit (admin)
// @Tags Content
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Sales kit ID"
// @Param request body contentService.KitInput true "Sales kit payload"
// @Success 200 {object} response.Response{data=models.SalesKit}
// @Router /admin/sales-kits/{id} [put]
func (h *Handler) UpdateKit(c *gin.Context) {
	kitID, ok := handler.ParseID(c, "tài liệu")
	if !ok {
		return
	}

	var req contentService.KitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Tham số không hợp lệ")
		return
	}

	kit, err := h.contentService.UpdateKit(c.Request.Context(), kitID, &req)
	handler.MustSucceedWithMessage(c, err, "Cập nhật tài liệu thành công", kit)
}

// DeleteKit removes a sales kit
// @Summary Delete a sales kit (admin)
// @Tags Content
// @Produce json
// @Security Bearer
// @Param id path int true "Sales kit ID"
// @Success 200 {object} response.Response
// @Router /admin/sales-kits/{id} [delete]
func (h *Handler) DeleteKit(c *gin.Context) {
	kitID, ok := handler.ParseID(c, "tài liệu")
	if !ok {
		return
	}

	err := h.contentService.DeleteKit(c.Request.Context(), kitID)
	handler.MustSucceedWithMessage(c, err, "Xóa tài liệu thành công", nil)
}

// RegisterRoutes registers the published-content routes for logged-in
// affiliates.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/videos", h.ListVideos)
	r.GET("/sales-kits", h.ListKits)
}

// RegisterAdminRoutes registers the content management routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/videos", h.ListAllVideos)
	r.POST("/videos", h.CreateVideo)
	r.PUT("/videos/:id", h.UpdateVideo)
	r.DELETE("/videos/:id", h.DeleteVideo)

	r.GET("/sales-kits", h.ListAllKits)
	r.POST("/sales-kits", h.CreateKit)
	r.PUT("/sales-kits/:id", h.UpdateKit)
	r.DELETE("/sales-kits/:id", h.DeleteKit)
}
