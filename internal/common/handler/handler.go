// Package handler provides shared helpers for the HTTP handler layer.
// It reduces repetition around error handling, auth checks and parameter
// parsing so individual handlers stay focused on their endpoint logic.
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/errors"
	"github.com/affilink/affiliate-backend/internal/common/response"
	"github.com/affilink/affiliate-backend/internal/common/utils"
	"github.com/affilink/affiliate-backend/internal/middleware"
)

// HandleError sends an error response if err is non-nil.
// Returns true when an error was handled, in which case the caller
// should return immediately.
//
// Usage:
//
//	result, err := service.DoSomething()
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*errors.AppError); ok {
		if appErr.Data != nil {
			response.ErrorWithData(c, appErr.Code, appErr.Message, appErr.Data)
		} else {
			response.Error(c, appErr.Code, appErr.Message)
		}
		return true
	}
	response.InternalError(c, err.Error())
	return true
}

// HandleErrorWithMessage is HandleError with a custom message for
// non-AppError errors, for cases where internal details must be hidden.
func HandleErrorWithMessage(c *gin.Context, err error, message string) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*errors.AppError); ok {
		response.Error(c, appErr.Code, appErr.Message)
		return true
	}
	response.InternalError(c, message)
	return true
}

// MustSucceed replies with an error response when err is non-nil,
// otherwise with a success response carrying data. Callers must return
// after invoking it.
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage is MustSucceed with a custom success message.
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage is the paginated variant of MustSucceed.
//
//	list, total, err := service.GetList(offset, limit)
//	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
//	return
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// RequireUserID returns the authenticated user ID or sends a 401 and
// returns false.
func RequireUserID(c *gin.Context) (int64, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "Vui lòng đăng nhập")
		return 0, false
	}
	return userID, true
}

// RequireAdminID returns the authenticated admin ID or sends a 401 and
// returns false.
func RequireAdminID(c *gin.Context) (int64, bool) {
	adminID := middleware.GetAdminID(c)
	if adminID == 0 {
		response.Unauthorized(c, "Vui lòng đăng nhập")
		return 0, false
	}
	return adminID, true
}

// GetOptionalUserID returns the authenticated user ID, or 0 when the
// request is anonymous. No response is written.
func GetOptionalUserID(c *gin.Context) int64 {
	return middleware.GetUserID(c)
}

// ParseID parses the "id" path parameter as int64.
// On failure a 400 response is sent and false is returned.
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID parses a named path parameter as int64.
// resourceName is used in the error message shown to the caller.
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "ID "+resourceName+" không hợp lệ")
		return 0, false
	}
	return id, true
}

// ParseQueryID parses an optional int64 query parameter.
// Returns (nil, true) when the parameter is absent.
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "ID "+resourceName+" không hợp lệ")
		return nil, false
	}
	return &id, true
}

// Date and time layouts accepted by the parsing helpers.
const (
	DateFormat        = "2006-01-02"
	DateTimeFormat    = "2006-01-02 15:04:05"
	DateTimeFormatISO = "2006-01-02T15:04:05Z07:00"
)

var dateTimeFormats = []string{
	DateTimeFormatISO,
	DateTimeFormat,
	"2006-01-02T15:04:05",
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// ParseDateTime parses a datetime string, trying the supported layouts
// in order.
func ParseDateTime(s string) (time.Time, error) {
	for _, format := range dateTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.ErrInvalidParams.WithMessage("Định dạng thời gian không hợp lệ")
}

// ParseQueryDate parses an optional date query parameter.
// Returns (nil, true) when the parameter is absent.
func ParseQueryDate(c *gin.Context, paramName, errorMsg string) (*time.Time, bool) {
	dateStr := c.Query(paramName)
	if dateStr == "" {
		return nil, true
	}
	t, err := ParseDate(dateStr)
	if err != nil {
		response.BadRequest(c, errorMsg)
		return nil, false
	}
	return &t, true
}

// ParseQueryDateRange parses the optional start_date and end_date query
// parameters. The end date is pushed to the last second of that day.
func ParseQueryDateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var start, end *time.Time

	startStr := c.Query("start_date")
	if startStr != "" {
		t, err := ParseDate(startStr)
		if err != nil {
			response.BadRequest(c, "Ngày bắt đầu không hợp lệ")
			return nil, nil, false
		}
		start = &t
	}

	endStr := c.Query("end_date")
	if endStr != "" {
		t, err := ParseDate(endStr)
		if err != nil {
			response.BadRequest(c, "Ngày kết thúc không hợp lệ")
			return nil, nil, false
		}
		endOfDay := t.Add(24*time.Hour - time.Second)
		end = &endOfDay
	}

	return start, end, true
}

// BindPagination binds and normalizes the page and page_size query
// parameters. Defaults are page=1, page_size=10.
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}

// RequireUserAndParseID combines RequireUserID and ParseID for handlers
// that operate on a resource owned by the caller.
func RequireUserAndParseID(c *gin.Context, resourceName string) (userID, resourceID int64, ok bool) {
	userID, ok = RequireUserID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return userID, resourceID, true
}

// RequireAdminAndParseID combines RequireAdminID and ParseID.
func RequireAdminAndParseID(c *gin.Context, resourceName string) (adminID, resourceID int64, ok bool) {
	adminID, ok = RequireAdminID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return adminID, resourceID, true
}
