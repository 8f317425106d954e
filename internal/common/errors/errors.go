// Package errors defines business error codes and error handling.
package errors

import (
	"fmt"
)

// AppError is a structured application error with a stable numeric code.
// Data carries optional machine-readable details (for example the daily
// limit figures or the remaining OTP attempts) that the response layer
// forwards to the client.
type AppError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an application error.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an underlying error with a code and message.
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage returns a copy with a different message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Data:    e.Data,
		Err:     e.Err,
	}
}

// WithError returns a copy carrying the original error.
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Data:    e.Data,
		Err:     err,
	}
}

// WithData returns a copy carrying structured detail data.
func (e *AppError) WithData(data interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Data:    data,
		Err:     e.Err,
	}
}

// Generic error codes (1000-1999)
var (
	ErrUnknown         = New(1000, "Đã xảy ra lỗi, vui lòng thử lại")
	ErrInvalidParams   = New(1001, "Tham số không hợp lệ")
	ErrNotFound        = New(1002, "Không tìm thấy dữ liệu")
	ErrAlreadyExists   = New(1003, "Dữ liệu đã tồn tại")
	ErrDatabaseError   = New(1004, "Lỗi cơ sở dữ liệu")
	ErrCacheError      = New(1005, "Lỗi bộ nhớ đệm")
	ErrInternalError   = New(1006, "Lỗi hệ thống")
	ErrExternalService = New(1007, "Lỗi dịch vụ bên ngoài")
	ErrRateLimitExceed = New(1008, "Thao tác quá thường xuyên")
	ErrOperationFailed = New(1009, "Thao tác thất bại")
)

// Auth error codes (2000-2999)
var (
	ErrUnauthorized     = New(2000, "Vui lòng đăng nhập")
	ErrTokenExpired     = New(2001, "Phiên đăng nhập đã hết hạn")
	ErrTokenInvalid     = New(2002, "Token không hợp lệ")
	ErrPermissionDenied = New(2003, "Không có quyền truy cập")
	ErrAccountDisabled  = New(2004, "Tài khoản đã bị khóa")
	ErrPasswordError    = New(2005, "Email hoặc mật khẩu không đúng")
	ErrEmailExists      = New(2006, "Email đã được đăng ký")
	ErrInvalidRole      = New(2007, "Vai trò không hợp lệ")
)

// Affiliate error codes (3000-3999)
var (
	ErrAffiliateNotFound     = New(3000, "Không tìm thấy cộng tác viên")
	ErrAffiliateExists       = New(3001, "Cộng tác viên đã tồn tại")
	ErrCustomerNotFound      = New(3002, "Không tìm thấy khách hàng")
	ErrInvalidCustomerStatus = New(3003, "Trạng thái khách hàng không hợp lệ")
	ErrContractValueRequired = New(3004, "Vui lòng nhập giá trị hợp đồng")
)

// OTP error codes (4000-4999)
var (
	ErrInvalidOtp     = New(4000, "Mã OTP không đúng")
	ErrOtpExpired     = New(4001, "Mã OTP đã hết hạn, vui lòng yêu cầu mã mới")
	ErrOtpExhausted   = New(4002, "Bạn đã nhập sai quá số lần cho phép, vui lòng yêu cầu mã mới")
	ErrOtpSendTooFast = New(4003, "Gửi mã quá thường xuyên, vui lòng thử lại sau")
	ErrOtpDailyLimit  = New(4004, "Đã đạt giới hạn gửi mã trong ngày")
	ErrOtpSendFailed  = New(4005, "Không thể gửi email mã xác thực")
)

// Withdrawal error codes (5000-5999)
var (
	ErrInvalidAmount        = New(5000, "Số tiền rút không hợp lệ")
	ErrInsufficientBalance  = New(5001, "Số dư khả dụng không đủ")
	ErrDailyLimitExceeded   = New(5002, "Vượt quá hạn mức rút tiền trong ngày")
	ErrWithdrawalNotFound   = New(5003, "Không tìm thấy yêu cầu rút tiền")
	ErrInvalidStatusValue   = New(5004, "Trạng thái rút tiền không hợp lệ")
	ErrWithdrawalTransition = New(5005, "Không thể chuyển trạng thái yêu cầu rút tiền")
)

// IsAppError reports whether err is an application error.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError converts err to an application error, wrapping unknown errors.
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
