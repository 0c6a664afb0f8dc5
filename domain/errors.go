package domain

import "errors"

// Validation errors (local, surfaced per-field before any network call)
var (
	ErrInvalidPhone     = errors.New("số điện thoại không hợp lệ")
	ErrInvalidPassword  = errors.New("mật khẩu phải có ít nhất 6 ký tự")
	ErrPasswordMismatch = errors.New("mật khẩu xác nhận không khớp")
	ErrInvalidOTPCode   = errors.New("mã xác thực phải gồm 6 chữ số")
	ErrInvalidOTPMethod = errors.New("phương thức gửi mã không được hỗ trợ")
)

// Session errors
var (
	ErrOperationInProgress = errors.New("request already in progress")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrSessionExpired      = errors.New("session has expired")
	ErrSessionPersist      = errors.New("không thể lưu phiên đăng nhập")
	ErrRequestDeclined     = errors.New("yêu cầu bị từ chối")
)

// Token store errors
var (
	ErrRecordNotFound = errors.New("token record not found")
	ErrRecordCorrupt  = errors.New("token record corrupt")
	ErrPartialRecord  = errors.New("refusing to persist partial token record")
)

// Token errors
var (
	ErrTokenMalformed = errors.New("malformed token")
)

// OTP challenge errors
var (
	ErrMissingOTPContext = errors.New("otp challenge context incomplete")
	ErrResendThrottled   = errors.New("otp resend not yet available")
	ErrChallengeClosed   = errors.New("otp challenge closed")
	ErrOTPDispatch       = errors.New("otp dispatch failed")
)
