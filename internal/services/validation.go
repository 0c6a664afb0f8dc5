package services

import (
	"github.com/namhsc/tvtl-sub000/domain"
)

const minPasswordLength = 6

// ValidatePhone checks the platform's phone format: exactly 10 digits
// starting with 0. Runs before any network call.
func ValidatePhone(phone string) error {
	if len(phone) != 10 || phone[0] != '0' {
		return domain.ErrInvalidPhone
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return domain.ErrInvalidPhone
		}
	}
	return nil
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.ErrInvalidPassword
	}
	return nil
}

// ValidateOTPCode checks for exactly six digit characters.
func ValidateOTPCode(code string) error {
	if len(code) != 6 {
		return domain.ErrInvalidOTPCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return domain.ErrInvalidOTPCode
		}
	}
	return nil
}

// ValidateOTPMethod checks the delivery channel against the supported set.
// An empty method defaults to SMS.
func ValidateOTPMethod(method domain.OTPMethod) error {
	switch method {
	case "", domain.OTPMethodSMS, domain.OTPMethodZalo:
		return nil
	}
	return domain.ErrInvalidOTPMethod
}
