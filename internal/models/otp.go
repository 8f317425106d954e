package models

import (
	"time"
)

// Verification purposes guarded by one-time codes.
const (
	VerificationTypeWithdrawal = "WITHDRAWAL"
)

// MaxOtpAttempts is the number of failed verifications after which a code is
// permanently dead.
const MaxOtpAttempts = 5

// OtpVerification is a one-time code tied to a user and a purpose. A code is
// usable only while IsUsed is false, AttemptCount < MaxOtpAttempts and the
// expiry has not passed. Issuing a new code for the same (user, purpose)
// invalidates all prior unused ones.
type OtpVerification struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64     `gorm:"index;not null" json:"user_id"`
	OtpCode          string    `gorm:"type:varchar(6);not null" json:"-"`
	VerificationType string    `gorm:"type:varchar(30);not null" json:"verification_type"`
	RelatedID        *string   `gorm:"type:varchar(64)" json:"related_id,omitempty"`
	ExpireAt         time.Time `gorm:"not null" json:"expire_at"`
	IsUsed           bool      `gorm:"not null;default:false" json:"is_used"`
	AttemptCount     int       `gorm:"not null;default:0" json:"attempt_count"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the default table name.
func (OtpVerification) TableName() string {
	return "otp_verifications"
}

// Usable reports whether the code can still be verified at time now.
func (o *OtpVerification) Usable(now time.Time) bool {
	return !o.IsUsed && o.AttemptCount < MaxOtpAttempts && now.Before(o.ExpireAt)
}
