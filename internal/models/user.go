package models

import (
	"time"
)

// Role is the closed set of account roles. It is resolved once when a token
// is issued; request handling never re-parses role strings.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAffiliate Role = "affiliate"
	RoleKolVip    Role = "kol_vip"
)

// ParseRole maps a stored role value to the closed enum.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleAffiliate, RoleKolVip:
		return Role(s), true
	}
	return "", false
}

// IsAdmin reports whether the role grants admin access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a login account. Affiliate profile data lives on the Affiliate
// row keyed by UserID.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string    `gorm:"type:varchar(100);not null" json:"full_name"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'affiliate'" json:"role"`
	Status       int8      `gorm:"type:smallint;not null;default:1" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default table name.
func (User) TableName() string {
	return "users"
}

// UserStatus values
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)
