package models

import (
	"time"
)

// AffiliateType determines which commission rule applies to signed contracts.
const (
	AffiliateTypePartner = "partner"
	AffiliateTypeSme     = "sme"
	AffiliateTypeKolVip  = "kol_vip"
)

// Affiliate is a commission-earning participant together with its balance
// ledger. All amounts are whole VND.
//
// Ledger invariant: RemainingBalance = ReceivedBalance - PaidBalance at all
// times; every mutation goes through a transaction that also writes the
// matching customer or withdrawal row.
type Affiliate struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AffiliateCode string `gorm:"type:varchar(20);uniqueIndex;not null" json:"affiliate_code"`
	UserID        int64  `gorm:"uniqueIndex;not null" json:"user_id"`
	FullName      string `gorm:"type:varchar(100);not null" json:"full_name"`
	Email         string `gorm:"type:varchar(255);not null" json:"email"`
	Phone         string `gorm:"type:varchar(20)" json:"phone"`
	BankAccount   string `gorm:"type:varchar(64)" json:"bank_account"`
	BankName      string `gorm:"type:varchar(100)" json:"bank_name"`
	Type          string `gorm:"type:varchar(20);not null;default:'partner'" json:"type"`

	TotalContracts   int   `gorm:"not null;default:0" json:"total_contracts"`
	ContractValue    int64 `gorm:"not null;default:0" json:"contract_value"`
	ReceivedBalance  int64 `gorm:"not null;default:0" json:"received_balance"`
	PaidBalance      int64 `gorm:"not null;default:0" json:"paid_balance"`
	RemainingBalance int64 `gorm:"not null;default:0" json:"remaining_balance"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User        *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Customers   []ReferredCustomer  `gorm:"foreignKey:AffiliateID" json:"customers,omitempty"`
	Withdrawals []WithdrawalHistory `gorm:"foreignKey:AffiliateID" json:"withdrawals,omitempty"`
}

// TableName overrides the default table name.
func (Affiliate) TableName() string {
	return "affiliates"
}

// CommissionRole returns the affiliate type used for commission calculation.
// KOL/VIP accounts always settle at the percentage rate regardless of the
// stored type.
func (a *Affiliate) CommissionRole() string {
	if a.Type == AffiliateTypeKolVip {
		return AffiliateTypeKolVip
	}
	return a.Type
}
