package models

import (
	"time"
)

// Withdrawal statuses. Pending -> Processing -> {Completed, Rejected,
// Cancelled}. Only the Pending->Processing edge debits the ledger and only
// Processing->{Rejected,Cancelled} reverses it.
const (
	WithdrawalStatusPending    = "Pending"
	WithdrawalStatusProcessing = "Processing"
	WithdrawalStatusCompleted  = "Completed"
	WithdrawalStatusRejected   = "Rejected"
	WithdrawalStatusCancelled  = "Cancelled"
)

// ValidWithdrawalStatus reports whether s is one of the five statuses.
func ValidWithdrawalStatus(s string) bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusCompleted,
		WithdrawalStatusRejected, WithdrawalStatusCancelled:
		return true
	}
	return false
}

// WithdrawalHistory is one requested payout. Rows are addressed by the
// surrogate ID (or the unique WithdrawalNo); the (affiliate_id, request_date)
// pair is kept only as a compatibility lookup for older clients.
type WithdrawalHistory struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo string `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"`
	AffiliateID  int64  `gorm:"index;not null" json:"affiliate_id"`

	Amount    int64 `gorm:"not null" json:"amount"`
	TaxAmount int64 `gorm:"not null;default:0" json:"tax_amount"`
	NetAmount int64 `gorm:"not null" json:"net_amount"`
	HasTax    bool  `gorm:"not null;default:false" json:"has_tax"`

	Note          string     `gorm:"type:varchar(500)" json:"note"`
	TaxID         string     `gorm:"type:varchar(20)" json:"tax_id"`
	Status        string     `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	Message       string     `gorm:"type:varchar(500)" json:"message"`
	TransactionID string     `gorm:"type:varchar(64)" json:"transaction_id"`
	RequestDate   time.Time  `gorm:"index;not null" json:"request_date"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	OperatorID    *int64     `json:"operator_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
	Operator  *User      `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
}

// TableName overrides the default table name.
func (WithdrawalHistory) TableName() string {
	return "withdrawal_histories"
}
