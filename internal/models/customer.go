package models

import (
	"time"
)

// Customer pipeline statuses. The values are the user-facing Vietnamese
// labels and are stored verbatim.
const (
	CustomerStatusNew              = "Mới nhập"
	CustomerStatusConsulting       = "Đang tư vấn"
	CustomerStatusAwaitingResponse = "Chờ phản hồi"
	CustomerStatusContractSigned   = "Đã chốt hợp đồng"
	CustomerStatusNotPotential     = "Không tiềm năng"
)

// ValidCustomerStatus reports whether s is one of the pipeline statuses.
func ValidCustomerStatus(s string) bool {
	switch s {
	case CustomerStatusNew, CustomerStatusConsulting, CustomerStatusAwaitingResponse,
		CustomerStatusContractSigned, CustomerStatusNotPotential:
		return true
	}
	return false
}

// ReferredCustomer is a customer introduced by an affiliate. Commission is
// non-zero only once the status is "Đã chốt hợp đồng"; the credit to the
// owning affiliate happens exactly once on that transition.
type ReferredCustomer struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AffiliateID   int64      `gorm:"index;not null" json:"affiliate_id"`
	CustomerName  string     `gorm:"type:varchar(100);not null" json:"customer_name"`
	Status        string     `gorm:"type:varchar(50);not null" json:"status"`
	ContractValue *int64     `json:"contract_value,omitempty"`
	Commission    int64      `gorm:"not null;default:0" json:"commission"`
	ContractDate  *time.Time `json:"contract_date,omitempty"`
	Note          string     `gorm:"type:varchar(500)" json:"note"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
}

// TableName overrides the default table name.
func (ReferredCustomer) TableName() string {
	return "referred_customers"
}

// Signed reports whether the customer has a signed contract.
func (c *ReferredCustomer) Signed() bool {
	return c.Status == CustomerStatusContractSigned
}
