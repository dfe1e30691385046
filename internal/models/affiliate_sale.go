package models

import "time"

type AffiliateSaleStatus string

const (
	SaleStatusPending         AffiliateSaleStatus = "PENDING"
	SaleStatusConfirmed       AffiliateSaleStatus = "CONFIRMED"
	SaleStatusPaid            AffiliateSaleStatus = "PAID"
	SaleStatusPayoutScheduled AffiliateSaleStatus = "PAYOUT_SCHEDULED"
	SaleStatusRefunded        AffiliateSaleStatus = "REFUNDED"
	SaleStatusCancelled       AffiliateSaleStatus = "CANCELLED"
)

// SettledSaleStatuses: statuses counted by the settlement report.
var SettledSaleStatuses = []AffiliateSaleStatus{
	SaleStatusConfirmed,
	SaleStatusPaid,
	SaleStatusPayoutScheduled,
}

type AffiliateSale struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	ProductCode string            `gorm:"size:50;index" json:"product_code"`
	ProductID   *uint             `gorm:"index" json:"product_id"`
	Product     *AffiliateProduct `json:"product,omitempty"`

	ManagerID *uint             `gorm:"index" json:"manager_id"`
	Manager   *AffiliateProfile `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	AgentID   *uint             `gorm:"index" json:"agent_id"`
	Agent     *AffiliateProfile `gorm:"foreignKey:AgentID" json:"agent,omitempty"`

	CustomerName string `gorm:"size:100" json:"customer_name"`
	Headcount    int    `gorm:"default:0" json:"headcount"`
	SaleAmount   int64  `gorm:"default:0" json:"sale_amount"`
	CostAmount   int64  `gorm:"default:0" json:"cost_amount"`
	NetRevenue   *int64 `json:"net_revenue"` // nil: derived as sale - cost

	Status      AffiliateSaleStatus `gorm:"size:30;index;not null" json:"status"`
	SaleDate    *time.Time          `gorm:"index" json:"sale_date"`
	ConfirmedAt *time.Time          `gorm:"index" json:"confirmed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveNetRevenue: stored net revenue, or sale - cost when it was never set.
func (s *AffiliateSale) EffectiveNetRevenue() int64 {
	if s.NetRevenue != nil {
		return *s.NetRevenue
	}
	return s.SaleAmount - s.CostAmount
}
