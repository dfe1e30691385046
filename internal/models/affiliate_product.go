package models

import "time"

// AffiliateProduct: sellable cruise product with its commission tier snapshot.
type AffiliateProduct struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ProductCode string `gorm:"size:50;uniqueIndex;not null" json:"product_code"`
	Title       string `gorm:"size:255" json:"title"`
	CabinType   string `gorm:"size:50" json:"cabin_type"`
	Currency    string `gorm:"size:3;default:KRW" json:"currency"`

	// Tier amounts per sale (KRW). Nil means "not configured".
	SaleAmount        *int64 `json:"sale_amount"`
	CostAmount        *int64 `json:"cost_amount"`
	HqShareAmount     *int64 `json:"hq_share_amount"`
	BranchShareAmount *int64 `json:"branch_share_amount"`
	SalesShareAmount  *int64 `json:"sales_share_amount"`
	OverrideAmount    *int64 `json:"override_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
