package models

import "time"

type CommissionEntryType string

const (
	EntryHQNet              CommissionEntryType = "HQ_NET"
	EntryBranchCommission   CommissionEntryType = "BRANCH_COMMISSION"
	EntryOverrideCommission CommissionEntryType = "OVERRIDE_COMMISSION"
	EntrySalesCommission    CommissionEntryType = "SALES_COMMISSION"
	EntryWithholding        CommissionEntryType = "WITHHOLDING"
	EntryAdjustment         CommissionEntryType = "ADJUSTMENT"
)

// SettlementEntryTypes: entry types folded by the settlement report.
var SettlementEntryTypes = []CommissionEntryType{
	EntryHQNet,
	EntryBranchCommission,
	EntryOverrideCommission,
	EntrySalesCommission,
	EntryWithholding,
}

// CommissionLedger: one immutable accounting line of a sale's commission distribution.
type CommissionLedger struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	SaleID    uint                `gorm:"index;not null" json:"sale_id"`
	Sale      *AffiliateSale      `json:"-"`
	ProfileID *uint               `gorm:"index" json:"profile_id"` // nil for HQ_NET
	Profile   *AffiliateProfile   `json:"-"`
	EntryType CommissionEntryType `gorm:"size:30;index;not null" json:"entry_type"`

	Amount            int64  `gorm:"not null" json:"amount"`
	WithholdingAmount *int64 `json:"withholding_amount"`
	Currency          string `gorm:"size:3;default:KRW" json:"currency"`

	IsSettled bool   `gorm:"default:false" json:"is_settled"`
	Notes     string `gorm:"size:255" json:"notes"`
	Metadata  string `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}
