package models

import "time"

type AffiliateProfileType string

const (
	ProfileTypeHQ            AffiliateProfileType = "HQ"
	ProfileTypeBranchManager AffiliateProfileType = "BRANCH_MANAGER"
	ProfileTypeSalesAgent    AffiliateProfileType = "SALES_AGENT"
)

// AffiliateProfile: a branch manager or sales agent taking part in commission distribution.
type AffiliateProfile struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	UserID        *uint                `gorm:"index" json:"user_id"`
	User          *User                `json:"-"`
	Type          AffiliateProfileType `gorm:"size:20;index;not null" json:"type"`
	AffiliateCode string               `gorm:"size:40;uniqueIndex" json:"affiliate_code"`
	DisplayName   string               `gorm:"size:100" json:"display_name"`
	Nickname      string               `gorm:"size:100" json:"nickname"`
	BranchLabel   string               `gorm:"size:100" json:"branch_label"`

	// Sales agents roll up to a branch manager
	ManagerID *uint `gorm:"index" json:"manager_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label: display name, falling back to the nickname.
func (p *AffiliateProfile) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Nickname
}
