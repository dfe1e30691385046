// Package commission splits a sale into HQ, branch, override and agent shares and turns the
// split into commission ledger lines.
package commission

import (
	"encoding/json"
	"errors"

	"cruise-backend/internal/models"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "KRW"

var (
	DefaultWithholdingRate = decimal.RequireFromString("3.3")

	ErrMissingSaleID = errors.New("commission: ledger generation requires a sale id")

	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// TierSnapshot: the commission amounts a product carried when the sale happened.
type TierSnapshot struct {
	CabinType         string
	SaleAmount        *int64
	CostAmount        *int64
	HqShareAmount     *int64
	BranchShareAmount *int64
	SalesShareAmount  *int64
	OverrideAmount    *int64
	Currency          string
}

func TierFromProduct(p *models.AffiliateProduct) *TierSnapshot {
	if p == nil {
		return nil
	}
	return &TierSnapshot{
		CabinType:         p.CabinType,
		SaleAmount:        p.SaleAmount,
		CostAmount:        p.CostAmount,
		HqShareAmount:     p.HqShareAmount,
		BranchShareAmount: p.BranchShareAmount,
		SalesShareAmount:  p.SalesShareAmount,
		OverrideAmount:    p.OverrideAmount,
		Currency:          p.Currency,
	}
}

// Input: explicit values win over the tier snapshot; nil means "not given".
type Input struct {
	SaleAmount         *int64
	CostAmount         *int64
	BranchCommission   *int64
	SalesCommission    *int64
	OverrideCommission *int64

	WithholdingRate        *decimal.Decimal // percent, agent
	ManagerWithholdingRate *decimal.Decimal // percent, branch + override

	ExcludeHqNet bool
	Tier         *TierSnapshot
	Currency     string
}

type Breakdown struct {
	SaleAmount          int64  `json:"saleAmount"`
	CostAmount          int64  `json:"costAmount"`
	NetRevenue          int64  `json:"netRevenue"`
	HqNet               int64  `json:"hqNet"`
	BranchCommission    int64  `json:"branchCommission"`
	SalesCommission     int64  `json:"salesCommission"`
	OverrideCommission  int64  `json:"overrideCommission"`
	WithholdingAmount   int64  `json:"withholdingAmount"`
	BranchWithholding   int64  `json:"branchWithholding"`
	OverrideWithholding int64  `json:"overrideWithholding"`
	TotalWithholding    int64  `json:"totalWithholding"`
	Currency            string `json:"currency"`
}

type Calculator struct {
	defaultRate decimal.Decimal
}

// NewCalculator: rate is the withholding percent used when an input carries none.
func NewCalculator(defaultRate decimal.Decimal) *Calculator {
	return &Calculator{defaultRate: defaultRate}
}

func (c *Calculator) Breakdown(in Input) Breakdown {
	tier := in.Tier
	if tier == nil {
		tier = &TierSnapshot{}
	}

	saleAmount := firstOf(in.SaleAmount, tier.SaleAmount)
	costAmount := firstOf(in.CostAmount, tier.CostAmount)
	netRevenue := saleAmount - costAmount

	branch := firstOf(in.BranchCommission, tier.BranchShareAmount)
	sales := firstOf(in.SalesCommission, tier.SalesShareAmount)
	override := firstOf(in.OverrideCommission, tier.OverrideAmount)

	var hqNet int64
	if !in.ExcludeHqNet {
		if tier.HqShareAmount != nil {
			hqNet = *tier.HqShareAmount
		} else {
			hqNet = netRevenue - branch - sales - override
		}
		if hqNet < 0 {
			hqNet = 0
		}
	}

	agentRate := c.rate(in.WithholdingRate)
	managerRate := agentRate
	if in.ManagerWithholdingRate != nil {
		managerRate = *in.ManagerWithholdingRate
	}

	b := Breakdown{
		SaleAmount:         saleAmount,
		CostAmount:         costAmount,
		NetRevenue:         netRevenue,
		HqNet:              hqNet,
		BranchCommission:   branch,
		SalesCommission:    sales,
		OverrideCommission: override,
		WithholdingAmount:  percentOf(sales, agentRate),
		Currency:           resolveCurrency(in.Currency, tier.Currency),
	}
	if branch > 0 {
		b.BranchWithholding = percentOf(branch, managerRate)
	}
	if override > 0 {
		b.OverrideWithholding = percentOf(override, managerRate)
	}
	b.TotalWithholding = b.WithholdingAmount + b.BranchWithholding + b.OverrideWithholding
	return b
}

func (c *Calculator) rate(r *decimal.Decimal) decimal.Decimal {
	if r != nil {
		return *r
	}
	return c.defaultRate
}

func firstOf(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// percentOf rounds amount*rate/100 to whole currency units, halves upward (-2.5 -> -2).
func percentOf(amount int64, rate decimal.Decimal) int64 {
	return roundHalfUp(decimal.NewFromInt(amount).Mul(rate).Div(hundred))
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

func resolveCurrency(input, tier string) string {
	if tier != "" {
		return tier
	}
	if input != "" {
		return input
	}
	return DefaultCurrency
}

type Adjustment struct {
	EntryType         models.CommissionEntryType
	Amount            int64
	ProfileID         *uint
	WithholdingAmount *int64
	Notes             string
	Metadata          map[string]any
}

type LedgerOptions struct {
	Input
	SaleID            uint
	ManagerProfileID  *uint
	AgentProfileID    *uint
	OverrideProfileID *uint
	ExtraAdjustments  []Adjustment
	Metadata          map[string]any
}

// GenerateLedgerEntries computes the breakdown and the ledger lines that record it.
func (c *Calculator) GenerateLedgerEntries(opts LedgerOptions) (Breakdown, []models.CommissionLedger, error) {
	if opts.SaleID == 0 {
		return Breakdown{}, nil, ErrMissingSaleID
	}

	b := c.Breakdown(opts.Input)
	metadata := encodeMetadata(opts.Metadata)

	// an explicit currency wins on ledger lines, the tier only fills the breakdown
	currency := b.Currency
	if opts.Currency != "" {
		currency = opts.Currency
	}
	entry := func(t models.CommissionEntryType, profileID *uint, amount, withholding int64, meta, notes string) models.CommissionLedger {
		return models.CommissionLedger{
			SaleID:            opts.SaleID,
			ProfileID:         profileID,
			EntryType:         t,
			Amount:            amount,
			WithholdingAmount: &withholding,
			Currency:          currency,
			Metadata:          meta,
			Notes:             notes,
		}
	}

	overrideProfile := opts.OverrideProfileID
	if overrideProfile == nil {
		overrideProfile = opts.ManagerProfileID
	}

	var entries []models.CommissionLedger
	if !opts.ExcludeHqNet && b.HqNet > 0 {
		entries = append(entries, entry(models.EntryHQNet, nil, b.HqNet, 0, metadata, ""))
	}
	if b.BranchCommission > 0 && opts.ManagerProfileID != nil {
		entries = append(entries, entry(models.EntryBranchCommission, opts.ManagerProfileID, b.BranchCommission, b.BranchWithholding, metadata, ""))
	}
	if b.SalesCommission > 0 && opts.AgentProfileID != nil {
		entries = append(entries, entry(models.EntrySalesCommission, opts.AgentProfileID, b.SalesCommission, b.WithholdingAmount, metadata, ""))
	}
	if b.OverrideCommission > 0 {
		entries = append(entries, entry(models.EntryOverrideCommission, overrideProfile, b.OverrideCommission, b.OverrideWithholding, metadata, ""))
	}
	if b.BranchWithholding > 0 && opts.ManagerProfileID != nil {
		entries = append(entries, entry(models.EntryWithholding, opts.ManagerProfileID, -b.BranchWithholding, 0,
			encodeMetadata(withNote(opts.Metadata, "branch-withholding")), "자동 원천징수 (대리점장 브랜치)"))
	}
	if b.OverrideWithholding > 0 && opts.ManagerProfileID != nil {
		entries = append(entries, entry(models.EntryWithholding, overrideProfile, -b.OverrideWithholding, 0,
			encodeMetadata(withNote(opts.Metadata, "override-withholding")), "자동 원천징수 (대리점장 오버라이드)"))
	}

	for _, adj := range opts.ExtraAdjustments {
		if adj.Amount == 0 {
			continue
		}
		var withholding int64
		if adj.WithholdingAmount != nil {
			withholding = *adj.WithholdingAmount
		}
		meta := metadata
		if adj.Metadata != nil {
			meta = encodeMetadata(adj.Metadata)
		}
		typ := adj.EntryType
		if typ == "" {
			typ = models.EntryAdjustment
		}
		entries = append(entries, entry(typ, adj.ProfileID, adj.Amount, withholding, meta, adj.Notes))
	}

	return b, entries, nil
}

func withNote(meta map[string]any, note string) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["note"] = note
	return out
}

// encodeMetadata renders JSON for the jsonb column; nil becomes JSON null.
func encodeMetadata(meta map[string]any) string {
	if meta == nil {
		return "null"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "null"
	}
	return string(b)
}
