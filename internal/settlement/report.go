package settlement

import (
	"time"

	"cruise-backend/internal/models"

	"github.com/shopspring/decimal"
)

const comparisonSource = "settlement-dashboard"

// Policy holds the HQ fee assumptions applied after all sales are folded.
type Policy struct {
	CardFeeRate      decimal.Decimal // of total sale amount
	CorporateTaxRate decimal.Decimal // of total net revenue
}

func DefaultPolicy() Policy {
	return Policy{
		CardFeeRate:      decimal.RequireFromString("0.035"),
		CorporateTaxRate: decimal.RequireFromString("0.10"),
	}
}

type Report struct {
	Period           PeriodView       `json:"period"`
	Totals           Totals           `json:"totals"`
	Comparisons      Comparisons      `json:"comparisons"`
	Managers         []ManagerSummary `json:"managers"`
	Agents           []AgentSummary   `json:"agents"`
	Sales            []SaleDetail     `json:"sales"`
	AvailablePeriods []string         `json:"availablePeriods"`
}

type PeriodView struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type Totals struct {
	SaleCount              int64       `json:"saleCount"`
	Headcount              int64       `json:"headcount"`
	SaleAmount             int64       `json:"saleAmount"`
	CostAmount             int64       `json:"costAmount"`
	NetRevenue             int64       `json:"netRevenue"`
	WithholdingAdjustments int64       `json:"withholdingAdjustments"`
	HQ                     HQTotals    `json:"hq"`
	Branch                 BranchTotal `json:"branch"`
	Agent                  Amounts     `json:"agent"`
}

type HQTotals struct {
	LedgerNet    int64 `json:"ledgerNet"`
	CardFees     int64 `json:"cardFees"`
	CorporateTax int64 `json:"corporateTax"`
	NetAfterFees int64 `json:"netAfterFees"`
}

type BranchTotal struct {
	BranchGross         int64 `json:"branchGross"`
	BranchWithholding   int64 `json:"branchWithholding"`
	OverrideGross       int64 `json:"overrideGross"`
	OverrideWithholding int64 `json:"overrideWithholding"`
	Net                 int64 `json:"net"` // manager net: branch + override after withholding
}

type Amounts struct {
	Gross       int64 `json:"gross"`
	Withholding int64 `json:"withholding"`
	Net         int64 `json:"net"`
}

// Comparisons restates the totals from the per-party rollups as a cross-check.
type Comparisons struct {
	Totals   ComparisonTotals   `json:"totals"`
	Metadata ComparisonMetadata `json:"metadata"`
}

type ComparisonTotals struct {
	SaleAmount         int64 `json:"saleAmount"`
	NetRevenue         int64 `json:"netRevenue"`
	BranchCommission   int64 `json:"branchCommission"`
	OverrideCommission int64 `json:"overrideCommission"`
	ManagerWithholding int64 `json:"managerWithholding"`
	ManagerNet         int64 `json:"managerNet"`
	SalesCommission    int64 `json:"salesCommission"`
	AgentWithholding   int64 `json:"agentWithholding"`
	AgentNet           int64 `json:"agentNet"`
}

type ComparisonMetadata struct {
	GeneratedAt string `json:"generatedAt"`
	Source      string `json:"source"`
}

type ManagerRef struct {
	ID            uint    `json:"id"`
	AffiliateCode *string `json:"affiliateCode"`
	DisplayName   *string `json:"displayName"`
	BranchLabel   *string `json:"branchLabel"`
	Nickname      *string `json:"nickname"`
}

type AgentRef struct {
	ID            uint    `json:"id"`
	AffiliateCode *string `json:"affiliateCode"`
	DisplayName   *string `json:"displayName"`
	Nickname      *string `json:"nickname"`
}

type ManagerLink struct {
	ID            uint    `json:"id"`
	DisplayName   *string `json:"displayName"`
	AffiliateCode *string `json:"affiliateCode"`
}

type SalesStats struct {
	Count      int64 `json:"count"`
	Headcount  int64 `json:"headcount"`
	SaleAmount int64 `json:"saleAmount"`
	NetRevenue int64 `json:"netRevenue"`
}

type ManagerSummary struct {
	Manager            ManagerRef `json:"manager"`
	Sales              SalesStats `json:"sales"`
	BranchCommission   Amounts    `json:"branchCommission"`
	OverrideCommission Amounts    `json:"overrideCommission"`
	TotalCommission    Amounts    `json:"totalCommission"`
}

type AgentSummary struct {
	Agent      AgentRef     `json:"agent"`
	Manager    *ManagerLink `json:"manager"`
	Sales      SalesStats   `json:"sales"`
	Commission Amounts      `json:"commission"`
}

type SaleDetail struct {
	SaleID      uint              `json:"saleId"`
	SaleDate    *string           `json:"saleDate"`
	Product     ProductRef        `json:"product"`
	Headcount   int64             `json:"headcount"`
	Amounts     SaleAmounts       `json:"amounts"`
	Manager     *SaleManager      `json:"manager"`
	Agent       *SaleAgent        `json:"agent"`
	Commissions CommissionAmounts `json:"commissions"`
}

type ProductRef struct {
	Code  *string `json:"code"`
	Title *string `json:"title"`
}

type SaleAmounts struct {
	Sale       int64 `json:"sale"`
	Cost       int64 `json:"cost"`
	NetRevenue int64 `json:"netRevenue"`
	HqNet      int64 `json:"hqNet"`
}

type SaleManager struct {
	ID            uint    `json:"id"`
	AffiliateCode *string `json:"affiliateCode"`
	DisplayName   *string `json:"displayName"`
	BranchLabel   *string `json:"branchLabel"`
}

type SaleAgent struct {
	ID            uint    `json:"id"`
	AffiliateCode *string `json:"affiliateCode"`
	DisplayName   *string `json:"displayName"`
}

type CommissionAmounts struct {
	Branch   Amounts `json:"branch"`
	Override Amounts `json:"override"`
	Agent    Amounts `json:"agent"`
}

// ManagerNet: branch net plus override net of one sale.
func (d *SaleDetail) ManagerNet() int64 {
	return d.Commissions.Branch.Net + d.Commissions.Override.Net
}

type managerBucket struct {
	ref                 ManagerRef
	stats               SalesStats
	branchGross         int64
	branchWithholding   int64
	overrideGross       int64
	overrideWithholding int64
}

type agentBucket struct {
	ref         AgentRef
	manager     *ManagerLink
	stats       SalesStats
	gross       int64
	withholding int64
}

// BuildReport folds sales (already in report order) and their ledger lines into a report.
// The input is not modified; AvailablePeriods is left empty for the caller to fill.
func BuildReport(period Period, sales []models.AffiliateSale, entries []models.CommissionLedger, policy Policy, generatedAt time.Time) *Report {
	saleIDs := make([]uint, 0, len(sales))
	for _, s := range sales {
		saleIDs = append(saleIDs, s.ID)
	}
	ledger := FoldLedger(saleIDs, entries)

	r := &Report{
		Period: PeriodView{
			Label: period.Label,
			Start: isoTime(period.Start),
			End:   isoTime(period.End),
		},
		Managers:         []ManagerSummary{},
		Agents:           []AgentSummary{},
		Sales:            make([]SaleDetail, 0, len(sales)),
		AvailablePeriods: []string{},
	}

	// Buckets keep first-seen order so repeated runs render identically.
	var managers []*managerBucket
	managerIdx := map[uint]*managerBucket{}
	var agents []*agentBucket
	agentIdx := map[uint]*agentBucket{}

	t := &r.Totals
	for i := range sales {
		sale := &sales[i]
		acc := ledger[sale.ID]
		netRevenue := sale.EffectiveNetRevenue()
		headcount := int64(sale.Headcount)

		t.SaleCount++
		t.Headcount += headcount
		t.SaleAmount += sale.SaleAmount
		t.CostAmount += sale.CostAmount
		t.NetRevenue += netRevenue
		t.WithholdingAdjustments += acc.WithholdingAdjustments
		t.HQ.LedgerNet += acc.HqNet
		t.Branch.BranchGross += acc.BranchGross
		t.Branch.BranchWithholding += acc.BranchWithholding
		t.Branch.OverrideGross += acc.OverrideGross
		t.Branch.OverrideWithholding += acc.OverrideWithholding
		t.Branch.Net += acc.ManagerNet()
		t.Agent.Gross += acc.AgentGross
		t.Agent.Withholding += acc.AgentWithholding
		t.Agent.Net += acc.AgentNet()

		r.Comparisons.Totals.SalesCommission += acc.AgentGross
		r.Comparisons.Totals.AgentWithholding += acc.AgentWithholding
		r.Comparisons.Totals.AgentNet += acc.AgentNet()

		if m := sale.Manager; m != nil {
			b, ok := managerIdx[m.ID]
			if !ok {
				b = &managerBucket{ref: ManagerRef{
					ID:            m.ID,
					AffiliateCode: nullable(m.AffiliateCode),
					DisplayName:   nullable(m.Label()),
					BranchLabel:   nullable(m.BranchLabel),
					Nickname:      nullable(m.Nickname),
				}}
				managerIdx[m.ID] = b
				managers = append(managers, b)
			}
			b.stats.add(headcount, sale.SaleAmount, netRevenue)
			b.branchGross += acc.BranchGross
			b.branchWithholding += acc.BranchWithholding
			b.overrideGross += acc.OverrideGross
			b.overrideWithholding += acc.OverrideWithholding
		}

		if a := sale.Agent; a != nil {
			b, ok := agentIdx[a.ID]
			if !ok {
				b = &agentBucket{ref: AgentRef{
					ID:            a.ID,
					AffiliateCode: nullable(a.AffiliateCode),
					DisplayName:   nullable(a.Label()),
					Nickname:      nullable(a.Nickname),
				}}
				agentIdx[a.ID] = b
				agents = append(agents, b)
			}
			// The manager of the latest sale in the period wins.
			b.manager = managerLink(sale.Manager)
			b.stats.add(headcount, sale.SaleAmount, netRevenue)
			b.gross += acc.AgentGross
			b.withholding += acc.AgentWithholding
		}

		r.Sales = append(r.Sales, saleDetail(sale, acc, netRevenue))
	}

	t.HQ.CardFees = applyRate(t.SaleAmount, policy.CardFeeRate)
	t.HQ.CorporateTax = applyRate(t.NetRevenue, policy.CorporateTaxRate)
	t.HQ.NetAfterFees = max(t.HQ.LedgerNet-t.HQ.CardFees-t.HQ.CorporateTax, 0)

	ct := &r.Comparisons.Totals
	ct.SaleAmount = t.SaleAmount
	ct.NetRevenue = t.NetRevenue
	for _, b := range managers {
		branch := Amounts{Gross: b.branchGross, Withholding: b.branchWithholding, Net: b.branchGross - b.branchWithholding}
		override := Amounts{Gross: b.overrideGross, Withholding: b.overrideWithholding, Net: b.overrideGross - b.overrideWithholding}

		ct.BranchCommission += branch.Gross
		ct.OverrideCommission += override.Gross
		ct.ManagerWithholding += branch.Withholding + override.Withholding
		ct.ManagerNet += branch.Net + override.Net

		r.Managers = append(r.Managers, ManagerSummary{
			Manager:            b.ref,
			Sales:              b.stats,
			BranchCommission:   branch,
			OverrideCommission: override,
			TotalCommission: Amounts{
				Gross:       branch.Gross + override.Gross,
				Withholding: branch.Withholding + override.Withholding,
				Net:         branch.Net + override.Net,
			},
		})
	}
	for _, b := range agents {
		r.Agents = append(r.Agents, AgentSummary{
			Agent:      b.ref,
			Manager:    b.manager,
			Sales:      b.stats,
			Commission: Amounts{Gross: b.gross, Withholding: b.withholding, Net: b.gross - b.withholding},
		})
	}

	r.Comparisons.Metadata = ComparisonMetadata{
		GeneratedAt: isoTime(generatedAt),
		Source:      comparisonSource,
	}
	return r
}

func (s *SalesStats) add(headcount, saleAmount, netRevenue int64) {
	s.Count++
	s.Headcount += headcount
	s.SaleAmount += saleAmount
	s.NetRevenue += netRevenue
}

func saleDetail(sale *models.AffiliateSale, acc *LedgerAccumulator, netRevenue int64) SaleDetail {
	d := SaleDetail{
		SaleID:    sale.ID,
		SaleDate:  saleTimestamp(sale),
		Headcount: int64(sale.Headcount),
		Amounts: SaleAmounts{
			Sale:       sale.SaleAmount,
			Cost:       sale.CostAmount,
			NetRevenue: netRevenue,
			HqNet:      acc.HqNet,
		},
		Commissions: CommissionAmounts{
			Branch:   Amounts{Gross: acc.BranchGross, Withholding: acc.BranchWithholding, Net: acc.BranchNet()},
			Override: Amounts{Gross: acc.OverrideGross, Withholding: acc.OverrideWithholding, Net: acc.OverrideNet()},
			Agent:    Amounts{Gross: acc.AgentGross, Withholding: acc.AgentWithholding, Net: acc.AgentNet()},
		},
	}

	code := sale.ProductCode
	if code == "" && sale.Product != nil {
		code = sale.Product.ProductCode
	}
	d.Product.Code = nullable(code)
	if sale.Product != nil {
		d.Product.Title = nullable(sale.Product.Title)
	}

	if m := sale.Manager; m != nil {
		d.Manager = &SaleManager{
			ID:            m.ID,
			AffiliateCode: nullable(m.AffiliateCode),
			DisplayName:   nullable(m.Label()),
			BranchLabel:   nullable(m.BranchLabel),
		}
	}
	if a := sale.Agent; a != nil {
		d.Agent = &SaleAgent{
			ID:            a.ID,
			AffiliateCode: nullable(a.AffiliateCode),
			DisplayName:   nullable(a.Label()),
		}
	}
	return d
}

func saleTimestamp(sale *models.AffiliateSale) *string {
	switch {
	case sale.ConfirmedAt != nil:
		s := isoTime(*sale.ConfirmedAt)
		return &s
	case sale.SaleDate != nil:
		s := isoTime(*sale.SaleDate)
		return &s
	}
	return nil
}

func managerLink(m *models.AffiliateProfile) *ManagerLink {
	if m == nil {
		return nil
	}
	return &ManagerLink{
		ID:            m.ID,
		DisplayName:   nullable(m.Label()),
		AffiliateCode: nullable(m.AffiliateCode),
	}
}

var half = decimal.RequireFromString("0.5")

// applyRate rounds amount*rate to whole currency units, halves upward (-0.5 -> 0).
func applyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Add(half).Floor().IntPart()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
