package settlement

import "cruise-backend/internal/models"

// LedgerAccumulator is the per-sale fold of commission ledger lines.
type LedgerAccumulator struct {
	SaleID                 uint
	HqNet                  int64
	BranchGross            int64
	BranchWithholding      int64
	OverrideGross          int64
	OverrideWithholding    int64
	AgentGross             int64
	AgentWithholding       int64
	WithholdingAdjustments int64 // reconciliation only, never folded into the other buckets
}

// Add folds one entry. Every branch is a plain addition into its own bucket, so the visiting
// order of entries never changes the result. Unknown entry types are ignored.
func (a *LedgerAccumulator) Add(entry models.CommissionLedger) {
	var withholding int64
	if entry.WithholdingAmount != nil {
		withholding = *entry.WithholdingAmount
	}

	switch entry.EntryType {
	case models.EntryHQNet:
		a.HqNet += entry.Amount
	case models.EntryBranchCommission:
		a.BranchGross += entry.Amount
		a.BranchWithholding += withholding
	case models.EntryOverrideCommission:
		a.OverrideGross += entry.Amount
		a.OverrideWithholding += withholding
	case models.EntrySalesCommission:
		a.AgentGross += entry.Amount
		a.AgentWithholding += withholding
	case models.EntryWithholding:
		a.WithholdingAdjustments += entry.Amount
	}
}

func (a *LedgerAccumulator) BranchNet() int64   { return a.BranchGross - a.BranchWithholding }
func (a *LedgerAccumulator) OverrideNet() int64 { return a.OverrideGross - a.OverrideWithholding }
func (a *LedgerAccumulator) AgentNet() int64    { return a.AgentGross - a.AgentWithholding }

// ManagerNet: branch and override commission after withholding.
func (a *LedgerAccumulator) ManagerNet() int64 {
	return (a.BranchGross + a.OverrideGross) - (a.BranchWithholding + a.OverrideWithholding)
}

// FoldLedger groups entries by sale. Every sale id gets a zeroed accumulator, even one
// without entries.
func FoldLedger(saleIDs []uint, entries []models.CommissionLedger) map[uint]*LedgerAccumulator {
	bySale := make(map[uint]*LedgerAccumulator, len(saleIDs))
	for _, id := range saleIDs {
		bySale[id] = &LedgerAccumulator{SaleID: id}
	}
	for _, e := range entries {
		acc, ok := bySale[e.SaleID]
		if !ok {
			acc = &LedgerAccumulator{SaleID: e.SaleID}
			bySale[e.SaleID] = acc
		}
		acc.Add(e)
	}
	return bySale
}
