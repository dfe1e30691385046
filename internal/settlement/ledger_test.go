package settlement

import (
	"math/rand"
	"testing"

	"cruise-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func entry(saleID uint, typ models.CommissionEntryType, amount int64, withholding *int64) models.CommissionLedger {
	return models.CommissionLedger{
		SaleID:            saleID,
		EntryType:         typ,
		Amount:            amount,
		WithholdingAmount: withholding,
	}
}

func TestLedgerAccumulatorAdd(t *testing.T) {
	var acc LedgerAccumulator

	acc.Add(entry(1, models.EntryHQNet, 250_000, nil))
	acc.Add(entry(1, models.EntryBranchCommission, 100_000, ptr(int64(3_300))))
	acc.Add(entry(1, models.EntryOverrideCommission, 20_000, ptr(int64(660))))
	acc.Add(entry(1, models.EntrySalesCommission, 50_000, ptr(int64(1_650))))

	assert.Equal(t, int64(250_000), acc.HqNet)
	assert.Equal(t, int64(96_700), acc.BranchNet())
	assert.Equal(t, int64(19_340), acc.OverrideNet())
	assert.Equal(t, int64(48_350), acc.AgentNet())
	assert.Equal(t, int64(116_040), acc.ManagerNet())
	assert.Zero(t, acc.WithholdingAdjustments)
}

func TestLedgerAccumulatorWithholdingOnlyAdjusts(t *testing.T) {
	var acc LedgerAccumulator
	acc.Add(entry(1, models.EntryBranchCommission, 80_000, ptr(int64(2_640))))
	acc.Add(entry(1, models.EntryWithholding, -5_000, nil))

	assert.Equal(t, int64(-5_000), acc.WithholdingAdjustments)
	assert.Equal(t, int64(80_000), acc.BranchGross)
	assert.Equal(t, int64(2_640), acc.BranchWithholding)
	assert.Zero(t, acc.AgentGross)
	assert.Zero(t, acc.HqNet)
}

func TestLedgerAccumulatorIgnoresUnknownTypes(t *testing.T) {
	var acc LedgerAccumulator
	acc.Add(entry(1, models.EntryAdjustment, 9_999, ptr(int64(1))))
	acc.Add(entry(1, "BONUS", 1_000, nil))

	assert.Equal(t, LedgerAccumulator{}, acc)
}

func TestLedgerAccumulatorOrderIndependent(t *testing.T) {
	entries := []models.CommissionLedger{
		entry(1, models.EntryHQNet, 250_000, nil),
		entry(1, models.EntryHQNet, -10_000, nil),
		entry(1, models.EntryBranchCommission, 100_000, ptr(int64(3_300))),
		entry(1, models.EntryBranchCommission, 5_000, nil),
		entry(1, models.EntryOverrideCommission, 20_000, ptr(int64(660))),
		entry(1, models.EntrySalesCommission, 50_000, ptr(int64(1_650))),
		entry(1, models.EntryWithholding, -3_300, nil),
		entry(1, models.EntryWithholding, -660, nil),
		entry(1, models.EntryAdjustment, 123, nil),
	}

	var want LedgerAccumulator
	for _, e := range entries {
		want.Add(e)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]models.CommissionLedger(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		var got LedgerAccumulator
		for _, e := range shuffled {
			got.Add(e)
		}
		require.Equal(t, want, got)
	}
}

func TestFoldLedger(t *testing.T) {
	entries := []models.CommissionLedger{
		entry(1, models.EntryHQNet, 100, nil),
		entry(2, models.EntrySalesCommission, 50, ptr(int64(2))),
		entry(1, models.EntryBranchCommission, 30, ptr(int64(1))),
		entry(9, models.EntryHQNet, 7, nil),
	}

	folded := FoldLedger([]uint{1, 2, 3}, entries)

	require.Contains(t, folded, uint(3))
	assert.Equal(t, LedgerAccumulator{SaleID: 3}, *folded[3])
	assert.Equal(t, int64(100), folded[1].HqNet)
	assert.Equal(t, int64(29), folded[1].BranchNet())
	assert.Equal(t, int64(48), folded[2].AgentNet())
	// entries of sales outside the list are kept apart, never mixed in
	assert.Equal(t, int64(7), folded[9].HqNet)
}
