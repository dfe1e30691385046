package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cruise-backend/internal/models"

	"gorm.io/gorm"
)

// ledgerChunkSize bounds the IN list of one ledger query.
const ledgerChunkSize = 1000

// Store is the read side the report needs.
type Store interface {
	// ListSettledSales returns settled sales confirmed in [start, end], oldest first, with
	// manager, agent and product loaded.
	ListSettledSales(ctx context.Context, start, end time.Time) ([]models.AffiliateSale, error)
	// ListLedgerEntries returns the settlement-relevant ledger lines of the given sales.
	ListLedgerEntries(ctx context.Context, saleIDs []uint) ([]models.CommissionLedger, error)
	// ListAvailablePeriods returns the distinct "YYYY-MM" keys (in loc) of settled sales
	// confirmed at or before until, newest first, at most limit of them.
	ListAvailablePeriods(ctx context.Context, until time.Time, loc *time.Location, limit int) ([]string, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListSettledSales(ctx context.Context, start, end time.Time) ([]models.AffiliateSale, error) {
	var sales []models.AffiliateSale
	err := s.db.WithContext(ctx).
		Preload("Manager").
		Preload("Agent").
		Preload("Product").
		Where("status IN ?", models.SettledSaleStatuses).
		Where("confirmed_at >= ? AND confirmed_at <= ?", start, end).
		Order("confirmed_at ASC").
		Order("id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("list settled sales: %w", err)
	}
	return sales, nil
}

func (s *GormStore) ListLedgerEntries(ctx context.Context, saleIDs []uint) ([]models.CommissionLedger, error) {
	entries := []models.CommissionLedger{}
	for from := 0; from < len(saleIDs); from += ledgerChunkSize {
		to := min(from+ledgerChunkSize, len(saleIDs))

		var chunk []models.CommissionLedger
		err := s.db.WithContext(ctx).
			Where("sale_id IN ?", saleIDs[from:to]).
			Where("entry_type IN ?", models.SettlementEntryTypes).
			Order("id ASC").
			Find(&chunk).Error
		if err != nil {
			return nil, fmt.Errorf("list ledger entries: %w", err)
		}
		entries = append(entries, chunk...)
	}
	return entries, nil
}

// ListAvailablePeriods walks backwards one month at a time: each step asks for the latest
// confirmation before the cursor and moves the cursor to the start of that month. Month
// keys are taken in Go so the report zone never has to be known to Postgres.
func (s *GormStore) ListAvailablePeriods(ctx context.Context, until time.Time, loc *time.Location, limit int) ([]string, error) {
	if loc == nil {
		loc = time.Local
	}

	periods := []string{}
	cursor, cond := until, "confirmed_at <= ?"
	for len(periods) < limit {
		var latest sql.NullTime
		err := s.db.WithContext(ctx).
			Model(&models.AffiliateSale{}).
			Select("MAX(confirmed_at)").
			Where("status IN ?", models.SettledSaleStatuses).
			Where(cond, cursor).
			Row().
			Scan(&latest)
		if err != nil {
			return nil, fmt.Errorf("list available periods: %w", err)
		}
		if !latest.Valid {
			break
		}

		t := latest.Time.In(loc)
		periods = append(periods, MonthKey(t, loc))
		cursor, cond = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), "confirmed_at < ?"
	}
	return periods, nil
}
