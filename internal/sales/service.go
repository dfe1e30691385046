package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cruise-backend/internal/audit"
	"cruise-backend/internal/commission"
	"cruise-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInvalidTransition = errors.New("sale is not pending")
	ErrProfileNotFound   = errors.New("affiliate profile not found")
	ErrProductNotFound   = errors.New("affiliate product not found")
)

const entityAffiliateSale = "affiliate_sale"

// PeriodInvalidator drops the cached settlement period list.
type PeriodInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	db         *gorm.DB
	calculator *commission.Calculator
	periods    PeriodInvalidator // nil: nothing cached
	log        *zap.Logger
	now        func() time.Time
}

func NewService(db *gorm.DB, calculator *commission.Calculator, periods PeriodInvalidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:         db,
		calculator: calculator,
		periods:    periods,
		log:        log,
		now:        time.Now,
	}
}

type ListFilter struct {
	ManagerID uint
	AgentID   uint
	Status    models.AffiliateSaleStatus
	Limit     int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.AffiliateSale, error) {
	q := s.db.WithContext(ctx).
		Preload("Manager").
		Preload("Agent").
		Preload("Product")

	if f.ManagerID > 0 {
		q = q.Where("manager_id = ?", f.ManagerID)
	}
	if f.AgentID > 0 {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var sales []models.AffiliateSale
	if err := q.Order("created_at DESC").Order("id DESC").Limit(f.Limit).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// Actor is the admin performing a write, recorded in the audit log.
type Actor struct {
	UserID   uint
	UserName string
}

// Create stores a new PENDING sale. An agent's manager fills in a missing manager.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateSaleRequest) (*models.AffiliateSale, error) {
	sale := req.toModel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.AgentID != nil {
			agent, err := findProfile(tx, *req.AgentID, models.ProfileTypeSalesAgent)
			if err != nil {
				return err
			}
			if sale.ManagerID == nil {
				sale.ManagerID = agent.ManagerID
			}
		}
		if sale.ManagerID != nil {
			if _, err := findProfile(tx, *sale.ManagerID, models.ProfileTypeBranchManager); err != nil {
				return err
			}
		}
		if err := resolveProduct(tx, sale); err != nil {
			return err
		}

		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  entityAffiliateSale,
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Affiliate sale created: %s, %d KRW", sale.ProductCode, sale.SaleAmount),
			After:       sale,
		})
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Confirm moves a PENDING sale to CONFIRMED and books its commission ledger lines in the
// same transaction.
func (s *Service) Confirm(ctx context.Context, actor Actor, saleID uint, req ConfirmSaleRequest) (*models.AffiliateSale, []models.CommissionLedger, error) {
	var (
		sale    models.AffiliateSale
		entries []models.CommissionLedger
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, saleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSaleNotFound
		}
		if err != nil {
			return fmt.Errorf("load sale: %w", err)
		}
		if sale.Status != models.SaleStatusPending {
			return ErrInvalidTransition
		}
		before := sale

		var product *models.AffiliateProduct
		if sale.ProductID != nil {
			var p models.AffiliateProduct
			if err := tx.First(&p, *sale.ProductID).Error; err == nil {
				product = &p
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load product: %w", err)
			}
		}

		breakdown, lines, err := s.calculator.GenerateLedgerEntries(commission.LedgerOptions{
			Input: commission.Input{
				SaleAmount:             &sale.SaleAmount,
				CostAmount:             &sale.CostAmount,
				WithholdingRate:        req.withholdingRate(),
				ManagerWithholdingRate: req.managerWithholdingRate(),
				ExcludeHqNet:           req.ExcludeHqNet,
				Tier:                   commission.TierFromProduct(product),
			},
			SaleID:           sale.ID,
			ManagerProfileID: sale.ManagerID,
			AgentProfileID:   sale.AgentID,
			Metadata: map[string]any{
				"source":      "sale-confirm",
				"confirmedBy": actor.UserID,
			},
		})
		if err != nil {
			return err
		}

		now := s.now()
		sale.Status = models.SaleStatusConfirmed
		sale.ConfirmedAt = &now
		updates := map[string]any{
			"status":       sale.Status,
			"confirmed_at": now,
		}
		// a net revenue entered by an admin is kept as is
		if sale.NetRevenue == nil {
			sale.NetRevenue = &breakdown.NetRevenue
			updates["net_revenue"] = breakdown.NetRevenue
		}
		err = tx.Model(&sale).Updates(updates).Error
		if err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("create ledger entries: %w", err)
			}
		}
		entries = lines

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  entityAffiliateSale,
			EntityID:    sale.ID,
			Action:      models.AuditActionConfirm,
			Description: fmt.Sprintf("Affiliate sale confirmed: %d ledger entries, HQ net %d", len(lines), breakdown.HqNet),
			Before:      before,
			After:       sale,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidatePeriods(ctx)
	return &sale, entries, nil
}

func (s *Service) invalidatePeriods(ctx context.Context) {
	if s.periods == nil {
		return
	}
	if err := s.periods.Invalidate(ctx); err != nil {
		s.log.Warn("period cache invalidation failed", zap.Error(err))
	}
}

func findProfile(tx *gorm.DB, id uint, typ models.AffiliateProfileType) (*models.AffiliateProfile, error) {
	var p models.AffiliateProfile
	err := tx.Where("id = ? AND type = ?", id, typ).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s #%d", ErrProfileNotFound, typ, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// resolveProduct links the sale to its product by id or code, whichever was given.
func resolveProduct(tx *gorm.DB, sale *models.AffiliateSale) error {
	if sale.ProductID == nil && sale.ProductCode == "" {
		return nil
	}

	var p models.AffiliateProduct
	q := tx
	if sale.ProductID != nil {
		q = q.Where("id = ?", *sale.ProductID)
	} else {
		q = q.Where("product_code = ?", sale.ProductCode)
	}
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if sale.ProductID != nil {
			return ErrProductNotFound
		}
		// unknown codes are kept as free text
		return nil
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}

	sale.ProductID = &p.ID
	sale.ProductCode = p.ProductCode
	return nil
}

func percent(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
