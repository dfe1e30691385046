package settlement

import (
	"context"
	"time"

	"cruise-backend/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxAvailablePeriods caps the period selector.
const MaxAvailablePeriods = 120

// PeriodCache stores the available period list between reports. Implementations must be
// safe for concurrent use.
type PeriodCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, periods []string) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store   Store
	cache   PeriodCache // nil: always query
	policy  Policy
	loc     *time.Location
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, cache PeriodCache, cfg config.SettlementConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store: store,
		cache: cache,
		policy: Policy{
			CardFeeRate:      cfg.CardFeeRate,
			CorporateTaxRate: cfg.CorporateTaxRate,
		},
		loc:     loc,
		timeout: cfg.Timeout,
		log:     log,
		now:     time.Now,
	}
}

// Generate builds the report of the month named by rawPeriod ("YYYY-MM", anything else
// means the current month). Only reads happen here.
func (s *Service) Generate(ctx context.Context, rawPeriod string) (*Report, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now()
	period := ResolvePeriod(rawPeriod, now, s.loc)

	var (
		report  *Report
		periods []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := s.store.ListSettledSales(gctx, period.Start, period.End)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(sales))
		for _, sale := range sales {
			ids = append(ids, sale.ID)
		}
		entries, err := s.store.ListLedgerEntries(gctx, ids)
		if err != nil {
			return err
		}
		report = BuildReport(period, sales, entries, s.policy, now)
		return nil
	})
	g.Go(func() error {
		var err error
		periods, err = s.availablePeriods(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if periods != nil {
		report.AvailablePeriods = periods
	}
	return report, nil
}

func (s *Service) availablePeriods(ctx context.Context, now time.Time) ([]string, error) {
	if s.cache != nil {
		periods, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("period cache read failed", zap.Error(err))
		} else if ok {
			return periods, nil
		}
	}

	periods, err := s.store.ListAvailablePeriods(ctx, now, s.loc, MaxAvailablePeriods)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, periods); err != nil {
			s.log.Warn("period cache write failed", zap.Error(err))
		}
	}
	return periods, nil
}
