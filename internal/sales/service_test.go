package sales

import (
	"context"
	"regexp"
	"testing"
	"time"

	"cruise-backend/internal/commission"
	"cruise-backend/internal/httpx"
	"cruise-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

var confirmedAt = time.Date(2025, time.January, 20, 11, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, *countingInvalidator) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	inv := &countingInvalidator{}
	svc := NewService(db, commission.NewCalculator(commission.DefaultWithholdingRate), inv, zap.NewNop())
	svc.now = func() time.Time { return confirmedAt }
	return svc, mock, inv
}

var (
	lockSaleQ    = `SELECT \* FROM "affiliate_sales" WHERE "affiliate_sales"."id" = \$1 ORDER BY .* FOR UPDATE`
	saleColumns  = []string{"id", "product_code", "product_id", "manager_id", "agent_id", "sale_amount", "cost_amount", "net_revenue", "status"}
	insertAuditQ = regexp.QuoteMeta(`INSERT INTO "audit_logs"`)
)

func TestConfirmBooksLedgerInSameTransaction(t *testing.T) {
	svc, mock, inv := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSaleQ).
		WillReturnRows(sqlmock.NewRows(saleColumns).
			AddRow(7, "MSC-01", 5, 10, 20, 1_000_000, 700_000, nil, "PENDING"))
	mock.ExpectQuery(`SELECT \* FROM "affiliate_products" WHERE "affiliate_products"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_code", "currency", "branch_share_amount", "sales_share_amount", "override_amount"}).
			AddRow(5, "MSC-01", "KRW", 100_000, 50_000, 20_000))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "affiliate_sales" SET "confirmed_at"=$1,"net_revenue"=$2,"status"=$3,"updated_at"=$4 WHERE`)).
		WithArgs(confirmedAt, 300_000, "CONFIRMED", sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "commission_ledgers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(101).AddRow(102).AddRow(103).AddRow(104).AddRow(105).AddRow(106))
	mock.ExpectQuery(insertAuditQ).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	sale, entries, err := svc.Confirm(context.Background(), Actor{UserID: 1, UserName: "관리자"}, 7, ConfirmSaleRequest{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, models.SaleStatusConfirmed, sale.Status)
	require.NotNil(t, sale.ConfirmedAt)
	assert.True(t, confirmedAt.Equal(*sale.ConfirmedAt))
	require.NotNil(t, sale.NetRevenue)
	assert.Equal(t, int64(300_000), *sale.NetRevenue)

	require.Len(t, entries, 6)
	assert.Equal(t, uint(101), entries[0].ID)
	assert.Equal(t, models.EntryHQNet, entries[0].EntryType)
	assert.Equal(t, int64(130_000), entries[0].Amount)
	for _, e := range entries {
		assert.Equal(t, uint(7), e.SaleID)
	}

	assert.Equal(t, 1, inv.calls)
}

func TestConfirmKeepsStoredNetRevenue(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSaleQ).
		WillReturnRows(sqlmock.NewRows(saleColumns).
			AddRow(8, "FREE-TEXT", nil, 10, nil, 1_000_000, 700_000, 250_000, "PENDING"))
	// net_revenue is not part of the update
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "affiliate_sales" SET "confirmed_at"=$1,"status"=$2,"updated_at"=$3 WHERE`)).
		WithArgs(confirmedAt, "CONFIRMED", sqlmock.AnyArg(), 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "commission_ledgers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(201))
	mock.ExpectQuery(insertAuditQ).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	sale, _, err := svc.Confirm(context.Background(), Actor{UserID: 1}, 8, ConfirmSaleRequest{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.NotNil(t, sale.NetRevenue)
	assert.Equal(t, int64(250_000), *sale.NetRevenue)
	assert.Equal(t, int64(250_000), sale.EffectiveNetRevenue())
}

func TestConfirmRejectsNonPendingSale(t *testing.T) {
	svc, mock, inv := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSaleQ).
		WillReturnRows(sqlmock.NewRows(saleColumns).
			AddRow(7, "MSC-01", nil, 10, 20, 1_000_000, 700_000, 300_000, "CONFIRMED"))
	mock.ExpectRollback()

	_, _, err := svc.Confirm(context.Background(), Actor{UserID: 1}, 7, ConfirmSaleRequest{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, inv.calls)
}

func TestConfirmUnknownSale(t *testing.T) {
	svc, mock, inv := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSaleQ).WillReturnRows(sqlmock.NewRows(saleColumns))
	mock.ExpectRollback()

	_, _, err := svc.Confirm(context.Background(), Actor{UserID: 1}, 99, ConfirmSaleRequest{})
	require.ErrorIs(t, err, ErrSaleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, inv.calls)
}

func TestConfirmSaleHandlerSecondConfirmConflicts(t *testing.T) {
	svc, mock, _ := newMockService(t)
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(zap.NewNop())})
	app.Post("/sales/:id/confirm", ConfirmSaleHandler(svc))

	mock.ExpectBegin()
	mock.ExpectQuery(lockSaleQ).
		WillReturnRows(sqlmock.NewRows(saleColumns).
			AddRow(7, "MSC-01", nil, 10, 20, 1_000_000, 700_000, 300_000, "CONFIRMED"))
	mock.ExpectRollback()

	status, body := post(t, app, "/sales/7/confirm", ``)

	assert.Equal(t, fiber.StatusConflict, status)
	assert.JSONEq(t, `{"ok":false,"message":"Only pending sales can be confirmed"}`, body)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultsManagerFromAgent(t *testing.T) {
	svc, mock, inv := newMockService(t)
	profileQ := `SELECT \* FROM "affiliate_profiles" WHERE \(?id = \$1 AND type = \$2`

	mock.ExpectBegin()
	mock.ExpectQuery(profileQ).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "affiliate_code", "manager_id"}).
			AddRow(20, "SALES_AGENT", "SA-001", 10))
	mock.ExpectQuery(profileQ).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "affiliate_code"}).
			AddRow(10, "BRANCH_MANAGER", "BM-001"))
	mock.ExpectQuery(`SELECT \* FROM "affiliate_products" WHERE product_code = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_code"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "affiliate_sales"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery(insertAuditQ).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	req := CreateSaleRequest{ProductCode: "UNLISTED-01", AgentID: uptr(20), Headcount: 2, SaleAmount: 1_000_000, CostAmount: 700_000}
	require.NoError(t, req.Validate())

	sale, err := svc.Create(context.Background(), Actor{UserID: 1}, req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, uint(42), sale.ID)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	require.NotNil(t, sale.ManagerID)
	assert.Equal(t, uint(10), *sale.ManagerID)
	assert.Nil(t, sale.ProductID, "unknown codes stay free text")
	assert.Equal(t, "UNLISTED-01", sale.ProductCode)
	assert.Zero(t, inv.calls)
}
