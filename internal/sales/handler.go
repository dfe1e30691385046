package sales

import (
	"errors"
	"strconv"
	"time"

	"cruise-backend/internal/audit"
	"cruise-backend/internal/auth"
	"cruise-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type SaleResponse struct {
	ID           uint                       `json:"id"`
	Status       models.AffiliateSaleStatus `json:"status"`
	ProductCode  string                     `json:"productCode"`
	ProductTitle string                     `json:"productTitle,omitempty"`
	ManagerID    *uint                      `json:"managerId"`
	ManagerName  string                     `json:"managerName,omitempty"`
	AgentID      *uint                      `json:"agentId"`
	AgentName    string                     `json:"agentName,omitempty"`
	CustomerName string                     `json:"customerName"`
	Headcount    int                        `json:"headcount"`
	SaleAmount   int64                      `json:"saleAmount"`
	CostAmount   int64                      `json:"costAmount"`
	NetRevenue   int64                      `json:"netRevenue"`
	SaleDate     *string                    `json:"saleDate"`
	ConfirmedAt  *string                    `json:"confirmedAt"`
}

type LedgerEntryResponse struct {
	ID                uint                       `json:"id"`
	ProfileID         *uint                      `json:"profileId"`
	EntryType         models.CommissionEntryType `json:"entryType"`
	Amount            int64                      `json:"amount"`
	WithholdingAmount *int64                     `json:"withholdingAmount"`
	Currency          string                     `json:"currency"`
	Notes             string                     `json:"notes,omitempty"`
}

// GET /api/admin/affiliate/sales?managerId=&agentId=&status=&limit=
func ListSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			Status: models.AffiliateSaleStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", defaultListLimit),
		}
		if id, err := strconv.ParseUint(c.Query("managerId"), 10, 64); err == nil {
			f.ManagerID = uint(id)
		}
		if id, err := strconv.ParseUint(c.Query("agentId"), 10, 64); err == nil {
			f.AgentID = uint(id)
		}
		if f.Limit <= 0 || f.Limit > maxListLimit {
			f.Limit = defaultListLimit
		}

		list, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		resp := make([]SaleResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toSaleResponse(&list[i]))
		}
		return c.JSON(fiber.Map{"ok": true, "sales": resp})
	}
}

// POST /api/admin/affiliate/sales
func CreateSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := body.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sale, err := svc.Create(c.UserContext(), svc.actor(c), body)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "sale": toSaleResponse(sale)})
	}
}

// POST /api/admin/affiliate/sales/:id/confirm
func ConfirmSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid sale id")
		}

		var body ConfirmSaleRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
			}
		}
		if err := body.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sale, entries, err := svc.Confirm(c.UserContext(), svc.actor(c), uint(id), body)
		if err != nil {
			return mapError(err)
		}

		ledger := make([]LedgerEntryResponse, 0, len(entries))
		for _, e := range entries {
			ledger = append(ledger, LedgerEntryResponse{
				ID:                e.ID,
				ProfileID:         e.ProfileID,
				EntryType:         e.EntryType,
				Amount:            e.Amount,
				WithholdingAmount: e.WithholdingAmount,
				Currency:          e.Currency,
				Notes:             e.Notes,
			})
		}
		return c.JSON(fiber.Map{"ok": true, "sale": toSaleResponse(sale), "ledger": ledger})
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrSaleNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Sale not found")
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, "Only pending sales can be confirmed")
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func (s *Service) actor(c *fiber.Ctx) Actor {
	userID, _ := auth.UserID(c)
	a := Actor{UserID: userID}
	if s.db != nil && userID != 0 {
		a.UserName = audit.UserName(s.db.WithContext(c.UserContext()), userID)
	}
	return a
}

func toSaleResponse(s *models.AffiliateSale) SaleResponse {
	r := SaleResponse{
		ID:           s.ID,
		Status:       s.Status,
		ProductCode:  s.ProductCode,
		ManagerID:    s.ManagerID,
		AgentID:      s.AgentID,
		CustomerName: s.CustomerName,
		Headcount:    s.Headcount,
		SaleAmount:   s.SaleAmount,
		CostAmount:   s.CostAmount,
		NetRevenue:   s.EffectiveNetRevenue(),
		SaleDate:     formatTime(s.SaleDate),
		ConfirmedAt:  formatTime(s.ConfirmedAt),
	}
	if s.Product != nil {
		r.ProductTitle = s.Product.Title
	}
	if s.Manager != nil {
		r.ManagerName = s.Manager.Label()
	}
	if s.Agent != nil {
		r.AgentName = s.Agent.Label()
	}
	return r
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
