package sales

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"cruise-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type CreateSaleRequest struct {
	ProductCode  string `json:"productCode" validate:"omitempty,max=50"`
	ProductID    *uint  `json:"productId" validate:"omitempty,gt=0"`
	ManagerID    *uint  `json:"managerId" validate:"omitempty,gt=0"`
	AgentID      *uint  `json:"agentId" validate:"omitempty,gt=0"`
	CustomerName string `json:"customerName" validate:"omitempty,max=100"`
	Headcount    int    `json:"headcount" validate:"gte=0,lte=1000"`
	SaleAmount   int64  `json:"saleAmount" validate:"gte=0"`
	CostAmount   int64  `json:"costAmount" validate:"gte=0"`
	NetRevenue   *int64 `json:"netRevenue"`
	SaleDate     string `json:"saleDate"` // "2006-01-02" or RFC 3339, empty: now

	saleDate *time.Time
}

// Validate checks the body and parses the sale date.
func (r *CreateSaleRequest) Validate() error {
	r.ProductCode = strings.TrimSpace(r.ProductCode)
	r.CustomerName = strings.TrimSpace(r.CustomerName)

	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if r.ProductCode == "" && r.ProductID == nil {
		return errors.New("productCode or productId is required")
	}
	if r.ManagerID == nil && r.AgentID == nil {
		return errors.New("managerId or agentId is required")
	}

	if r.SaleDate != "" {
		t, err := parseSaleDate(r.SaleDate)
		if err != nil {
			return err
		}
		r.saleDate = &t
	}
	return nil
}

func (r *CreateSaleRequest) toModel() *models.AffiliateSale {
	sale := &models.AffiliateSale{
		ProductCode:  r.ProductCode,
		ProductID:    r.ProductID,
		ManagerID:    r.ManagerID,
		AgentID:      r.AgentID,
		CustomerName: r.CustomerName,
		Headcount:    r.Headcount,
		SaleAmount:   r.SaleAmount,
		CostAmount:   r.CostAmount,
		NetRevenue:   r.NetRevenue,
		Status:       models.SaleStatusPending,
		SaleDate:     r.saleDate,
	}
	if sale.SaleDate == nil {
		now := time.Now()
		sale.SaleDate = &now
	}
	return sale
}

// ConfirmSaleRequest: optional overrides for the commission calculation. Rates are percents.
type ConfirmSaleRequest struct {
	WithholdingRate        *float64 `json:"withholdingRate" validate:"omitempty,gte=0,lte=100"`
	ManagerWithholdingRate *float64 `json:"managerWithholdingRate" validate:"omitempty,gte=0,lte=100"`
	ExcludeHqNet           bool     `json:"excludeHqNet"`
}

func (r *ConfirmSaleRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

func (r *ConfirmSaleRequest) withholdingRate() *decimal.Decimal {
	return percent(r.WithholdingRate)
}

func (r *ConfirmSaleRequest) managerWithholdingRate() *decimal.Decimal {
	return percent(r.ManagerWithholdingRate)
}

func parseSaleDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("saleDate must be YYYY-MM-DD or RFC 3339, got %q", s)
}

// validationError turns validator output into one readable line, e.g.
// "saleAmount must be gte 0".
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}
