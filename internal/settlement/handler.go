package settlement

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportResponse struct {
	OK bool `json:"ok"`
	*Report
}

// GET /api/admin/affiliate/settlements?period=YYYY-MM&format=json|csv|xlsx
func ReportHandler(svc *Service, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.Generate(c.UserContext(), c.Query("period"))
		if err != nil {
			log.Error("settlement report failed",
				zap.String("period", c.Query("period")),
				zap.Error(err),
			)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error")
		}

		switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
		case "csv":
			setAttachment(c, "text/csv; charset=utf-8", report.Period.Label, "csv")
			return c.Send(RenderCSV(report))
		case "xlsx":
			body, err := RenderXLSX(report)
			if err != nil {
				log.Error("settlement workbook failed", zap.String("period", report.Period.Label), zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "Server error")
			}
			setAttachment(c, xlsxContentType, report.Period.Label, "xlsx")
			return c.Send(body)
		}

		return c.JSON(reportResponse{OK: true, Report: report})
	}
}

func setAttachment(c *fiber.Ctx, contentType, period, ext string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="affiliate-settlement-%s.%s"`, period, ext))
}
