package settlement

import (
	"strconv"
	"strings"
)

const (
	utf8BOM   = "\uFEFF"
	csvNoData = utf8BOM + "데이터가 없습니다."
)

var csvHeaders = []string{
	"구분",
	"판매ID",
	"판매일시",
	"상품코드",
	"상품명",
	"인원수",
	"총매출",
	"순이익",
	"대리점장코드",
	"대리점장명",
	"판매원코드",
	"판매원명",
	"브랜치커미션총액",
	"브랜치원천징수",
	"브랜치세후금액",
	"오버라이드총액",
	"오버라이드원천징수",
	"오버라이드세후금액",
	"대리점장세후합계",
	"판매원총액",
	"판매원원천징수",
	"판매원세후금액",
	"HQ순익(원장)",
	"HQ카드수수료",
	"HQ법인세",
	"HQ세후순익",
}

const (
	rowTypeDetail = "상세"
	rowTypeTotal  = "합계"
)

// RenderCSV writes one DETAIL row per sale and a trailing TOTAL row, prefixed with a BOM so
// spreadsheet tools pick UTF-8. A report without sales renders a single "no data" line.
func RenderCSV(r *Report) []byte {
	if len(r.Sales) == 0 {
		return []byte(csvNoData)
	}

	var b strings.Builder
	b.WriteString(utf8BOM)
	writeCSVLine(&b, csvHeaders)

	for i := range r.Sales {
		d := &r.Sales[i]
		b.WriteByte('\n')
		writeCSVLine(&b, []string{
			rowTypeDetail,
			strconv.FormatUint(uint64(d.SaleID), 10),
			str(d.SaleDate),
			str(d.Product.Code),
			str(d.Product.Title),
			num(d.Headcount),
			num(d.Amounts.Sale),
			num(d.Amounts.NetRevenue),
			managerField(d, func(m *SaleManager) *string { return m.AffiliateCode }),
			managerField(d, func(m *SaleManager) *string { return m.DisplayName }),
			agentField(d, func(a *SaleAgent) *string { return a.AffiliateCode }),
			agentField(d, func(a *SaleAgent) *string { return a.DisplayName }),
			num(d.Commissions.Branch.Gross),
			num(d.Commissions.Branch.Withholding),
			num(d.Commissions.Branch.Net),
			num(d.Commissions.Override.Gross),
			num(d.Commissions.Override.Withholding),
			num(d.Commissions.Override.Net),
			num(d.ManagerNet()),
			num(d.Commissions.Agent.Gross),
			num(d.Commissions.Agent.Withholding),
			num(d.Commissions.Agent.Net),
			num(d.Amounts.HqNet),
			"", "", "", // HQ fees only exist at period level
		})
	}

	t := &r.Totals
	b.WriteByte('\n')
	writeCSVLine(&b, []string{
		rowTypeTotal,
		"", "", "", "",
		num(t.Headcount),
		num(t.SaleAmount),
		num(t.NetRevenue),
		"", "", "", "",
		num(t.Branch.BranchGross),
		num(t.Branch.BranchWithholding),
		num(t.Branch.BranchGross - t.Branch.BranchWithholding),
		num(t.Branch.OverrideGross),
		num(t.Branch.OverrideWithholding),
		num(t.Branch.OverrideGross - t.Branch.OverrideWithholding),
		num(t.Branch.Net),
		num(t.Agent.Gross),
		num(t.Agent.Withholding),
		num(t.Agent.Net),
		num(t.HQ.LedgerNet),
		num(t.HQ.CardFees),
		num(t.HQ.CorporateTax),
		num(t.HQ.NetAfterFees),
	})

	return []byte(b.String())
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvEscape(f))
	}
}

// csvEscape quotes a field containing a comma, quote or line break and doubles inner quotes.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func managerField(d *SaleDetail, pick func(*SaleManager) *string) string {
	if d.Manager == nil {
		return ""
	}
	return str(pick(d.Manager))
}

func agentField(d *SaleDetail, pick func(*SaleAgent) *string) string {
	if d.Agent == nil {
		return ""
	}
	return str(pick(d.Agent))
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(n int64) string {
	return strconv.FormatInt(n, 10)
}
