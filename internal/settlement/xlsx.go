package settlement

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	sheetHQ       = "본사집계"
	sheetManagers = "대리점장집계"
	maxSheetName  = 31
)

var agentSheetHeader = []any{
	"판매일시", "상품코드", "상품명", "인원수", "판매가", "입금가",
	"판매원수당", "판매원원천징수", "판매원세후금액",
	"대리점장수당", "대리점장원천징수", "대리점장세후금액",
}

// RenderXLSX renders the report as a workbook: HQ summary, manager summary and one sheet
// per agent with that agent's sales of the period.
func RenderXLSX(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	names := newSheetNamer()

	hq := names.unique(sheetHQ)
	if err := f.SetSheetName(f.GetSheetName(0), hq); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	err := writeRows(f, hq, [][]any{
		{"본사 순이익 집계", r.Period.Label},
		{"항목", "금액"},
		{"총매출", r.Totals.SaleAmount},
		{"순이익", r.Totals.NetRevenue},
		{"HQ 순익(원장)", r.Totals.HQ.LedgerNet},
		{"HQ 카드수수료", r.Totals.HQ.CardFees},
		{"HQ 법인세", r.Totals.HQ.CorporateTax},
		{"HQ 세후순익", r.Totals.HQ.NetAfterFees},
	})
	if err != nil {
		return nil, err
	}

	managers := names.unique(sheetManagers)
	if _, err := f.NewSheet(managers); err != nil {
		return nil, fmt.Errorf("create sheet %q: %w", managers, err)
	}
	rows := [][]any{{
		"대리점장코드", "대리점장명", "지점", "판매건수", "인원수", "총매출", "순이익",
		"브랜치총액", "브랜치원천징수", "오버라이드총액", "오버라이드원천징수", "세후합계",
	}}
	for _, m := range r.Managers {
		rows = append(rows, []any{
			str(m.Manager.AffiliateCode), str(m.Manager.DisplayName), str(m.Manager.BranchLabel),
			m.Sales.Count, m.Sales.Headcount, m.Sales.SaleAmount, m.Sales.NetRevenue,
			m.BranchCommission.Gross, m.BranchCommission.Withholding,
			m.OverrideCommission.Gross, m.OverrideCommission.Withholding,
			m.TotalCommission.Net,
		})
	}
	if err := writeRows(f, managers, rows); err != nil {
		return nil, err
	}

	for _, a := range r.Agents {
		if err := writeAgentSheet(f, names, r, a); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAgentSheet(f *excelize.File, names *sheetNamer, r *Report, a AgentSummary) error {
	label := str(a.Agent.DisplayName)
	if label == "" {
		label = fmt.Sprintf("판매원%d", a.Agent.ID)
	}
	sheet := names.unique(label)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}

	rows := [][]any{
		{"판매원 수당 집계표", r.Period.Label},
		{"판매원명", label},
		{"판매원코드", str(a.Agent.AffiliateCode)},
	}
	if a.Manager != nil {
		rows = append(rows,
			[]any{"대리점장명", str(a.Manager.DisplayName)},
			[]any{"대리점장코드", str(a.Manager.AffiliateCode)},
		)
	}
	rows = append(rows, []any{}, agentSheetHeader)

	var headcount, sale, cost, overrideGross, overrideWithholding, overrideNet int64
	for i := range r.Sales {
		d := &r.Sales[i]
		if d.Agent == nil || d.Agent.ID != a.Agent.ID {
			continue
		}
		rows = append(rows, []any{
			str(d.SaleDate), str(d.Product.Code), str(d.Product.Title),
			d.Headcount, d.Amounts.Sale, d.Amounts.Cost,
			d.Commissions.Agent.Gross, d.Commissions.Agent.Withholding, d.Commissions.Agent.Net,
			d.Commissions.Override.Gross, d.Commissions.Override.Withholding, d.Commissions.Override.Net,
		})
		headcount += d.Headcount
		sale += d.Amounts.Sale
		cost += d.Amounts.Cost
		overrideGross += d.Commissions.Override.Gross
		overrideWithholding += d.Commissions.Override.Withholding
		overrideNet += d.Commissions.Override.Net
	}

	rows = append(rows, []any{}, []any{
		rowTypeTotal, "", "",
		headcount, sale, cost,
		a.Commission.Gross, a.Commission.Withholding, a.Commission.Net,
		overrideGross, overrideWithholding, overrideNet,
	})
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// sheetNamer turns labels into valid, unique worksheet names.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: map[string]bool{}}
}

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

func (n *sheetNamer) unique(label string) string {
	base := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(label)), "'")
	if base == "" {
		base = "Sheet"
	}
	name := truncateRunes(base, maxSheetName)
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	n.used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
