package settlement

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"cruise-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, body []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func TestRenderXLSX(t *testing.T) {
	sales, entries := scenarioSales()
	r := BuildReport(jan2025, sales, entries, DefaultPolicy(), testNow)

	body, err := RenderXLSX(r)
	require.NoError(t, err)
	f := openWorkbook(t, body)

	assert.Equal(t, []string{"본사집계", "대리점장집계", "이판매"}, f.GetSheetList())

	assert.Equal(t, "2025-01", cell(t, f, "본사집계", "B1"))
	assert.Equal(t, "HQ 순익(원장)", cell(t, f, "본사집계", "A5"))
	assert.Equal(t, "550000", cell(t, f, "본사집계", "B5"))
	assert.Equal(t, "63000", cell(t, f, "본사집계", "B6"))
	assert.Equal(t, "70000", cell(t, f, "본사집계", "B7"))
	assert.Equal(t, "417000", cell(t, f, "본사집계", "B8"))

	assert.Equal(t, "BM-001", cell(t, f, "대리점장집계", "A2"))
	assert.Equal(t, "2", cell(t, f, "대리점장집계", "D2"))
	assert.Equal(t, "174060", cell(t, f, "대리점장집계", "L2"))

	assert.Equal(t, "이판매", cell(t, f, "이판매", "B2"))
	assert.Equal(t, "김지점", cell(t, f, "이판매", "B4"))
	assert.Equal(t, "판매일시", cell(t, f, "이판매", "A7"))
	assert.Equal(t, "MSC-BELLISSIMA", cell(t, f, "이판매", "B8"))
	assert.Equal(t, "50000", cell(t, f, "이판매", "G8"))
	assert.Equal(t, "합계", cell(t, f, "이판매", "A10"))
	assert.Equal(t, "2", cell(t, f, "이판매", "D10"))
	assert.Equal(t, "48350", cell(t, f, "이판매", "I10"))
}

func TestRenderXLSXEmpty(t *testing.T) {
	r := BuildReport(jan2025, nil, nil, DefaultPolicy(), testNow)

	body, err := RenderXLSX(r)
	require.NoError(t, err)
	f := openWorkbook(t, body)

	assert.Equal(t, []string{"본사집계", "대리점장집계"}, f.GetSheetList())
	assert.Equal(t, "0", cell(t, f, "본사집계", "B8"))
}

func TestRenderXLSXAgentSheetNames(t *testing.T) {
	twin := &models.AffiliateProfile{ID: 21, Type: models.ProfileTypeSalesAgent, DisplayName: "이판매"}
	unnamed := &models.AffiliateProfile{ID: 22, Type: models.ProfileTypeSalesAgent}
	sales := []models.AffiliateSale{
		{ID: 1, Agent: agentSA, Status: models.SaleStatusConfirmed, ConfirmedAt: at(2, 9)},
		{ID: 2, Agent: twin, Status: models.SaleStatusConfirmed, ConfirmedAt: at(3, 9)},
		{ID: 3, Agent: unnamed, Status: models.SaleStatusConfirmed, ConfirmedAt: at(4, 9)},
	}
	r := BuildReport(jan2025, sales, nil, DefaultPolicy(), testNow)

	body, err := RenderXLSX(r)
	require.NoError(t, err)
	f := openWorkbook(t, body)

	assert.Equal(t, []string{"본사집계", "대리점장집계", "이판매", "이판매 (2)", "판매원22"}, f.GetSheetList())
}

func TestSheetNamer(t *testing.T) {
	n := newSheetNamer()

	assert.Equal(t, "a_b_c_d_e(f)", n.unique("a/b:c?d*e[f]"))
	assert.Equal(t, "quoted", n.unique("'quoted'"))
	assert.Equal(t, "Sheet", n.unique("   "))

	long := strings.Repeat("가", 40)
	first := n.unique(long)
	assert.Equal(t, maxSheetName, utf8.RuneCountInString(first))

	second := n.unique(long)
	assert.Equal(t, maxSheetName, utf8.RuneCountInString(second))
	assert.True(t, strings.HasSuffix(second, " (2)"))
	assert.NotEqual(t, first, second)

	assert.Equal(t, "Quoted (2)", n.unique("Quoted"), "names compare case-insensitively")
}
