package settlement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	sales, entries := scenarioSales()
	r := BuildReport(jan2025, sales, entries, DefaultPolicy(), testNow)

	out := string(RenderCSV(r))

	require.True(t, strings.HasPrefix(out, "\uFEFF"))
	lines := strings.Split(strings.TrimPrefix(out, "\uFEFF"), "\n")
	require.Len(t, lines, len(sales)+2)

	assert.Equal(t, strings.Join(csvHeaders, ","), lines[0])
	assert.Equal(t,
		"상세,1,2025-01-10T05:00:00.000Z,MSC-BELLISSIMA,벨리시마 오키나와 4박,2,1000000,400000,"+
			"BM-001,김지점,SA-001,이판매,100000,3300,96700,0,0,0,96700,50000,1650,48350,250000,,,",
		lines[1])
	assert.Equal(t,
		"상세,2,2025-01-20T02:00:00.000Z,RC-SPECTRUM,,3,800000,300000,"+
			"BM-001,김지점,,,80000,2640,77360,0,0,0,77360,0,0,0,300000,,,",
		lines[2])
	assert.Equal(t,
		"합계,,,,,5,1800000,700000,,,,,180000,5940,174060,0,0,0,174060,50000,1650,48350,550000,63000,70000,417000",
		lines[3])

	for i, line := range lines {
		assert.Len(t, strings.Split(line, ","), len(csvHeaders), "line %d", i)
	}
}

func TestRenderCSVNoData(t *testing.T) {
	r := BuildReport(jan2025, nil, nil, DefaultPolicy(), testNow)

	out := RenderCSV(r)

	assert.Equal(t, "\uFEFF데이터가 없습니다.", string(out))
	assert.NotContains(t, string(out), "\n")
}

func TestRenderCSVQuotesFields(t *testing.T) {
	sales, entries := scenarioSales()
	sales[0].Product.Title = `지중해 "프리미엄", 7박`
	r := BuildReport(jan2025, sales, entries, DefaultPolicy(), testNow)

	lines := strings.Split(string(RenderCSV(r)), "\n")

	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], `,"지중해 ""프리미엄"", 7박",`)
}

func TestCSVEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{"cr\rhere", "\"cr\rhere\""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, csvEscape(tt.in), tt.in)
	}
}

func TestRenderCSVStable(t *testing.T) {
	sales, entries := scenarioSales()

	first := RenderCSV(BuildReport(jan2025, sales, entries, DefaultPolicy(), testNow))
	second := RenderCSV(BuildReport(jan2025, sales, entries, DefaultPolicy(), testNow))

	assert.Equal(t, first, second)
}
