package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"VocDashboard/src/processor"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleSet() *processor.RecordSet {
	return processor.NewRecordSet([]processor.Record{
		{Date: day(2024, 1, 3), HasDate: true, Brand: "A", Category: "상의", SKU: "SKU-1", Result: "FAIL", VOCType: "사이즈"},
		{Date: day(2024, 1, 9), HasDate: true, Brand: "A", Category: "상의", SKU: "SKU-1", Result: "PASS", VOCType: "오염"},
		{Date: day(2024, 2, 1), HasDate: true, Brand: "B", Category: "하의", SKU: "SKU-2", Result: "FAIL", VOCType: "사이즈"},
		{Date: day(2024, 2, 7), HasDate: true, Brand: "B", Category: "하의", SKU: "SKU-3", Result: "PASS", VOCType: "사이즈"},
	})
}

func openWorkbook(t *testing.T, sum processor.Summary, sel processor.Selection) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sum, sel, day(2024, 3, 1)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteWorkbook(t *testing.T) {
	rs := sampleSet()
	sel := processor.DefaultSelection(rs)
	f := openWorkbook(t, processor.Summarize(rs.Filter(sel)), sel)

	assert.Equal(t, []string{SheetSummary, SheetSKU, SheetBrand, SheetTrend}, f.GetSheetList())

	total, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "4", total)

	rate, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "50.00%", rate)

	dominant, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "사이즈", dominant)

	sku, err := f.GetRows(SheetSKU)
	require.NoError(t, err)
	require.Len(t, sku, 4)
	assert.Equal(t, []string{"SKU-1", "2"}, sku[1])

	trend, err := f.GetRows(SheetTrend)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	assert.Equal(t, []string{"월", "사이즈", "오염"}, trend[0])
	assert.Equal(t, []string{"2024-01", "1", "1"}, trend[1])
	assert.Equal(t, []string{"2024-02", "2", "0"}, trend[2])
}

func TestWriteWorkbookEmptySelection(t *testing.T) {
	rs := sampleSet()
	sel := processor.Selection{Brands: []string{}, Categories: []string{"상의"}}
	f := openWorkbook(t, processor.Summarize(rs.Filter(sel)), sel)

	rate, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "N/A", rate)

	dominant, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, processor.NoneLabel, dominant)

	sku, err := f.GetRows(SheetSKU)
	require.NoError(t, err)
	assert.Len(t, sku, 1, "只有表头")
}

func TestWriteWorkbookWithoutTrend(t *testing.T) {
	rs := processor.NewRecordSetWithOptions(sampleSet().Records(), false, processor.FailLabel)
	sel := processor.DefaultSelection(rs)
	f := openWorkbook(t, processor.Summarize(rs.Filter(sel)), sel)

	note, err := f.GetCellValue(SheetTrend, "A1")
	require.NoError(t, err)
	assert.Equal(t, "VOC 유형 컬럼 없음", note)
}

func TestSaveToExcel(t *testing.T) {
	rs := sampleSet()
	sel := processor.DefaultSelection(rs)
	now := day(2024, 1, 5).Add(9 * time.Hour)
	path := filepath.Join(t.TempDir(), "nested", FileName(now))

	require.NoError(t, SaveToExcel(path, processor.Summarize(rs), sel, now))
	assert.Equal(t, "voc_report_20240105_0900.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 4)
}
