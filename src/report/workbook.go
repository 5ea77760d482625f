package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"VocDashboard/src/processor"
)

// 工作表名称
const (
	SheetSummary = "Summary"
	SheetSKU     = "SKU"
	SheetBrand   = "BrandFailRate"
	SheetTrend   = "Trend"
)

// Build 生成看板报表工作簿：指标页 + 三个图表页
// 调用方负责 Close
func Build(sum processor.Summary, sel processor.Selection, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	steps := []func(*excelize.File) error{
		func(f *excelize.File) error { return writeSummary(f, sum, sel, generatedAt) },
		func(f *excelize.File) error { return writeSKU(f, sum.TopSKUs) },
		func(f *excelize.File) error { return writeBrand(f, sum.TopBrandsFail) },
		func(f *excelize.File) error { return writeTrend(f, sum.Trend) },
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write 将报表写入w
func Write(w io.Writer, sum processor.Summary, sel processor.Selection, generatedAt time.Time) error {
	f, err := Build(sum, sel, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入报表失败: %w", err)
	}
	return nil
}

// SaveToExcel 将报表保存到文件
func SaveToExcel(filePath string, sum processor.Summary, sel processor.Selection, generatedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("创建报表目录失败: %w", err)
	}

	f, err := Build(sum, sel, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// FileName 报表文件名，例如 voc_report_20240105_0900.xlsx
func FileName(t time.Time) string {
	return fmt.Sprintf("voc_report_%s.xlsx", t.Format("20060102_1504"))
}

func writeSummary(f *excelize.File, sum processor.Summary, sel processor.Selection, generatedAt time.Time) error {
	dates := "전체"
	if sel.Dates != nil {
		dates = fmt.Sprintf("%s ~ %s", sel.Dates.Start.Format("2006-01-02"), sel.Dates.End.Format("2006-01-02"))
	}

	rows := [][]interface{}{
		{"항목", "값"},
		{"VOC 총 건수", sum.Total},
		{"검수 실패율", sum.FailureRate.String()},
		{"가장 많이 발생한 VOC 유형", sum.DominantType},
		{},
		{"브랜드", strings.Join(sel.Brands, ", ")},
		{"카테고리", strings.Join(sel.Categories, ", ")},
		{"기간", dates},
		{"생성 시각", generatedAt.Format("2006-01-02 15:04:05")},
	}
	return writeRows(f, SheetSummary, rows)
}

func writeSKU(f *excelize.File, counts []processor.Count) error {
	if _, err := f.NewSheet(SheetSKU); err != nil {
		return err
	}
	rows := [][]interface{}{{"SKU", "VOC 건수"}}
	for _, c := range counts {
		rows = append(rows, []interface{}{c.Key, c.Count})
	}
	if err := writeRows(f, SheetSKU, rows); err != nil {
		return err
	}
	return addBarChart(f, SheetSKU, len(counts), "SKU별 VOC 건수")
}

func writeBrand(f *excelize.File, rates []processor.BrandRate) error {
	if _, err := f.NewSheet(SheetBrand); err != nil {
		return err
	}
	rows := [][]interface{}{{"브랜드", "검수 실패율", "FAIL", "전체"}}
	for _, r := range rates {
		rows = append(rows, []interface{}{r.Brand, r.Rate, r.Fails, r.Total})
	}
	if err := writeRows(f, SheetBrand, rows); err != nil {
		return err
	}
	return addBarChart(f, SheetBrand, len(rates), "브랜드별 검수 실패율")
}

// writeTrend 行为月份，列为VOC类型；没有类型列时只写提示
func writeTrend(f *excelize.File, trend *processor.Trend) error {
	if _, err := f.NewSheet(SheetTrend); err != nil {
		return err
	}
	if trend == nil {
		return writeRows(f, SheetTrend, [][]interface{}{{"VOC 유형 컬럼 없음"}})
	}

	header := []interface{}{"월"}
	for _, t := range trend.Types {
		header = append(header, t)
	}
	rows := [][]interface{}{header}
	for i, m := range trend.Months {
		row := []interface{}{m.Format("2006-01")}
		for _, t := range trend.Types {
			row = append(row, trend.Counts[t][i])
		}
		rows = append(rows, row)
	}
	if err := writeRows(f, SheetTrend, rows); err != nil {
		return err
	}
	if len(trend.Months) == 0 || len(trend.Types) == 0 {
		return nil
	}

	last := len(trend.Months) + 1
	series := make([]excelize.ChartSeries, 0, len(trend.Types))
	for i := range trend.Types {
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", SheetTrend, col),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", SheetTrend, last),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetTrend, col, col, last),
		})
	}

	anchor, err := excelize.CoordinatesToCellName(len(trend.Types)+3, 1)
	if err != nil {
		return err
	}
	return f.AddChart(SheetTrend, anchor, &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "VOC 유형별 추이"}},
		Legend: excelize.ChartLegend{Position: "right"},
	})
}

// addBarChart 以A列为类别、B列为数值添加条形图
func addBarChart(f *excelize.File, sheet string, n int, title string) error {
	if n == 0 {
		return nil
	}
	last := n + 1
	return f.AddChart(sheet, "F1", &excelize.Chart{
		Type: excelize.Bar,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, last),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, last),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", sheet, err)
		}
	}
	return nil
}
