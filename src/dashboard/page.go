package dashboard

import (
	"fmt"
	"html/template"
	"time"

	"VocDashboard/src/processor"
)

// bar 横向条形图的一行，Width 为相对最大值的百分比
type bar struct {
	Label string
	Value string
	Width float64
}

type option struct {
	Value    string
	Selected bool
}

type trendRow struct {
	Month  string
	Counts []int
	Total  int
}

type pageData struct {
	Brands       []option
	Categories   []option
	Start        string
	End          string
	MinDate      string
	MaxDate      string
	Total        int
	FailureRate  string
	DominantType string
	SKUBars      []bar
	BrandBars    []bar
	HasTrend     bool
	TrendTypes   []string
	TrendRows    []trendRow
	ExportURL    template.URL
	LoadedAt     string
}

func newPageData(v *view, loadedAt time.Time) pageData {
	d := pageData{
		Brands:       options(processor.DistinctBrands(v.All), v.Sel.Brands),
		Categories:   options(processor.DistinctCategories(v.All), v.Sel.Categories),
		Total:        v.Summary.Total,
		FailureRate:  v.Summary.FailureRate.String(),
		DominantType: v.Summary.DominantType,
		ExportURL:    template.URL("/api/export.xlsx?" + EncodeSelection(v.Sel).Encode()),
		LoadedAt:     loadedAt.Format("2006-01-02 15:04:05"),
	}
	if v.Sel.Dates != nil {
		d.Start = v.Sel.Dates.Start.Format("2006-01-02")
		d.End = v.Sel.Dates.End.Format("2006-01-02")
	}
	if minDate, maxDate, ok := processor.DateBounds(v.All); ok {
		d.MinDate = minDate.Format("2006-01-02")
		d.MaxDate = maxDate.Format("2006-01-02")
	}

	maxCount := 0
	for _, c := range v.Summary.TopSKUs {
		maxCount = max(maxCount, c.Count)
	}
	for _, c := range v.Summary.TopSKUs {
		d.SKUBars = append(d.SKUBars, bar{
			Label: c.Key,
			Value: fmt.Sprint(c.Count),
			Width: ratio(float64(c.Count), float64(maxCount)),
		})
	}
	for _, b := range v.Summary.TopBrandsFail {
		// 失败率按0~100%绘制
		d.BrandBars = append(d.BrandBars, bar{
			Label: b.Brand,
			Value: fmt.Sprintf("%.2f%%", b.Rate*100),
			Width: b.Rate * 100,
		})
	}

	if t := v.Summary.Trend; t != nil {
		d.HasTrend = true
		d.TrendTypes = t.Types
		for i, m := range t.Months {
			row := trendRow{Month: m.Format("2006-01"), Total: t.MonthTotal(i)}
			for _, typ := range t.Types {
				row.Counts = append(row.Counts, t.Counts[typ][i])
			}
			d.TrendRows = append(d.TrendRows, row)
		}
	}
	return d
}

func options(all, selected []string) []option {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]option, 0, len(all))
	for _, v := range all {
		out = append(out, option{Value: v, Selected: chosen[v]})
	}
	return out
}

func ratio(v, total float64) float64 {
	if total == 0 {
		return 0
	}
	return v / total * 100
}
