package processor

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// NoneLabel 没有VOC类型时的占位标签
const NoneLabel = "none"

// DashboardTopN 看板中排行榜的条数
const DashboardTopN = 5

// Rate 比率，集合为空时未定义(0/0)
type Rate struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// String 未定义时显示 N/A，与 0% 区分
func (r Rate) String() string {
	if !r.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", r.Value*100)
}

// MarshalJSON NaN无法编码为JSON，未定义时输出null
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return json.Marshal(struct {
			Value   *float64 `json:"value"`
			Defined bool     `json:"defined"`
		}{})
	}
	return json.Marshal(struct {
		Value   float64 `json:"value"`
		Defined bool    `json:"defined"`
	}{r.Value, true})
}

// Count 键与出现次数
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// BrandRate 品牌检验失败率
type BrandRate struct {
	Brand string  `json:"brand"`
	Rate  float64 `json:"rate"`
	Fails int     `json:"fails"`
	Total int     `json:"total"`
}

// Trend 按月、按VOC类型的数量走势
// Months 为每月第一天(UTC)，Counts[type][i] 对应 Months[i]
type Trend struct {
	Months []time.Time      `json:"months"`
	Types  []string         `json:"types"`
	Counts map[string][]int `json:"counts"`
}

// MonthTotal 某个月所有类型的合计
func (t Trend) MonthTotal(i int) int {
	total := 0
	for _, typ := range t.Types {
		total += t.Counts[typ][i]
	}
	return total
}

// Summary 一次渲染所需的全部视图
type Summary struct {
	Total         int         `json:"total"`
	FailureRate   Rate        `json:"failure_rate"`
	DominantType  string      `json:"dominant_voc_type"`
	TopSKUs       []Count     `json:"top_skus"`
	TopBrandsFail []BrandRate `json:"top_brands_by_failure_rate"`
	Trend         *Trend      `json:"monthly_trend,omitempty"`
}

// Summarize 基于过滤后的集合重新计算全部视图
func Summarize(rs *RecordSet) Summary {
	return SummarizeN(rs, DashboardTopN)
}

// SummarizeN 排行榜取前n条
func SummarizeN(rs *RecordSet, n int) Summary {
	if n <= 0 {
		n = DashboardTopN
	}
	s := Summary{
		Total:         TotalCount(rs),
		FailureRate:   FailureRate(rs),
		DominantType:  DominantVOCType(rs),
		TopSKUs:       TopSKUs(rs, n),
		TopBrandsFail: TopBrandsByFailureRate(rs, n),
	}
	if trend, ok := MonthlyTrend(rs); ok {
		s.Trend = &trend
	}
	return s
}

// TotalCount 记录总数
func TotalCount(rs *RecordSet) int {
	return rs.Len()
}

// FailureRate 检验失败率 = FAIL条数 / 总条数
func FailureRate(rs *RecordSet) Rate {
	total := rs.Len()
	if total == 0 {
		return Rate{Value: math.NaN()}
	}
	fails := 0
	for _, r := range rs.records {
		if rs.IsFail(r) {
			fails++
		}
	}
	return Rate{Value: float64(fails) / float64(total), Defined: true}
}

// DominantVOCType 出现次数最多的VOC类型
func DominantVOCType(rs *RecordSet) string {
	if rs.Len() == 0 || !rs.HasVOCType() {
		return NoneLabel
	}
	counts := countBy(rs, func(r Record) string { return r.VOCType })
	if len(counts) == 0 {
		return NoneLabel
	}
	return counts[0].Key
}

// TopSKUs 出现次数最多的前n个SKU，不足n个时返回实际数量
func TopSKUs(rs *RecordSet, n int) []Count {
	counts := countBy(rs, func(r Record) string { return r.SKU })
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// TopBrandsByFailureRate 失败率最高的前n个品牌
func TopBrandsByFailureRate(rs *RecordSet, n int) []BrandRate {
	index := make(map[string]int)
	rates := []BrandRate{}
	if rs == nil {
		return rates
	}
	for _, r := range rs.records {
		if r.Brand == "" {
			continue
		}
		i, ok := index[r.Brand]
		if !ok {
			i = len(rates)
			index[r.Brand] = i
			rates = append(rates, BrandRate{Brand: r.Brand})
		}
		rates[i].Total++
		if rs.IsFail(r) {
			rates[i].Fails++
		}
	}
	for i := range rates {
		rates[i].Rate = float64(rates[i].Fails) / float64(rates[i].Total)
	}

	// 失败率降序，相同时按品牌名升序
	sort.SliceStable(rates, func(i, j int) bool {
		if rates[i].Rate != rates[j].Rate {
			return rates[i].Rate > rates[j].Rate
		}
		return rates[i].Brand < rates[j].Brand
	})
	if len(rates) > n {
		rates = rates[:n]
	}
	return rates
}

// MonthlyTrend 按(月份, VOC类型)计数，缺失组合补0
// 源数据没有VOC类型列时返回false，调用方跳过该视图
func MonthlyTrend(rs *RecordSet) (Trend, bool) {
	if !rs.HasVOCType() {
		return Trend{}, false
	}

	type key struct {
		month time.Time
		typ   string
	}
	cells := make(map[key]int)
	months := make(map[time.Time]bool)
	types := make(map[string]bool)

	for _, r := range rs.records {
		if !r.HasDate || r.VOCType == "" {
			continue
		}
		m := monthStart(r.Date)
		cells[key{m, r.VOCType}]++
		months[m] = true
		types[r.VOCType] = true
	}

	trend := Trend{
		Months: make([]time.Time, 0, len(months)),
		Types:  make([]string, 0, len(types)),
		Counts: make(map[string][]int, len(types)),
	}
	for m := range months {
		trend.Months = append(trend.Months, m)
	}
	sort.Slice(trend.Months, func(i, j int) bool { return trend.Months[i].Before(trend.Months[j]) })
	for t := range types {
		trend.Types = append(trend.Types, t)
	}
	sort.Strings(trend.Types)

	for _, t := range trend.Types {
		series := make([]int, len(trend.Months))
		for i, m := range trend.Months {
			series[i] = cells[key{m, t}]
		}
		trend.Counts[t] = series
	}
	return trend, true
}

// countBy 统计非空键的次数，次数降序，相同时按键升序
func countBy(rs *RecordSet, key func(Record) string) []Count {
	out := []Count{}
	if rs == nil {
		return out
	}
	index := make(map[string]int)
	for _, r := range rs.records {
		k := key(r)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Count{Key: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
